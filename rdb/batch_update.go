package rdb

import (
	"context"
	"time"

	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ChunkResult 一个分块的执行结果
type ChunkResult struct {
	// Index 分块序号
	Index int
	// Offset 分块第一行在输入中的下标
	Offset int
	Size   int
	// Err 事务失败时为回滚前的错误，ctx 取消导致未执行时为 ctx.Err()
	Err error
}

type ChunkResults []ChunkResult

// Err 返回第一个失败的分块的错误
func (rs ChunkResults) Err() error {
	for _, r := range rs {
		if r.Err != nil {
			return errors.WithMessagef(r.Err, "chunk %d (rows %d-%d)", r.Index, r.Offset, r.Offset+r.Size-1)
		}
	}
	return nil
}

// Failed 失败的分块数
func (rs ChunkResults) Failed() int {
	n := 0
	for _, r := range rs {
		if r.Err != nil {
			n++
		}
	}
	return n
}

type batchUpdateOptions struct {
	batchSize    int
	staggerDelay time.Duration
}

// BatchUpdateOption BatchUpdate 选项
type BatchUpdateOption func(*batchUpdateOptions)

// WithBatchSize 每个事务包含的语句数，默认 1000
func WithBatchSize(n int) BatchUpdateOption {
	return func(o *batchUpdateOptions) {
		o.batchSize = n
	}
}

// WithStaggerDelay 第 i 个分块在 i*delay 之后在独立的 goroutine 中执行，分块之间没有顺序保证
func WithStaggerDelay(delay time.Duration) BatchUpdateOption {
	return func(o *batchUpdateOptions) {
		o.staggerDelay = delay
	}
}

// BatchUpdate 为每一行生成一条 UPDATE，按分块在独立事务中执行
//
// 所有语句先生成，生成失败时不执行任何 SQL。分块失败会回滚并记录在对应的 ChunkResult 中，不影响其他分块。
// 返回的 error 只表示参数或语句生成错误，分块的失败通过 ChunkResults.Err 获取
func BatchUpdate[T any](ctx context.Context, q *Query, rows []T, callback func(ru *RecordUpdater, row T), opts ...BatchUpdateOption) (ChunkResults, error) {
	options := &batchUpdateOptions{batchSize: 1000}
	for _, opt := range opts {
		opt(options)
	}
	if options.batchSize <= 0 {
		return nil, errs.Validationf("batch size must be positive, got %d", options.batchSize)
	}
	if options.staggerDelay < 0 {
		return nil, errs.Validationf("stagger delay must not be negative, got %v", options.staggerDelay)
	}
	if q.tx != nil {
		return nil, errs.Statef("batch update opens its own transactions and cannot run inside transaction %s", q.tx.ID())
	}

	statements := make([][]string, 0, len(rows))
	for i, row := range rows {
		ru := q.RecordUpdater()
		callback(ru, row)
		sql, err := ru.ToSQL(ctx)
		if err != nil {
			return nil, errors.WithMessagef(err, "row %d", i)
		}
		statements = append(statements, sql)
	}

	var results ChunkResults
	for offset := 0; offset < len(statements); offset += options.batchSize {
		end := min(offset+options.batchSize, len(statements))
		results = append(results, ChunkResult{Index: len(results), Offset: offset, Size: end - offset})
	}

	run := func(i int) {
		chunk := &results[i]
		if err := ctx.Err(); err != nil {
			chunk.Err = err
			return
		}
		chunk.Err = q.WithTransaction(ctx, func(tx *Query) error {
			for _, sql := range statements[chunk.Offset : chunk.Offset+chunk.Size] {
				if _, err := tx.Send(ctx, sql...); err != nil {
					return err
				}
			}
			return nil
		})
		if chunk.Err != nil {
			q.logger.WarnContext(ctx, "batch update chunk rolled back", "chunk", chunk.Index, "offset", chunk.Offset, "size", chunk.Size, "error", chunk.Err)
		}
	}

	if options.staggerDelay == 0 {
		for i := range results {
			run(i)
		}
		return results, nil
	}

	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			timer := time.NewTimer(time.Duration(i) * options.staggerDelay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				results[i].Err = ctx.Err()
				return nil
			case <-timer.C:
			}
			run(i)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}
