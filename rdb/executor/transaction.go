package executor

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/pkg/errors"
)

// Transaction 独占一个连接的事务，调用方负责 Commit/Rollback 后 Release
type Transaction struct {
	id       string
	executor *Executor
	conn     *sql.Conn
	tx       *sql.Tx

	mu       sync.Mutex
	finished bool
	released bool
}

// GetTransaction 获取独占连接并开启事务
func (e *Executor) GetTransaction(ctx context.Context) (*Transaction, error) {
	var t *Transaction
	err := e.observe(ctx, "begin", "BEGIN", func(ctx context.Context, timing *Timing) error {
		conn, err := e.acquire(ctx, timing)
		if err != nil {
			return errs.NewDriverError("BEGIN", err)
		}

		start := time.Now()
		tx, err := conn.BeginTx(ctx, nil)
		timing.Query = time.Since(start)
		if err != nil {
			_ = conn.Close()
			return errs.NewDriverError("BEGIN", err)
		}

		t = &Transaction{
			id:       uuid.NewString(),
			executor: e,
			conn:     conn,
			tx:       tx,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// WithTransaction 在事务中执行 fn：返回 nil 时提交，返回错误或 panic 时回滚，总是释放连接
func (e *Executor) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	tx, err := e.GetTransaction(ctx)
	if err != nil {
		return err
	}
	defer tx.Release()

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.WarnContext(ctx, "rollback failed", "transaction", tx.id, "error", rbErr.Error())
		}
		return err
	}

	return tx.Commit()
}

// ID 事务标识，用于日志关联
func (t *Transaction) ID() string {
	return t.id
}

// Raw 在事务中执行查询
func (t *Transaction) Raw(ctx context.Context, fragments ...string) (*RowSet, error) {
	sqlText := strings.Join(fragments, "\n")
	if err := t.active(); err != nil {
		return nil, err
	}

	var rs *RowSet
	err := t.executor.observe(ctx, "tx.raw", sqlText, func(ctx context.Context, timing *Timing) error {
		start := time.Now()
		var err error
		rs, err = queryRows(ctx, t.tx, sqlText)
		timing.Query = time.Since(start)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// Send 在事务中执行不返回结果集的语句
func (t *Transaction) Send(ctx context.Context, fragments ...string) (*Result, error) {
	sqlText := strings.Join(fragments, "\n")
	if err := t.active(); err != nil {
		return nil, err
	}

	var result *Result
	err := t.executor.observe(ctx, "tx.send", sqlText, func(ctx context.Context, timing *Timing) error {
		start := time.Now()
		var err error
		result, err = execStatement(ctx, t.tx, sqlText)
		timing.Query = time.Since(start)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Commit 提交事务
func (t *Transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return errs.Statef("transaction %s already finished", t.id)
	}
	t.finished = true
	return errs.NewDriverError("COMMIT", t.tx.Commit())
}

// Rollback 回滚事务，已结束的事务直接返回
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return nil
	}
	t.finished = true
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return errs.NewDriverError("ROLLBACK", err)
}

// Release 归还连接，未结束的事务先回滚，可重复调用
func (t *Transaction) Release() error {
	if err := t.Rollback(); err != nil {
		t.executor.logger.Warn("rollback before release failed", "transaction", t.id, "error", err.Error())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil
	}
	t.released = true
	return t.conn.Close()
}

func (t *Transaction) active() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return errs.Statef("transaction %s already finished", t.id)
	}
	return nil
}
