package rdb

import (
	"context"
	"testing"
	"time"

	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type nameUpdate struct {
	ID   int64
	Name any
}

func updateName(ru *RecordUpdater, row nameUpdate) {
	ru.Update("main", "Users").Set("Name", row.Name).Where("ID = %n", row.ID)
}

func fetchNames(ctx context.Context, q *Query) []any {
	res, err := q.Recordset().Select("Name").From("main", "Users").OrderBy("ID").Flat("Name").Fetch(ctx)
	So(err, ShouldBeNil)
	return res.Values
}

func TestBatchUpdate(t *testing.T) {
	Convey("测试 BatchUpdate", t, func() {
		ctx := context.Background()
		q, _ := newTestQuery(t)

		Convey("按分块执行", func() {
			rows := []nameUpdate{{1, "b1"}, {2, "a1"}, {3, "c1"}}
			results, err := BatchUpdate(ctx, q, rows, updateName, WithBatchSize(2))
			So(err, ShouldBeNil)
			So(results, ShouldResemble, ChunkResults{
				{Index: 0, Offset: 0, Size: 2},
				{Index: 1, Offset: 2, Size: 1},
			})
			So(results.Err(), ShouldBeNil)
			So(fetchNames(ctx, q), ShouldResemble, []any{"b1", "a1", "c1"})
		})

		Convey("失败的分块回滚，其他分块不受影响", func() {
			// Name 为 NOT NULL，第二行在执行时失败
			rows := []nameUpdate{{1, "b1"}, {2, nil}, {3, "c1"}}
			results, err := BatchUpdate(ctx, q, rows, updateName, WithBatchSize(2))
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 2)
			So(errors.Is(results[0].Err, errs.ErrDriver), ShouldBeTrue)
			So(results[1].Err, ShouldBeNil)
			So(results.Failed(), ShouldEqual, 1)
			So(results.Err().Error(), ShouldStartWith, "chunk 0 (rows 0-1)")
			So(fetchNames(ctx, q), ShouldResemble, []any{"Bob", "Alice", "c1"})
		})

		Convey("生成失败时不执行任何 SQL", func() {
			rows := []nameUpdate{{1, "b1"}, {2, 3}}
			results, err := BatchUpdate(ctx, q, rows, func(ru *RecordUpdater, row nameUpdate) {
				ru.Update("main", "Users").Set("Active", row.Name).Where("ID = %n", row.ID)
			})
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			So(results, ShouldBeNil)
			So(fetchNames(ctx, q), ShouldResemble, []any{"Bob", "Alice", "Carol"})
		})

		Convey("错开执行", func() {
			rows := []nameUpdate{{1, "b1"}, {2, "a1"}, {3, "c1"}}
			results, err := BatchUpdate(ctx, q, rows, updateName, WithBatchSize(1), WithStaggerDelay(10*time.Millisecond))
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 3)
			So(results.Err(), ShouldBeNil)
			So(fetchNames(ctx, q), ShouldResemble, []any{"b1", "a1", "c1"})
		})

		Convey("ctx 取消后未执行的分块", func() {
			_, err := q.GetDefinition(ctx, "main", "Users")
			So(err, ShouldBeNil)

			cctx, cancel := context.WithCancel(ctx)
			cancel()
			rows := []nameUpdate{{1, "b1"}, {2, "a1"}}
			results, err := BatchUpdate(cctx, q, rows, updateName, WithBatchSize(1), WithStaggerDelay(time.Hour))
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 2)
			for _, r := range results {
				So(errors.Is(r.Err, context.Canceled), ShouldBeTrue)
			}
			So(fetchNames(ctx, q), ShouldResemble, []any{"Bob", "Alice", "Carol"})
		})

		Convey("空输入", func() {
			results, err := BatchUpdate(ctx, q, []nameUpdate{}, updateName)
			So(err, ShouldBeNil)
			So(results, ShouldBeEmpty)
			So(results.Err(), ShouldBeNil)
		})

		Convey("参数错误", func() {
			_, err := BatchUpdate(ctx, q, []nameUpdate{{1, "x"}}, updateName, WithBatchSize(0))
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)

			_, err = BatchUpdate(ctx, q, []nameUpdate{{1, "x"}}, updateName, WithStaggerDelay(-time.Second))
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)

			_, err = q.GetDefinition(ctx, "main", "Users")
			So(err, ShouldBeNil)
			err = q.WithTransaction(ctx, func(tx *Query) error {
				_, err := BatchUpdate(ctx, tx, []nameUpdate{{1, "x"}}, updateName)
				return err
			})
			So(errors.Is(err, errs.ErrState), ShouldBeTrue)
		})
	})
}
