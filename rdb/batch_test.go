package rdb

import (
	"context"
	"strings"
	"testing"

	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBatch(t *testing.T) {
	Convey("测试 Batch", t, func() {
		ctx := context.Background()
		q, counter := newTestQuery(t)

		batch, err := q.Batch(ctx, "main", "Tags", "Name", "ID")
		So(err, ShouldBeNil)
		So(batch.Columns(), ShouldResemble, []string{"ID", "Name"})

		Convey("空缓存不执行 SQL", func() {
			So(batch.Insert(ctx), ShouldBeNil)
			So(counter.Statements(), ShouldBeEmpty)
		})

		Convey("多行插入", func() {
			_, err := batch.Add(Record{"ID": 10, "Name": "redis"})
			So(err, ShouldBeNil)
			idx, err := batch.Add(Record{"Name": "kafka"})
			So(err, ShouldBeNil)
			So(idx, ShouldEqual, 1)

			So(batch.Insert(ctx), ShouldBeNil)
			So(batch.Len(), ShouldEqual, 0)
			So(counter.Statements(), ShouldResemble, []string{
				"INSERT INTO `main`.`Tags` (`ID`, `Name`) VALUES (10, 'redis'), (NULL, 'kafka')",
			})

			res, err := q.Recordset().Select("Name").From("main", "Tags").OrderBy("ID").Flat("Name").Fetch(ctx)
			So(err, ShouldBeNil)
			So(res.Values, ShouldResemble, []any{"go", "sql", "redis", "kafka"})
		})

		Convey("Delete / Find / Records", func() {
			for _, name := range []string{"a", "b", "c"} {
				_, err := batch.Add(Record{"Name": name})
				So(err, ShouldBeNil)
			}
			record, idx := batch.Find(func(r Record) bool { return r["Name"] == "b" })
			So(idx, ShouldEqual, 1)
			So(record["Name"], ShouldEqual, "b")

			So(batch.Delete(1), ShouldBeNil)
			_, idx = batch.Find(func(r Record) bool { return r["Name"] == "b" })
			So(idx, ShouldEqual, -1)
			So(batch.Records(), ShouldResemble, []Record{{"Name": "a"}, {"Name": "c"}})

			So(errors.Is(batch.Delete(5), errs.ErrValidation), ShouldBeTrue)

			batch.Clear()
			So(batch.Len(), ShouldEqual, 0)
		})

		Convey("重复键子句", func() {
			_, err := batch.Add(Record{"ID": 1, "Name": "golang"})
			So(err, ShouldBeNil)

			var gotRows [][]string
			var gotColumns []string
			err = batch.Insert(ctx, WithDuplicate(func(rows [][]string, columns []string) string {
				gotRows, gotColumns = rows, columns
				// sqlite 的 upsert 语法，MySQL 中为 ON DUPLICATE KEY UPDATE
				return "ON CONFLICT(ID) DO UPDATE SET Name = excluded.Name"
			}))
			So(err, ShouldBeNil)
			So(gotRows, ShouldResemble, [][]string{{"1", "'golang'"}})
			So(gotColumns, ShouldResemble, []string{"`ID`", "`Name`"})

			res, err := q.Recordset().Select("Name").From("main", "Tags").Where("ID = %n", 1).Flat("Name").Fetch(ctx)
			So(err, ShouldBeNil)
			So(res.Values, ShouldResemble, []any{"golang"})
		})

		Convey("参数错误时保留缓存", func() {
			_, err := batch.Add(Record{"Name": "x"})
			So(err, ShouldBeNil)
			err = batch.Insert(ctx, WithInsertIgnore(), WithDuplicate(func([][]string, []string) string { return "" }))
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			So(batch.Len(), ShouldEqual, 1)

			_, err = batch.Add(Record{"Name": make(chan int)})
			So(err, ShouldBeNil)
			err = batch.Insert(ctx)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			So(batch.Len(), ShouldEqual, 2)
			So(counter.Statements(), ShouldBeEmpty)
		})

		Convey("执行失败后清空缓存", func() {
			_, err := batch.Add(Record{"ID": 1, "Name": "dup"})
			So(err, ShouldBeNil)
			err = batch.Insert(ctx)
			So(errors.Is(err, errs.ErrDriver), ShouldBeTrue)
			So(strings.Contains(err.Error(), "batch insert into main.Tags"), ShouldBeTrue)
			So(batch.Len(), ShouldEqual, 0)

			_, err = batch.Add(Record{"ID": 2, "Name": "dup"})
			So(err, ShouldBeNil)
			So(batch.Insert(ctx, WithLogErrors()), ShouldBeNil)
			So(batch.Len(), ShouldEqual, 0)
		})

		Convey("列校验", func() {
			_, err := batch.Add(Record{"Missing": 1})
			So(errors.Is(err, errs.ErrSchema), ShouldBeTrue)

			_, err = q.Batch(ctx, "main", "Tags", "Missing")
			So(errors.Is(err, errs.ErrSchema), ShouldBeTrue)

			_, err = q.Batch(ctx, "main", "Tags")
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)

			_, err = q.Batch(ctx, "main", "Missing", "ID")
			So(errors.Is(err, errs.ErrSchema), ShouldBeTrue)
		})
	})
}
