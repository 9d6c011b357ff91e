package executor

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/bytedance/mockey"
	"github.com/hatlonely/recordx/log/logger"
	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

var dbSeq atomic.Int64

// newTestExecutor 每次调用使用独立的内存库
func newTestExecutor(t *testing.T, opts ...ExecutorOption) *Executor {
	t.Helper()
	name := fmt.Sprintf("%s_%d", strings.ReplaceAll(t.Name(), "/", "_"), dbSeq.Add(1))
	e, err := NewExecutorWithOptions(&Options{
		Driver:   "sqlite3",
		DSN:      fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", name),
		MaxConns: 1,
		MaxIdle:  1,
	}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Close() })

	_, err = e.Send(context.Background(),
		"CREATE TABLE IF NOT EXISTS users (",
		"  id INTEGER PRIMARY KEY AUTOINCREMENT,",
		"  name VARCHAR(64) NOT NULL,",
		"  created DATETIME",
		")",
	)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOptionsFormatDSN(t *testing.T) {
	Convey("测试 Options.FormatDSN", t, func() {
		Convey("指定 DSN 时直接返回", func() {
			dsn, err := (&Options{DSN: "user@tcp(db:3306)/x"}).FormatDSN()
			So(err, ShouldBeNil)
			So(dsn, ShouldEqual, "user@tcp(db:3306)/x")
		})

		Convey("tcp 连接", func() {
			dsn, err := (&Options{
				Driver:   "mysql",
				Host:     "db.internal",
				Port:     3307,
				Username: "app",
				Password: "secret",
				Database: "shop",
				Charset:  "utf8mb4",
			}).FormatDSN()
			So(err, ShouldBeNil)
			So(dsn, ShouldStartWith, "app:secret@tcp(db.internal:3307)/shop?")
			So(dsn, ShouldContainSubstring, "parseTime=true")
			So(dsn, ShouldContainSubstring, "charset=utf8mb4")
		})

		Convey("unix socket 优先", func() {
			dsn, err := (&Options{
				Driver:   "mysql",
				Host:     "ignored",
				Port:     3306,
				Socket:   "/run/mysqld/mysqld.sock",
				Username: "app",
			}).FormatDSN()
			So(err, ShouldBeNil)
			So(dsn, ShouldStartWith, "app@unix(/run/mysqld/mysqld.sock)/")
		})

		Convey("sqlite3 需要 database", func() {
			_, err := (&Options{Driver: "sqlite3"}).FormatDSN()
			So(err, ShouldNotBeNil)
		})
	})
}

func TestNewExecutorWithOptions(t *testing.T) {
	Convey("测试 NewExecutorWithOptions", t, func() {
		Convey("options 为空", func() {
			_, err := NewExecutorWithOptions(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("驱动不合法", func() {
			_, err := NewExecutorWithOptions(&Options{Driver: "postgres", DSN: "x"})
			So(err, ShouldNotBeNil)
		})

		Convey("默认值生效", func() {
			options := &Options{Driver: "sqlite3", Database: "file:defaults?mode=memory&cache=shared"}
			e, err := NewExecutorWithOptions(options)
			So(err, ShouldBeNil)
			defer e.Close()
			So(options.MaxConns, ShouldEqual, 25)
			So(options.Name, ShouldEqual, "rdb")
			So(options.Logger, ShouldBeNil)
			So(e.Driver(), ShouldEqual, "sqlite3")
			So(e.LogThreshold(), ShouldEqual, 0)
		})
	})
}

func TestExecutorRawSend(t *testing.T) {
	Convey("测试 Executor.Raw/Send", t, func() {
		e := newTestExecutor(t)
		ctx := context.Background()

		Convey("插入后查询", func() {
			res, err := e.Send(ctx, "INSERT INTO users (name, created) VALUES ('alice', '2024-01-02 03:04:05')")
			So(err, ShouldBeNil)
			So(res.RowsAffected, ShouldEqual, 1)
			So(res.LastInsertID, ShouldBeGreaterThan, 0)

			rs, err := e.Raw(ctx, "SELECT id, name, created", "FROM users", "WHERE name = 'alice'")
			So(err, ShouldBeNil)
			So(rs.Len(), ShouldEqual, 1)
			So(fmt.Sprintf("%s", rs.Rows[0]["name"]), ShouldEqual, "alice")
			So(rs.Rows[0]["id"], ShouldEqual, res.LastInsertID)

			column, ok := rs.Column("name")
			So(ok, ShouldBeTrue)
			So(column.Type, ShouldEqual, codec.TypeVarString)
			column, ok = rs.Column("id")
			So(ok, ShouldBeTrue)
			So(column.Type, ShouldEqual, codec.TypeLongLong)
			_, ok = rs.Column("missing")
			So(ok, ShouldBeFalse)
		})

		Convey("空结果集", func() {
			rs, err := e.Raw(ctx, "SELECT * FROM users WHERE 1 = 0")
			So(err, ShouldBeNil)
			So(rs.Len(), ShouldEqual, 0)
			So(rs.Rows, ShouldNotBeNil)
			So(len(rs.Columns), ShouldEqual, 3)
		})

		Convey("语法错误包装为 DriverError 并保留 SQL", func() {
			_, err := e.Raw(ctx, "SELEC 1")
			So(err, ShouldNotBeNil)
			So(errors.Is(err, errs.ErrDriver), ShouldBeTrue)
			So(errors.Is(err, errs.ErrDuplicateKey), ShouldBeFalse)

			var de *errs.DriverError
			So(errors.As(err, &de), ShouldBeTrue)
			So(de.SQL, ShouldEqual, "SELEC 1")
		})
	})
}

func TestExecutorObserve(t *testing.T) {
	Convey("测试 Executor 观测", t, func() {
		var buf bytes.Buffer
		l, err := logger.NewSLogWithWriter(&logger.SLogOptions{Level: "warn", Format: "json"}, &buf)
		So(err, ShouldBeNil)
		registry := prometheus.NewRegistry()

		e := newTestExecutor(t, WithLogger(l), WithRegisterer(registry))
		e.metrics = NewMetrics("observe_test", registry)
		ctx := context.Background()

		Convey("超过阈值时输出告警", func() {
			e.SetLogThreshold(time.Nanosecond)
			_, err := e.Raw(ctx, "SELECT name FROM users")
			So(err, ShouldBeNil)

			var entry map[string]any
			So(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), ShouldBeNil)
			So(entry["msg"], ShouldEqual, "query time threshold exceeded")
			So(entry["operation"], ShouldEqual, "raw")
			So(entry["sql"], ShouldEqual, "SELECT name FROM users")
			So(entry, ShouldContainKey, "connection_ms")
			So(entry, ShouldContainKey, "query_ms")
			So(entry, ShouldContainKey, "cleanup_ms")
			So(entry, ShouldContainKey, "full_ms")
			So(testutil.ToFloat64(e.metrics.slowQueries.WithLabelValues("raw")), ShouldEqual, 1)
		})

		Convey("关闭阈值后不输出", func() {
			e.SetLogThreshold(time.Nanosecond)
			e.DisableLogThreshold()
			So(e.LogThreshold(), ShouldEqual, 0)
			_, err := e.Raw(ctx, "SELECT name FROM users")
			So(err, ShouldBeNil)
			So(buf.Len(), ShouldEqual, 0)
		})

		Convey("按操作与状态计数", func() {
			_, _ = e.Raw(ctx, "SELECT 1")
			_, _ = e.Raw(ctx, "SELECT * FROM missing_table")
			_, _ = e.Send(ctx, "DELETE FROM users")

			So(testutil.ToFloat64(e.metrics.operationCounter.WithLabelValues("raw", "success")), ShouldEqual, 1)
			So(testutil.ToFloat64(e.metrics.operationCounter.WithLabelValues("raw", "error")), ShouldEqual, 1)
			So(testutil.ToFloat64(e.metrics.operationCounter.WithLabelValues("send", "success")), ShouldEqual, 1)
			So(testutil.ToFloat64(e.metrics.activeOperations.WithLabelValues("raw")), ShouldEqual, 0)
			So(buf.String(), ShouldContainSubstring, "sql operation failed")
		})

		Convey("重复注册复用已有指标", func() {
			m := NewMetrics("observe_test", registry)
			So(m.operationCounter, ShouldEqual, e.metrics.operationCounter)
		})
	})
}

func TestExecutorAcquireFailure(t *testing.T) {
	PatchConvey("测试获取连接失败", t, func() {
		e := newTestExecutor(t)
		Mock((*sql.DB).Conn).Return(nil, errors.New("pool exhausted")).Build()

		_, err := e.Raw(context.Background(), "SELECT 1")
		So(err, ShouldNotBeNil)
		So(errors.Is(err, errs.ErrDriver), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "pool exhausted")

		_, err = e.GetTransaction(context.Background())
		So(err, ShouldNotBeNil)
	})
}

func TestTransaction(t *testing.T) {
	Convey("测试 Transaction", t, func() {
		e := newTestExecutor(t)
		ctx := context.Background()
		count := func() int64 {
			rs, err := e.Raw(ctx, "SELECT COUNT(*) AS n FROM users")
			So(err, ShouldBeNil)
			return rs.Rows[0]["n"].(int64)
		}

		Convey("fn 返回 nil 时提交", func() {
			var id string
			err := e.WithTransaction(ctx, func(tx *Transaction) error {
				id = tx.ID()
				_, err := tx.Send(ctx, "INSERT INTO users (name) VALUES ('bob')")
				if err != nil {
					return err
				}
				rs, err := tx.Raw(ctx, "SELECT COUNT(*) AS n FROM users")
				if err != nil {
					return err
				}
				if rs.Rows[0]["n"].(int64) != 1 {
					return errors.New("insert not visible inside transaction")
				}
				return nil
			})
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)
			So(count(), ShouldEqual, 1)
		})

		Convey("fn 返回错误时回滚", func() {
			err := e.WithTransaction(ctx, func(tx *Transaction) error {
				if _, err := tx.Send(ctx, "INSERT INTO users (name) VALUES ('carol')"); err != nil {
					return err
				}
				return errors.New("abort")
			})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldEqual, "abort")
			So(count(), ShouldEqual, 0)
		})

		Convey("panic 时回滚并继续抛出", func() {
			So(func() {
				_ = e.WithTransaction(ctx, func(tx *Transaction) error {
					_, _ = tx.Send(ctx, "INSERT INTO users (name) VALUES ('dave')")
					panic("boom")
				})
			}, ShouldPanicWith, "boom")
			So(count(), ShouldEqual, 0)
		})

		Convey("结束后的事务不可再用", func() {
			tx, err := e.GetTransaction(ctx)
			So(err, ShouldBeNil)
			So(tx.Commit(), ShouldBeNil)

			So(errors.Is(tx.Commit(), errs.ErrState), ShouldBeTrue)
			So(tx.Rollback(), ShouldBeNil)
			_, err = tx.Raw(ctx, "SELECT 1")
			So(errors.Is(err, errs.ErrState), ShouldBeTrue)
			_, err = tx.Send(ctx, "DELETE FROM users")
			So(errors.Is(err, errs.ErrState), ShouldBeTrue)

			So(tx.Release(), ShouldBeNil)
			So(tx.Release(), ShouldBeNil)
		})

		Convey("Release 回滚未结束的事务", func() {
			tx, err := e.GetTransaction(ctx)
			So(err, ShouldBeNil)
			_, err = tx.Send(ctx, "INSERT INTO users (name) VALUES ('erin')")
			So(err, ShouldBeNil)
			So(tx.Release(), ShouldBeNil)
			So(count(), ShouldEqual, 0)
		})
	})
}
