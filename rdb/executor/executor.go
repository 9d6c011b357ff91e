package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/hatlonely/recordx/cfg"
	"github.com/hatlonely/recordx/cfg/validator"
	"github.com/hatlonely/recordx/log"
	"github.com/hatlonely/recordx/log/logger"
	"github.com/hatlonely/recordx/rdb/errs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Executor 连接池访问、原始 SQL 执行与事务获取
type Executor struct {
	db        *sql.DB
	driver    string
	name      string
	logger    logger.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	threshold atomic.Int64

	registerer prometheus.Registerer
}

// ExecutorOption 构造选项
type ExecutorOption func(*Executor)

// WithLogger 指定日志器
func WithLogger(l logger.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRegisterer 指定指标注册器，默认使用 prometheus.DefaultRegisterer
func WithRegisterer(registerer prometheus.Registerer) ExecutorOption {
	return func(e *Executor) {
		e.registerer = registerer
	}
}

// NewExecutorWithOptions 根据配置打开连接池
func NewExecutorWithOptions(options *Options, opts ...ExecutorOption) (*Executor, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, errors.WithMessage(err, "cfg.SetDefaults failed")
	}
	if err := validator.ValidateStruct(options); err != nil {
		return nil, errors.WithMessage(err, "validator.ValidateStruct failed")
	}

	dsn, err := options.FormatDSN()
	if err != nil {
		return nil, errors.WithMessage(err, "options.FormatDSN failed")
	}

	db, err := sql.Open(options.Driver, dsn)
	if err != nil {
		return nil, errs.NewDriverError("", err)
	}
	db.SetMaxOpenConns(options.MaxConns)
	db.SetMaxIdleConns(options.MaxIdle)
	if options.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(options.ConnMaxLifetime)
	}

	e, err := NewExecutorWithDB(db, options, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errs.NewDriverError("", err)
	}

	return e, nil
}

// NewExecutorWithDB 包装调用方已创建的连接池
func NewExecutorWithDB(db *sql.DB, options *Options, opts ...ExecutorOption) (*Executor, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if options == nil {
		options = &Options{}
	}
	name := options.Name
	if name == "" {
		name = "rdb"
	}

	e := &Executor{
		db:         db,
		driver:     options.Driver,
		name:       name,
		logger:     log.Default(),
		registerer: prometheus.DefaultRegisterer,
	}

	if options.Logger != nil {
		l, err := logger.NewSLogWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "logger.NewSLogWithOptions failed")
		}
		e.logger = l
	}
	for _, opt := range opts {
		opt(e)
	}

	if options.EnableMetrics {
		e.metrics = NewMetrics(name, e.registerer)
	}
	if options.EnableTracing {
		e.tracer = otel.Tracer(fmt.Sprintf("rdb.%s", name))
	}
	e.threshold.Store(int64(options.LogThreshold))

	return e, nil
}

// DB 返回底层连接池
func (e *Executor) DB() *sql.DB {
	return e.db
}

// Driver 返回驱动名
func (e *Executor) Driver() string {
	return e.driver
}

// Logger 返回执行器使用的日志器
func (e *Executor) Logger() logger.Logger {
	return e.logger
}

// SetLogThreshold 设置慢查询告警阈值
func (e *Executor) SetLogThreshold(threshold time.Duration) {
	e.threshold.Store(int64(threshold))
}

// DisableLogThreshold 关闭慢查询告警
func (e *Executor) DisableLogThreshold() {
	e.threshold.Store(0)
}

// LogThreshold 当前慢查询告警阈值，0 表示关闭
func (e *Executor) LogThreshold() time.Duration {
	return time.Duration(e.threshold.Load())
}

// Raw 用换行拼接语句片段并执行查询，返回全部结果行
func (e *Executor) Raw(ctx context.Context, fragments ...string) (*RowSet, error) {
	sqlText := strings.Join(fragments, "\n")

	var rs *RowSet
	err := e.observe(ctx, "raw", sqlText, func(ctx context.Context, timing *Timing) error {
		conn, err := e.acquire(ctx, timing)
		if err != nil {
			return errs.NewDriverError(sqlText, err)
		}
		defer e.release(conn, timing)

		start := time.Now()
		rs, err = queryRows(ctx, conn, sqlText)
		timing.Query = time.Since(start)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// Send 执行不返回结果集的语句
func (e *Executor) Send(ctx context.Context, fragments ...string) (*Result, error) {
	sqlText := strings.Join(fragments, "\n")

	var result *Result
	err := e.observe(ctx, "send", sqlText, func(ctx context.Context, timing *Timing) error {
		conn, err := e.acquire(ctx, timing)
		if err != nil {
			return errs.NewDriverError(sqlText, err)
		}
		defer e.release(conn, timing)

		start := time.Now()
		result, err = execStatement(ctx, conn, sqlText)
		timing.Query = time.Since(start)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Executor) acquire(ctx context.Context, timing *Timing) (*sql.Conn, error) {
	start := time.Now()
	conn, err := e.db.Conn(ctx)
	timing.Acquire = time.Since(start)
	return conn, err
}

func (e *Executor) release(conn *sql.Conn, timing *Timing) {
	start := time.Now()
	if err := conn.Close(); err != nil {
		e.logger.Warn("release connection failed", "error", err.Error())
	}
	timing.Cleanup = time.Since(start)
}

// Close 关闭连接池
func (e *Executor) Close() error {
	return e.db.Close()
}
