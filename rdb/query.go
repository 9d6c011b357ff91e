package rdb

import (
	"context"
	"time"

	"github.com/hatlonely/recordx/cfg"
	"github.com/hatlonely/recordx/cfg/validator"
	"github.com/hatlonely/recordx/log/logger"
	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/hatlonely/recordx/rdb/executor"
	"github.com/hatlonely/recordx/rdb/schema"
	"github.com/pkg/errors"
)

// Options Query 配置
type Options struct {
	Executor executor.Options `cfg:"executor"`
	// Introspector 表结构来源：information_schema, result_set, sqlite
	Introspector string `cfg:"introspector" def:"information_schema" validate:"oneof=information_schema result_set sqlite"`
	// Logger 为空时使用执行器的日志器
	Logger *logger.SLogOptions `cfg:"logger"`
}

// Runner 执行 SQL，*executor.Executor 与 *executor.Transaction 均满足
type Runner interface {
	Raw(ctx context.Context, fragments ...string) (*executor.RowSet, error)
	Send(ctx context.Context, fragments ...string) (*executor.Result, error)
}

// Query 数据访问入口，持有执行器与表结构缓存，可并发使用
type Query struct {
	executor *executor.Executor
	runner   Runner
	catalog  *schema.Catalog
	logger   logger.Logger
	tx       *executor.Transaction
}

// NewIntrospector 按名称创建表结构内省器
func NewIntrospector(name string) (schema.Introspector, error) {
	switch name {
	case "", "information_schema":
		return schema.InformationSchemaIntrospector{}, nil
	case "result_set":
		return schema.ResultSetIntrospector{}, nil
	case "sqlite":
		return schema.SQLiteIntrospector{}, nil
	}
	return nil, errs.Validationf("unknown introspector %q", name)
}

// New 根据配置创建 Query，opts 透传给执行器
func New(options *Options, opts ...executor.ExecutorOption) (*Query, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, errors.WithMessage(err, "cfg.SetDefaults failed")
	}
	if err := validator.ValidateStruct(options); err != nil {
		return nil, errors.WithMessage(err, "validator.ValidateStruct failed")
	}

	introspector, err := NewIntrospector(options.Introspector)
	if err != nil {
		return nil, err
	}

	if options.Logger != nil {
		l, err := logger.NewSLogWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "logger.NewSLogWithOptions failed")
		}
		opts = append([]executor.ExecutorOption{executor.WithLogger(l)}, opts...)
	}

	exec, err := executor.NewExecutorWithOptions(&options.Executor, opts...)
	if err != nil {
		return nil, errors.WithMessage(err, "executor.NewExecutorWithOptions failed")
	}

	return NewWithExecutor(exec, introspector), nil
}

// NewWithExecutor 使用已创建的执行器，introspector 为空时使用 INFORMATION_SCHEMA
func NewWithExecutor(exec *executor.Executor, introspector schema.Introspector) *Query {
	l := exec.Logger()
	return &Query{
		executor: exec,
		runner:   exec,
		catalog:  schema.NewCatalog(exec, introspector, schema.WithCatalogLogger(l.WithGroup("catalog"))),
		logger:   l,
	}
}

// InTransaction 返回绑定到 tx 的 Query，构造器产生的语句都在 tx 中执行
//
// 表结构缓存与原 Query 共享，内省查询仍走连接池
func (q *Query) InTransaction(tx *executor.Transaction) *Query {
	c := *q
	c.runner = tx
	c.tx = tx
	return &c
}

// Transaction 当前绑定的事务，未绑定时为 nil
func (q *Query) Transaction() *executor.Transaction {
	return q.tx
}

func (q *Query) Executor() *executor.Executor {
	return q.executor
}

func (q *Query) Catalog() *schema.Catalog {
	return q.catalog
}

func (q *Query) Logger() logger.Logger {
	return q.logger
}

// Recordset 创建 SELECT 构造器
func (q *Query) Recordset() *Recordset {
	return &Recordset{query: q}
}

// RecordUpdater 创建 UPDATE 构造器
func (q *Query) RecordUpdater() *RecordUpdater {
	return &RecordUpdater{query: q}
}

// RecordDeleter 创建 DELETE 构造器
func (q *Query) RecordDeleter() *RecordDeleter {
	return &RecordDeleter{query: q}
}

// GetRecordset 在回调中配置 Recordset 并执行
func (q *Query) GetRecordset(ctx context.Context, fn func(rs *Recordset)) (*Result, error) {
	rs := q.Recordset()
	fn(rs)
	return rs.Fetch(ctx)
}

// GetRecordUpdater 在回调中配置 RecordUpdater 并执行
func (q *Query) GetRecordUpdater(ctx context.Context, fn func(ru *RecordUpdater)) (*executor.Result, error) {
	ru := q.RecordUpdater()
	fn(ru)
	return ru.Fetch(ctx)
}

// GetRecordDeleter 在回调中配置 RecordDeleter 并执行
func (q *Query) GetRecordDeleter(ctx context.Context, fn func(rd *RecordDeleter)) (*executor.Result, error) {
	rd := q.RecordDeleter()
	fn(rd)
	return rd.Fetch(ctx)
}

// Raw 执行查询并返回驱动原始值
func (q *Query) Raw(ctx context.Context, fragments ...string) (*executor.RowSet, error) {
	return q.runner.Raw(ctx, fragments...)
}

// Send 执行非查询语句
func (q *Query) Send(ctx context.Context, fragments ...string) (*executor.Result, error) {
	return q.runner.Send(ctx, fragments...)
}

// GetTransaction 获取一个事务，调用方负责 Commit/Rollback 并 Release
func (q *Query) GetTransaction(ctx context.Context) (*executor.Transaction, error) {
	return q.executor.GetTransaction(ctx)
}

// WithTransaction 在事务中执行 fn，fn 收到绑定到该事务的 Query
//
// fn 返回 nil 时提交，返回错误或 panic 时回滚，连接总会释放
func (q *Query) WithTransaction(ctx context.Context, fn func(tx *Query) error) error {
	if q.tx != nil {
		return errs.Statef("query is already bound to transaction %s", q.tx.ID())
	}
	return q.executor.WithTransaction(ctx, func(tx *executor.Transaction) error {
		return fn(q.InTransaction(tx))
	})
}

// IsTablePresent 通过 INFORMATION_SCHEMA.TABLES 判断表是否存在
func (q *Query) IsTablePresent(ctx context.Context, database, table string) (bool, error) {
	result, err := q.GetRecordset(ctx, func(rs *Recordset) {
		rs.Select("1").
			From("INFORMATION_SCHEMA", "TABLES").
			Where("TABLE_SCHEMA = %s", database).
			Where("TABLE_NAME = %s", table)
	})
	if err != nil {
		return false, err
	}
	return result.Len() != 0, nil
}

// GetCondition 只构造 WHERE 条件，用于拼接到其他语句中
func (q *Query) GetCondition(fn func(rs *Recordset)) (string, error) {
	rs := q.Recordset()
	fn(rs)
	return rs.ToCondition()
}

// GetDefinition 返回表定义
func (q *Query) GetDefinition(ctx context.Context, database, table string) (*schema.TableDefinition, error) {
	return q.catalog.GetDefinition(ctx, database, table)
}

// InvalidateDefinition 清除一张表的定义缓存
func (q *Query) InvalidateDefinition(database, table string) {
	q.catalog.Invalidate(database, table)
}

// InvalidateAllDefinitions 清除全部定义缓存
func (q *Query) InvalidateAllDefinitions() {
	q.catalog.InvalidateAll()
}

func (q *Query) SetLogThreshold(threshold time.Duration) {
	q.executor.SetLogThreshold(threshold)
}

func (q *Query) DisableLogThreshold() {
	q.executor.DisableLogThreshold()
}

// Close 关闭连接池
func (q *Query) Close() error {
	return q.executor.Close()
}

func (q *Query) EscapeString(s string) string {
	return codec.EscapeString(s)
}

func (q *Query) EscapeLikeString(s string) string {
	return codec.EscapeLikeString(s)
}

func (q *Query) EscapeIdentifier(s string) string {
	return codec.EscapeIdentifier(s)
}

// ParseFormatSymbol 渲染单个格式符号，symbol 不含 %
func (q *Query) ParseFormatSymbol(symbol string, value any) (string, error) {
	return codec.ParseFormatSymbol(symbol, value)
}
