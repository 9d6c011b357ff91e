package schema

import (
	"context"
	"sync"

	"github.com/hatlonely/recordx/log"
	"github.com/hatlonely/recordx/log/logger"
	"golang.org/x/sync/singleflight"
)

// Catalog 表定义缓存
//
// 同一张表的并发请求共享一次内省查询，得到同一个 *TableDefinition。内省失败不缓存
type Catalog struct {
	querier      Querier
	introspector Introspector
	logger       logger.Logger

	mu    sync.RWMutex
	cache map[string]*TableDefinition
	group singleflight.Group
}

// CatalogOption 构造选项
type CatalogOption func(*Catalog)

// WithCatalogLogger 指定日志器
func WithCatalogLogger(l logger.Logger) CatalogOption {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCatalog introspector 为空时使用 InformationSchemaIntrospector
func NewCatalog(querier Querier, introspector Introspector, opts ...CatalogOption) *Catalog {
	if introspector == nil {
		introspector = InformationSchemaIntrospector{}
	}
	c := &Catalog{
		querier:      querier,
		introspector: introspector,
		logger:       log.Default(),
		cache:        map[string]*TableDefinition{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(database, table string) string {
	return database + "." + table
}

// GetDefinition 返回表定义，未缓存时内省
//
// 调用方的 ctx 取消只影响自己的等待，不会中断其他调用方共享的内省查询
func (c *Catalog) GetDefinition(ctx context.Context, database, table string) (*TableDefinition, error) {
	key := cacheKey(database, table)
	if def, ok := c.lookup(key); ok {
		return def, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if def, ok := c.lookup(key); ok {
			return def, nil
		}

		infos, err := c.introspector.Introspect(context.WithoutCancel(ctx), c.querier, database, table)
		if err != nil {
			return nil, err
		}

		columns := make([]*ColumnDefinition, len(infos))
		for i, info := range infos {
			columns[i] = NewColumnDefinition(info.Name, info.Type, info.Flags)
		}
		def := NewTableDefinition(database, table, columns)

		c.mu.Lock()
		c.cache[key] = def
		c.mu.Unlock()

		c.logger.DebugContext(ctx, "table definition loaded", "table", key, "columns", len(columns))
		return def, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*TableDefinition), nil
	}
}

func (c *Catalog) lookup(key string) (*TableDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.cache[key]
	return def, ok
}

// Invalidate 清除一张表的缓存，进行中的内省不受影响
func (c *Catalog) Invalidate(database, table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, cacheKey(database, table))
}

// InvalidateAll 清除全部缓存
func (c *Catalog) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = map[string]*TableDefinition{}
}

// Cached 返回当前已缓存的表，按 "database.table" 索引
func (c *Catalog) Cached() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.cache))
	for key := range c.cache {
		keys = append(keys, key)
	}
	return keys
}
