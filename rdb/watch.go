package rdb

import (
	"context"

	"github.com/hatlonely/recordx/cfg"
	"github.com/pkg/errors"
)

// WatchConfig 监听配置文件，变化后重新加载 Options 并应用其中可在运行时调整的项
//
// 目前只有 executor.logThreshold 可以热更新，连接参数的变化需要重建 Query
func (q *Query) WatchConfig(ctx context.Context, path string) error {
	err := cfg.Watch(ctx, path, func() {
		var options Options
		if err := cfg.LoadOptions(path, &options); err != nil {
			q.logger.WarnContext(ctx, "reload config failed", "path", path, "error", err)
			return
		}
		q.applyOptions(ctx, &options)
	})
	if err != nil {
		return errors.WithMessage(err, "cfg.Watch failed")
	}
	return nil
}

func (q *Query) applyOptions(ctx context.Context, options *Options) {
	threshold := options.Executor.LogThreshold
	if threshold == q.executor.LogThreshold() {
		return
	}
	if threshold > 0 {
		q.executor.SetLogThreshold(threshold)
	} else {
		q.executor.DisableLogThreshold()
	}
	q.logger.InfoContext(ctx, "log threshold updated", "threshold", threshold.String())
}
