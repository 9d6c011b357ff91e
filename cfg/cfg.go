package cfg

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/hatlonely/recordx/cfg/decoder"
	"github.com/hatlonely/recordx/cfg/validator"
	"github.com/pkg/errors"
)

// Load 读取配置文件并写入 object，解码器由扩展名决定
func Load(path string, object any) error {
	d, err := decoder.NewDecoderForPath(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s failed", path)
	}

	m, err := d.Decode(data)
	if err != nil {
		return errors.WithMessagef(err, "decode config %s failed", path)
	}

	if err := Convert(m, object); err != nil {
		return errors.WithMessagef(err, "convert config %s failed", path)
	}
	return nil
}

// LoadOptions 依次应用默认值、配置文件、环境变量，最后校验
//
// path 为空时跳过配置文件
func LoadOptions(path string, object any) error {
	if err := SetDefaults(object); err != nil {
		return errors.WithMessage(err, "SetDefaults failed")
	}
	if path != "" {
		if err := Load(path, object); err != nil {
			return err
		}
	}
	if err := LoadEnv(object); err != nil {
		return errors.WithMessage(err, "LoadEnv failed")
	}
	if err := validator.ValidateStruct(object); err != nil {
		return errors.WithMessage(err, "validator.ValidateStruct failed")
	}
	return nil
}

// Watch 监听配置文件变化，文件被写入或重建时调用 onChange，ctx 结束后停止监听
//
// 监听的是文件所在目录，编辑器先写临时文件再 rename 的保存方式同样能触发
func Watch(ctx context.Context, path string, onChange func()) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "invalid config path")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		return errors.Wrap(err, "failed to add directory to watcher")
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					onChange()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return nil
}
