package executor

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hatlonely/recordx/log/logger"
	"github.com/pkg/errors"
)

// Options 连接池与执行器配置，环境变量与原有部署保持一致（MARIA_*）
type Options struct {
	// Driver 驱动：mysql, sqlite3（sqlite3 仅用于本地与测试）
	Driver string `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite3"`
	// DSN 设置后忽略 Host/Socket/Port 等连接参数
	DSN string `cfg:"dsn"`

	Host     string `cfg:"host" env:"MARIA_HOST" def:"localhost"`
	Socket   string `cfg:"socket" env:"MARIA_SOCKET_PATH"`
	Port     int    `cfg:"port" env:"MARIA_PORT" def:"3306" validate:"gte=1,lte=65535"`
	Username string `cfg:"username" env:"MARIA_USER"`
	Password string `cfg:"password" env:"MARIA_PASSWORD"`
	Database string `cfg:"database"`
	Charset  string `cfg:"charset" def:"utf8mb4"`

	MaxConns        int           `cfg:"maxConns" env:"MARIA_CONNECTION_LIMIT" def:"25" validate:"gte=1"`
	MaxIdle         int           `cfg:"maxIdle" def:"5" validate:"gte=0"`
	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime"`

	// LogThreshold 查询总耗时超过该值时输出告警日志，0 表示关闭
	LogThreshold time.Duration `cfg:"logThreshold"`

	EnableMetrics bool   `cfg:"enableMetrics"`
	EnableTracing bool   `cfg:"enableTracing"`
	Name          string `cfg:"name" def:"rdb"`

	// Logger 为空时使用 log.Default()
	Logger *logger.SLogOptions `cfg:"logger"`
}

// FormatDSN 生成驱动连接串
func (o *Options) FormatDSN() (string, error) {
	if o.DSN != "" {
		return o.DSN, nil
	}

	switch o.Driver {
	case "mysql", "":
		config := mysql.NewConfig()
		config.User = o.Username
		config.Passwd = o.Password
		config.DBName = o.Database
		config.ParseTime = true
		config.Loc = time.Local
		if o.Charset != "" {
			config.Params = map[string]string{"charset": o.Charset}
		}
		if o.Socket != "" {
			config.Net = "unix"
			config.Addr = o.Socket
		} else {
			config.Net = "tcp"
			config.Addr = net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
		}
		return config.FormatDSN(), nil
	case "sqlite3":
		if o.Database == "" {
			return "", errors.New("sqlite3 requires database")
		}
		return o.Database, nil
	}

	return "", fmt.Errorf("unsupported driver: %s", o.Driver)
}
