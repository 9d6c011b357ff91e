package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hatlonely/recordx/cfg"
	"github.com/hatlonely/recordx/log/logger"
	"github.com/hatlonely/recordx/rdb"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Execute 运行 rdbctl，返回进程退出码
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if getOutputFormat(rootCmd) == "json" {
			data, _ := json.Marshal(map[string]string{"error": err.Error()})
			fmt.Fprintln(os.Stderr, string(data))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

type rootFlags struct {
	config       string
	driver       string
	dsn          string
	database     string
	introspector string
	logLevel     string
	output       string
}

// session 命令执行期间共享的 Query，首次使用时创建
type session struct {
	flags *rootFlags
	query *rdb.Query
}

func (s *session) Query() (*rdb.Query, error) {
	if s.query != nil {
		return s.query, nil
	}

	options := &rdb.Options{}
	if err := cfg.LoadOptions(s.flags.config, options); err != nil {
		return nil, errors.WithMessage(err, "load options failed")
	}
	if s.flags.driver != "" {
		options.Executor.Driver = s.flags.driver
	}
	if s.flags.dsn != "" {
		options.Executor.DSN = s.flags.dsn
	}
	if s.flags.database != "" {
		options.Executor.Database = s.flags.database
	}
	if s.flags.introspector != "" {
		options.Introspector = s.flags.introspector
	}
	if s.flags.logLevel != "" {
		options.Logger = &logger.SLogOptions{Level: s.flags.logLevel, Format: "text"}
	}

	q, err := rdb.New(options)
	if err != nil {
		return nil, err
	}
	s.query = q
	return q, nil
}

func (s *session) Close() error {
	if s.query == nil {
		return nil
	}
	err := s.query.Close()
	s.query = nil
	return err
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	s := &session{flags: flags}

	rootCmd := &cobra.Command{
		Use:   "rdbctl",
		Short: "Inspect and query MySQL tables from the command line",
		Long: `rdbctl exposes the rdb access layer as a command line tool.

Connection settings come from --config (yaml, json, toml or ini), environment
variables and finally the connection flags, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutputFormat(flags.output)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return s.Close()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "config file")
	pf.StringVar(&flags.driver, "driver", "", "database driver: mysql, sqlite3")
	pf.StringVar(&flags.dsn, "dsn", "", "data source name, overrides host/port settings")
	pf.StringVar(&flags.database, "database", "", "default database")
	pf.StringVar(&flags.introspector, "introspector", "", "schema source: information_schema, result_set, sqlite")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVarP(&flags.output, "output", "o", "table", "output format: table, json")

	rootCmd.AddCommand(
		newDescribeCmd(s),
		newPresentCmd(s),
		newSelectCmd(s),
		newRawCmd(s),
		newExecCmd(s),
		newConditionCmd(),
	)
	return rootCmd
}
