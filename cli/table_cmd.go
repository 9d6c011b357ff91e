package cli

import (
	"fmt"
	"strings"

	"github.com/hatlonely/recordx/rdb"
	"github.com/spf13/cobra"
)

// splitTablePath db.table 拆分为库名与表名，只给出表名时使用 --database
func splitTablePath(path, database string) (string, string, error) {
	db, table, ok := strings.Cut(path, ".")
	if !ok {
		if database == "" {
			return "", "", fmt.Errorf("invalid table path %q: expected database.table or --database", path)
		}
		return database, path, nil
	}
	if db == "" || table == "" {
		return "", "", fmt.Errorf("invalid table path %q: expected database.table", path)
	}
	return db, table, nil
}

func newDescribeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <database.table>",
		Short: "Show the column definitions of a table",
		Example: `  rdbctl describe app.users
  rdbctl describe users --database app --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, table, err := splitTablePath(args[0], s.flags.database)
			if err != nil {
				return err
			}
			q, err := s.Query()
			if err != nil {
				return err
			}
			def, err := q.GetDefinition(cmd.Context(), db, table)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), def)
			}

			records := make([]rdb.Record, 0, len(def.Columns))
			for _, column := range def.Columns {
				records = append(records, rdb.Record{
					"COLUMN":      column.Name,
					"TYPE":        string(column.Type),
					"NOT NULL":    column.NotNull,
					"PRIMARY KEY": column.PrimaryKey,
					"UNSIGNED":    column.Unsigned,
				})
			}
			return printTable(cmd.OutOrStdout(), []string{"COLUMN", "TYPE", "NOT NULL", "PRIMARY KEY", "UNSIGNED"}, records)
		},
	}
}

func newPresentCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "present <database.table>",
		Short: "Check whether a table exists",
		Long: `Check whether a table exists through INFORMATION_SCHEMA.TABLES.

Prints true or false. The exit code is 0 in both cases.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, table, err := splitTablePath(args[0], s.flags.database)
			if err != nil {
				return err
			}
			q, err := s.Query()
			if err != nil {
				return err
			}
			ok, err := q.IsTablePresent(cmd.Context(), db, table)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"database": db, "table": table, "present": ok})
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}
