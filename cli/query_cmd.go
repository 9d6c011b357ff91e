package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/hatlonely/recordx/rdb"
	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/hatlonely/recordx/rdb/filter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type selectFlags struct {
	fields  []string
	where   []string
	filter  string
	orderBy []string
	groupBy []string
	limit   int
	offset  int
	flat    string
	single  bool
	bigint  bool
}

// readFilter 以 @ 开头时从文件读取
func readFilter(value string) (filter.Filter, error) {
	data := []byte(value)
	if path, ok := strings.CutPrefix(value, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read filter %s failed", path)
		}
		data = b
	}
	return filter.Parse(data)
}

func newSelectCmd(s *session) *cobra.Command {
	flags := &selectFlags{}
	cmd := &cobra.Command{
		Use:   "select <database.table>",
		Short: "Select records from a table",
		Long: `Build a SELECT statement with the record set builder and print the result.

Values are converted by column type. --where takes a raw condition and may be
repeated; --filter takes a structured filter in JSON or YAML, or @file.`,
		Example: `  rdbctl select app.users --fields ID,Name --where "Active = 1" --order-by ID --limit 10
  rdbctl select app.users --filter '{"bool": {"must": [{"term": {"Active": true}}, {"range": {"Score": {"gte": 1}}}]}}'
  rdbctl select app.users --flat Name --output json`,
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

			rs := q.Recordset().Select(flags.fields...).From(db, table).GroupBy(flags.groupBy...).OrderBy(flags.orderBy...)
			for _, where := range flags.where {
				rs.WhereRaw(where)
			}
			if flags.filter != "" {
				f, err := readFilter(flags.filter)
				if err != nil {
					return err
				}
				rs.WhereFilter(f)
			}
			if flags.limit > 0 {
				rs.Limit(flags.limit)
			}
			if flags.offset > 0 {
				rs.Offset(flags.offset)
			}
			if flags.flat != "" {
				rs.Flat(flags.flat)
			}
			if flags.single {
				rs.Single()
			}
			if flags.bigint {
				rs.Use(rdb.OptionBigInt, true)
			}

			result, err := rs.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd, flags.fields, result)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&flags.fields, "fields", []string{"*"}, "selected fields")
	f.StringArrayVar(&flags.where, "where", nil, "raw WHERE condition, repeatable")
	f.StringVar(&flags.filter, "filter", "", "structured filter in JSON or YAML, @file to read from file")
	f.StringSliceVar(&flags.orderBy, "order-by", nil, "ORDER BY fields")
	f.StringSliceVar(&flags.groupBy, "group-by", nil, "GROUP BY fields")
	f.IntVar(&flags.limit, "limit", 0, "LIMIT")
	f.IntVar(&flags.offset, "offset", 0, "OFFSET, requires --limit")
	f.StringVar(&flags.flat, "flat", "", "print a single column as a list")
	f.BoolVar(&flags.single, "single", false, "keep only the first row")
	f.BoolVar(&flags.bigint, "bigint", false, "return integers as arbitrary precision")
	return cmd
}

func printResult(cmd *cobra.Command, order []string, result *rdb.Result) error {
	w := cmd.OutOrStdout()
	if result.Values != nil {
		if getOutputFormat(cmd) == "json" {
			return printJSON(w, result.Values)
		}
		for _, v := range result.Values {
			fmt.Fprintln(w, formatCell(v))
		}
		return nil
	}
	if getOutputFormat(cmd) == "json" {
		return printJSON(w, result.Records)
	}
	return printTable(w, recordColumns(order, result.Records), result.Records)
}

func newRawCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "raw <sql>...",
		Short: "Run a raw query and print the rows",
		Long: `Run a raw query. Multiple arguments are joined with spaces.

Values are converted by the column types reported by the driver.`,
		Example: `  rdbctl raw "SELECT ID, Name FROM app.users WHERE ID < 10"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := s.Query()
			if err != nil {
				return err
			}
			rows, err := q.Raw(cmd.Context(), args...)
			if err != nil {
				return err
			}

			columns := make([]string, 0, len(rows.Columns))
			records := make([]rdb.Record, 0, len(rows.Rows))
			for _, column := range rows.Columns {
				columns = append(columns, column.Name)
			}
			for _, row := range rows.Rows {
				record := make(rdb.Record, len(rows.Columns))
				for _, column := range rows.Columns {
					v, err := codec.SQLToValue(row[column.Name], column.Type, false)
					if err != nil {
						return errors.WithMessagef(err, "column %s", column.Name)
					}
					record[column.Name] = v
				}
				records = append(records, record)
			}
			return printResult(cmd, columns, &rdb.Result{Records: records})
		},
	}
}

func newExecCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <sql>...",
		Short: "Execute a statement and print the affected rows",
		Example: `  rdbctl exec "UPDATE app.users SET Active = 0 WHERE ID = 3"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := s.Query()
			if err != nil {
				return err
			}
			result, err := q.Send(cmd.Context(), args...)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rows affected: %d, last insert id: %d\n", result.RowsAffected, result.LastInsertID)
			return nil
		},
	}
}

func newConditionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "condition <filter>",
		Short: "Render a structured filter as a WHERE condition",
		Long: `Render a structured filter as a WHERE condition without connecting to a database.

The filter is JSON or YAML in the {type: body} form, or @file to read from file.
Supported types: bool, term, match, range, exists, wildcard, prefix, regexp.`,
		Example: `  rdbctl condition '{"term": {"Name": ["Bob", "Alice"]}}'
  rdbctl condition @filter.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readFilter(args[0])
			if err != nil {
				return err
			}
			condition, err := f.Condition()
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{"type": string(f.Type()), "condition": condition})
			}
			fmt.Fprintln(cmd.OutOrStdout(), condition)
			return nil
		},
	}
}
