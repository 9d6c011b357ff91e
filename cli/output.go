package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hatlonely/recordx/rdb"
	"github.com/hatlonely/recordx/rdb/codec"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "json encode failed")
	}
	return nil
}

// printTable 按 columns 顺序输出，NULL 输出为 NULL
func printTable(w io.Writer, columns []string, records []rdb.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, record := range records {
		cells := make([]string, len(columns))
		for i, column := range columns {
			cells[i] = formatCell(record[column])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case *big.Int:
		return v.String()
	case time.Time:
		return v.Format(codec.DatetimeLayout)
	case []rdb.Record, rdb.Record, map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}

// recordColumns 取第一条记录的键，保持 order 中出现的顺序，其余按字典序追加
func recordColumns(order []string, records []rdb.Record) []string {
	if len(records) == 0 {
		return order
	}
	seen := map[string]bool{}
	columns := make([]string, 0, len(records[0]))
	for _, column := range order {
		if _, ok := records[0][column]; ok && !seen[column] {
			seen[column] = true
			columns = append(columns, column)
		}
	}
	rest := make([]string, 0, len(records[0]))
	for column := range records[0] {
		if !seen[column] {
			rest = append(rest, column)
		}
	}
	sort.Strings(rest)
	return append(columns, rest...)
}
