package codec

import (
	"database/sql"
	"math"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/hatlonely/recordx/rdb/errs"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sbDate struct {
	t time.Time
}

func (d sbDate) Time() time.Time {
	return d.t
}

// unquote 模拟驱动以文本形式返回字面量
func unquote(literal string) []byte {
	return []byte(strings.Trim(literal, "'"))
}

func TestValueToSQL(t *testing.T) {
	Convey("测试 ValueToSQL", t, func() {
		ts := time.Date(2024, 3, 5, 7, 8, 9, 123_000_000, time.Local)

		Convey("nil 渲染为 NULL", func() {
			s, err := ValueToSQL(nil, TypeVarString)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "NULL")

			var p *time.Time
			s, err = ValueToSQL(p, TypeDatetime)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "NULL")
		})

		Convey("TINY 要求 bool", func() {
			s, err := ValueToSQL(true, TypeTiny)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "1")
			s, err = ValueToSQL(false, TypeTiny)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "0")

			_, err = ValueToSQL(1, TypeTiny)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("日期类型按列类型格式化", func() {
			s, err := ValueToSQL(ts, TypeDate)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "'2024-03-05'")

			s, err = ValueToSQL(&ts, TypeDatetime)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "'2024-03-05 07:08:09.123'")

			s, err = ValueToSQL(sbDate{t: ts}, TypeTimestamp)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "'2024-03-05 07:08:09.123'")

			s, err = ValueToSQL(ts, TypeTime)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "'07:08:09.123'")

			_, err = ValueToSQL("2024-03-05", TypeDate)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("SET 接受字符串列表", func() {
			s, err := ValueToSQL([]string{"a", "b'c"}, TypeSet)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, `'a,b\'c'`)

			_, err = ValueToSQL(3, TypeSet)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("字符串转义并加引号", func() {
			s, err := ValueToSQL(`it's "x"`, TypeVarString)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, `'it\'s \"x\"'`)
		})

		Convey("数值原样输出", func() {
			s, err := ValueToSQL(int64(math.MaxInt64), TypeLongLong)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "9223372036854775807")

			s, err = ValueToSQL(uint64(math.MaxUint64), TypeLongLong)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "18446744073709551615")

			s, err = ValueToSQL(1.5, TypeDouble)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "1.5")

			s, err = ValueToSQL(new(big.Int).Lsh(big.NewInt(1), 70), TypeLongLong)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "1180591620717411303424")

			_, err = ValueToSQL(math.NaN(), TypeDouble)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("JSON 列序列化非字符串值", func() {
			s, err := ValueToSQL(map[string]any{"a": 1}, TypeJSON)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, `'{\"a\":1}'`)

			s, err = ValueToSQL(`{"a":1}`, TypeJSON)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, `'{\"a\":1}'`)
		})

		Convey("driver.Valuer 先取值", func() {
			s, err := ValueToSQL(sql.NullString{String: "x", Valid: true}, TypeVarString)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "'x'")

			s, err = ValueToSQL(sql.NullInt64{}, TypeLong)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "NULL")
		})

		Convey("二进制数据渲染为十六进制", func() {
			s, err := ValueToSQL([]byte{0xde, 0xad}, TypeBlob)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, "X'dead'")
		})

		Convey("不支持的类型报错", func() {
			_, err := ValueToSQL(struct{}{}, TypeVarString)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestSQLToValue(t *testing.T) {
	Convey("测试 SQLToValue", t, func() {
		Convey("NULL 返回 nil", func() {
			v, err := SQLToValue(nil, TypeTiny, false)
			So(err, ShouldBeNil)
			So(v, ShouldBeNil)
		})

		Convey("TINY 转为 bool", func() {
			for _, in := range []any{int64(1), []byte("1"), true} {
				v, err := SQLToValue(in, TypeTiny, false)
				So(err, ShouldBeNil)
				So(v, ShouldEqual, true)
			}
			v, err := SQLToValue(int64(2), TypeTiny, false)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, false)
		})

		Convey("LONGLONG 不截断", func() {
			v, err := SQLToValue([]byte("9223372036854775807"), TypeLongLong, false)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, int64(math.MaxInt64))

			v, err = SQLToValue([]byte("18446744073709551615"), TypeLongLong, false)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, uint64(math.MaxUint64))

			v, err = SQLToValue(int64(42), TypeLongLong, true)
			So(err, ShouldBeNil)
			So(v.(*big.Int).Int64(), ShouldEqual, 42)
		})

		Convey("日期文本解析为 time.Time", func() {
			v, err := SQLToValue([]byte("2024-03-05 07:08:09.123"), TypeDatetime, false)
			So(err, ShouldBeNil)
			So(v.(time.Time).Equal(time.Date(2024, 3, 5, 7, 8, 9, 123_000_000, time.Local)), ShouldBeTrue)

			v, err = SQLToValue([]byte("0000-00-00 00:00:00"), TypeDatetime, false)
			So(err, ShouldBeNil)
			So(v, ShouldBeNil)

			_, err = SQLToValue("yesterday", TypeDate, false)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("JSON 列解析", func() {
			v, err := SQLToValue([]byte(`{"a":[1,2]}`), TypeJSON, false)
			So(err, ShouldBeNil)
			So(v, ShouldResemble, map[string]any{"a": []any{1.0, 2.0}})
		})

		Convey("文本类型的字节转为字符串，二进制保持原样", func() {
			v, err := SQLToValue([]byte("bob"), TypeVarString, false)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "bob")

			v, err = SQLToValue([]byte{1, 2}, TypeBlob, false)
			So(err, ShouldBeNil)
			So(v, ShouldResemble, []byte{1, 2})
		})
	})
}

func TestRoundTrip(t *testing.T) {
	ts := time.Date(2023, 12, 31, 23, 59, 58, 987_000_000, time.Local)

	cases := []struct {
		name    string
		value   any
		sqlType SQLType
		widen   bool
	}{
		{"bool true", true, TypeTiny, false},
		{"bool false", false, TypeTiny, false},
		{"datetime", ts, TypeDatetime, false},
		{"timestamp", ts, TypeTimestamp, false},
		{"date", time.Date(2023, 12, 31, 0, 0, 0, 0, time.Local), TypeDate, false},
		{"bigint", int64(math.MinInt64), TypeLongLong, false},
		{"bigint widened", big.NewInt(math.MaxInt64), TypeLongLong, true},
		{"json", map[string]any{"k": "v", "n": 1.5, "l": []any{true, nil}}, TypeJSON, false},
		{"string", "plain", TypeVarString, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			lit, err := ValueToSQL(c.value, c.sqlType)
			require.NoError(t, err)

			raw := unquote(lit)
			if c.sqlType == TypeJSON {
				raw = []byte(strings.ReplaceAll(string(raw), `\"`, `"`))
			}

			back, err := SQLToValue(raw, c.sqlType, c.widen)
			require.NoError(t, err)

			switch want := c.value.(type) {
			case time.Time:
				assert.True(t, want.Equal(back.(time.Time)), "want %v got %v", want, back)
			case *big.Int:
				assert.Equal(t, 0, want.Cmp(back.(*big.Int)))
			default:
				assert.Equal(t, c.value, back)
			}
		})
	}
}
