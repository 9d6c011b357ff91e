package rdb

import (
	"math"
	"math/big"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func collapseOnce(records []Record, ref referenceDescriptor) []Record {
	redundant := make([]bool, len(records))
	collapseReferences(records, ref, redundant)
	var result []Record
	for i, record := range records {
		if !redundant[i] {
			result = append(result, record)
		}
	}
	return result
}

func TestCollapseReferences(t *testing.T) {
	Convey("测试折叠", t, func() {
		ref := referenceDescriptor{collapseOn: "k", target: "ref", fields: []string{"x"}}

		Convey("按分组列合并并去重", func() {
			records := []Record{
				{"k": int64(1), "ref_x": "a"},
				{"k": int64(1), "ref_x": "a"},
				{"k": int64(1), "ref_x": "b"},
				{"k": int64(2), "ref_x": nil},
			}
			result := collapseOnce(records, ref)
			So(result, ShouldResemble, []Record{
				{"k": int64(1), "ref": []Record{{"x": "a"}, {"x": "b"}}},
				{"k": int64(2), "ref": []Record{}},
			})
		})

		Convey("分组与输入顺序无关", func() {
			records := []Record{
				{"k": int64(2), "ref_x": nil},
				{"k": int64(1), "ref_x": "b"},
				{"k": int64(1), "ref_x": "a"},
				{"k": int64(1), "ref_x": "a"},
			}
			result := collapseOnce(records, ref)
			So(len(result), ShouldEqual, 2)
			So(result[0], ShouldResemble, Record{"k": int64(2), "ref": []Record{}})
			items := result[1]["ref"].([]Record)
			So(items, ShouldHaveLength, 2)
			So(containsRecord(items, Record{"x": "a"}), ShouldBeTrue)
			So(containsRecord(items, Record{"x": "b"}), ShouldBeTrue)
		})

		Convey("不同宽度的整数视为同一分组", func() {
			records := []Record{
				{"k": big.NewInt(7), "ref_x": "a"},
				{"k": int64(7), "ref_x": "b"},
			}
			result := collapseOnce(records, ref)
			So(len(result), ShouldEqual, 1)
			So(result[0]["ref"], ShouldResemble, []Record{{"x": "a"}, {"x": "b"}})
		})

		Convey("没有前缀的列", func() {
			records := []Record{
				{"k": "a", "x": int64(1), "y": "keep"},
				{"k": "a", "x": int64(2), "y": "keep"},
			}
			result := collapseOnce(records, ref)
			So(result, ShouldResemble, []Record{
				{"k": "a", "y": "keep", "ref": []Record{{"x": int64(1)}, {"x": int64(2)}}},
			})
		})

		Convey("字段写成带前缀的形式", func() {
			records := []Record{
				{"k": int64(1), "ref_x": "a"},
			}
			result := collapseOnce(records, referenceDescriptor{collapseOn: "k", target: "ref", fields: []string{"ref_x"}})
			So(result, ShouldResemble, []Record{{"k": int64(1), "ref": []Record{{"x": "a"}}}})
		})

		Convey("多个引用共享冗余标记", func() {
			records := []Record{
				{"k": int64(1), "a_x": "a1", "b_y": "b1"},
				{"k": int64(1), "a_x": "a2", "b_y": "b1"},
			}
			rs := &Recordset{references: []referenceDescriptor{
				{collapseOn: "k", target: "a", fields: []string{"x"}},
				{collapseOn: "k", target: "b", fields: []string{"y"}},
			}}
			result := rs.collapse(records)
			So(result, ShouldResemble, []Record{{
				"k": int64(1),
				"a": []Record{{"x": "a1"}, {"x": "a2"}},
				"b": []Record{{"y": "b1"}},
			}})
		})

		Convey("没有分组列时不折叠", func() {
			records := []Record{{"k": int64(1)}, {"k": int64(1)}}
			rs := &Recordset{references: []referenceDescriptor{{target: "ref", fields: []string{"x"}}}}
			So(rs.collapse(records), ShouldHaveLength, 2)
		})
	})
}

func TestFalsy(t *testing.T) {
	Convey("测试 falsy", t, func() {
		for _, v := range []any{nil, false, 0, int64(0), uint8(0), 0.0, math.NaN(), "", time.Time{}, big.NewInt(0), (*int)(nil), []byte(nil)} {
			So(falsy(v), ShouldBeTrue)
		}
		for _, v := range []any{true, 1, -1, 0.5, "0", time.Now(), big.NewInt(1), []byte{}, Record{}} {
			So(falsy(v), ShouldBeFalse)
		}
	})
}

func TestNormalizeKey(t *testing.T) {
	Convey("测试 normalizeKey", t, func() {
		So(normalizeKey(int64(1)), ShouldResemble, normalizeKey(big.NewInt(1)))
		So(normalizeKey([]byte("a")), ShouldResemble, normalizeKey([]byte("a")))
		So(normalizeKey([]byte("a")), ShouldNotResemble, normalizeKey("a"))
		now := time.Now()
		So(normalizeKey(now), ShouldResemble, normalizeKey(now.UTC()))
		So(normalizeKey([]int{1, 2}), ShouldResemble, normalizeKey([]int{1, 2}))
		So(normalizeKey(nil), ShouldNotResemble, normalizeKey(""))
	})
}
