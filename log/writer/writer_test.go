package writer

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type failWriter struct {
	closed bool
}

func (f *failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func (f *failWriter) Close() error {
	f.closed = true
	return nil
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) / 2, nil
}

func (shortWriter) Close() error {
	return nil
}

func TestNewWriterWithOptions(t *testing.T) {
	Convey("测试 NewWriterWithOptions", t, func() {
		Convey("默认控制台输出", func() {
			w, err := NewWriterWithOptions(nil)
			So(err, ShouldBeNil)
			So(w, ShouldHaveSameTypeAs, &ConsoleWriter{})

			w, err = NewWriterWithOptions(&Options{Console: &ConsoleWriterOptions{Target: "stdout"}})
			So(err, ShouldBeNil)
			So(w.(*ConsoleWriter).writer, ShouldEqual, os.Stdout)
			So(w.Close(), ShouldBeNil)
		})

		Convey("文件输出缺少路径", func() {
			_, err := NewWriterWithOptions(&Options{Type: "file"})
			So(err, ShouldNotBeNil)
		})

		Convey("多输出写入所有文件", func() {
			dir := t.TempDir()
			a := filepath.Join(dir, "a.log")
			b := filepath.Join(dir, "nested", "b.log")
			w, err := NewWriterWithOptions(&Options{
				Type: "multi",
				Multi: []*Options{
					{Type: "file", File: &FileWriterOptions{Path: a}},
					{Type: "file", File: &FileWriterOptions{Path: b}},
				},
			})
			So(err, ShouldBeNil)

			_, err = io.WriteString(w, "line\n")
			So(err, ShouldBeNil)
			So(w.Close(), ShouldBeNil)

			for _, p := range []string{a, b} {
				data, err := os.ReadFile(p)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "line\n")
			}
		})

		Convey("空的多输出报错", func() {
			_, err := NewWriterWithOptions(&Options{Type: "multi"})
			So(err, ShouldNotBeNil)
		})

		Convey("未知类型报错", func() {
			_, err := NewWriterWithOptions(&Options{Type: "syslog"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestFileWriter(t *testing.T) {
	Convey("测试 FileWriter", t, func() {
		path := filepath.Join(t.TempDir(), "app.log")

		Convey("追加写入", func() {
			w, err := NewFileWriterWithOptions(&FileWriterOptions{Path: path})
			So(err, ShouldBeNil)
			_, _ = w.Write([]byte("first\n"))
			So(w.Close(), ShouldBeNil)

			w, err = NewFileWriterWithOptions(&FileWriterOptions{Path: path})
			So(err, ShouldBeNil)
			_, _ = w.Write([]byte("second\n"))
			So(w.Close(), ShouldBeNil)

			data, _ := os.ReadFile(path)
			So(string(data), ShouldEqual, "first\nsecond\n")
		})

		Convey("关闭后写入报错，重复关闭无副作用", func() {
			w, err := NewFileWriterWithOptions(&FileWriterOptions{Path: path})
			So(err, ShouldBeNil)
			So(w.Close(), ShouldBeNil)
			So(w.Close(), ShouldBeNil)
			_, err = w.Write([]byte("x"))
			So(err, ShouldNotBeNil)
		})

		Convey("并发写入", func() {
			w, err := NewFileWriterWithOptions(&FileWriterOptions{Path: path})
			So(err, ShouldBeNil)
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = w.Write([]byte("x\n"))
				}()
			}
			wg.Wait()
			So(w.Close(), ShouldBeNil)

			data, _ := os.ReadFile(path)
			So(strings.Count(string(data), "x\n"), ShouldEqual, 20)
		})
	})
}

func TestMultiWriter(t *testing.T) {
	Convey("测试 MultiWriter", t, func() {
		Convey("子输出器失败时返回错误，关闭所有子输出器", func() {
			fw := &failWriter{}
			m, err := NewMultiWriter(fw)
			So(err, ShouldBeNil)
			_, err = m.Write([]byte("x"))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "disk full")
			So(m.Close(), ShouldBeNil)
			So(fw.closed, ShouldBeTrue)
		})

		Convey("短写返回 io.ErrShortWrite", func() {
			m, err := NewMultiWriter(shortWriter{})
			So(err, ShouldBeNil)
			_, err = m.Write([]byte("abcd"))
			So(err, ShouldEqual, io.ErrShortWrite)
		})
	})
}
