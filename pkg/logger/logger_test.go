package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(InitWithOptions(Options{}), ShouldBeNil)

			Convey("Then Get and Named return usable loggers", func() {
				So(Get(), ShouldNotBeNil)
				So(Named("test"), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := InitWithOptions(Options{Format: "xml"})

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithOptions(Options{Writer: &buf, Format: FormatJSON}), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Named("pace").With(String("runner", "42")).Info(ctx, "profile built",
				Int("points", 20), Bool("cached", true), Duration("took", 2*time.Second),
				Any("checkpoints", []string{"A", "Finish"}), Error(errors.New("boom")))

			var rec map[string]any
			So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)

			Convey("Then the record carries every field", func() {
				So(rec["msg"], ShouldEqual, "profile built")
				So(rec["logger"], ShouldEqual, "pace")
				So(rec["runner"], ShouldEqual, "42")
				So(rec["points"], ShouldEqual, 20)
				So(rec["cached"], ShouldEqual, true)
				So(rec["took"], ShouldEqual, float64(2*time.Second))
				So(rec["checkpoints"], ShouldResemble, []any{"A", "Finish"})
				So(rec["error"], ShouldEqual, "boom")
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level filters a record", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")
			So(SetLevelString("info"), ShouldBeNil)

			Convey("Then only the visible record is written", func() {
				out := buf.String()
				So(strings.Contains(out, "hidden"), ShouldBeFalse)
				So(out, ShouldContainSubstring, "shown")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "info", "", "WARN", "warning", "error"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}
