package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/wser/internal/app"
	"github.com/okian/wser/internal/domain/model"
)

func execute(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestWserctl(t *testing.T) {
	convey.Convey("Given a generated results file", t, func() {
		csv := filepath.Join(t.TempDir(), "results.csv")
		_, err := execute("generate", "--out", csv, "--runners", "60", "--seed", "3")
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When ingesting it", func() {
			out, err := execute("ingest", "--csv", csv)

			convey.Convey("Then the report is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "runners")
				convey.So(out, convey.ShouldContainSubstring, "rows")
			})
		})

		convey.Convey("When ingesting without a file", func() {
			_, err := execute("ingest")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When building a profile by bib", func() {
			out, err := execute("profile", "1", "--csv", csv, "--json")
			convey.So(err, convey.ShouldBeNil)

			var rp service.RunnerPace
			convey.So(json.Unmarshal([]byte(out), &rp), convey.ShouldBeNil)
			convey.So(string(rp.Runner.ID), convey.ShouldEqual, "1")
		})

		convey.Convey("When printing a profile as a table", func() {
			out, err := execute("profile", "1", "--csv", csv)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "CHECKPOINT")
		})

		convey.Convey("When aggregating the field", func() {
			out, err := execute("field", "--csv", csv, "--json")
			convey.So(err, convey.ShouldBeNil)

			var agg model.AggregateSeries
			convey.So(json.Unmarshal([]byte(out), &agg), convey.ShouldBeNil)
			convey.So(agg.Runners, convey.ShouldEqual, 60)
			convey.So(agg.Points, convey.ShouldHaveLength, 20)
		})

		convey.Convey("When comparing a runner to the field", func() {
			out, err := execute("field", "--csv", csv, "--runner", "2", "--finishers")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "FIELD PACE")
		})

		convey.Convey("When comparing two runners", func() {
			out, err := execute("compare", "1", "2", "--csv", csv)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "ELAPSED")
		})

		convey.Convey("When summarizing", func() {
			out, err := execute("summary", "--csv", csv)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "finish")
		})

		convey.Convey("When binning", func() {
			out, err := execute("bins", "finish", "--csv", csv, "--edges", "0,24,30")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "0-24")

			out, err = execute("bins", "age", "--csv", csv, "--bins", "4")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "BIN")
		})

		convey.Convey("When the filter is invalid", func() {
			_, err := execute("field", "--csv", csv, "--gender", "x")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When nobody matches", func() {
			_, err := execute("search", "zzz", "--csv", csv)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestFormatting(t *testing.T) {
	convey.Convey("Given pace and clock values", t, func() {
		convey.So(pace(0.2), convey.ShouldEqual, "12:00/mi")
		convey.So(clock(15.9), convey.ShouldEqual, "15:54:00")
		convey.So(clock(0), convey.ShouldEqual, "0:00:00")
	})

	convey.Convey("Given two series with different checkpoints", t, func() {
		a := model.PaceSeries{{Index: 0, Checkpoint: "A"}, {Index: 2, Checkpoint: "C"}}
		b := model.PaceSeries{{Index: 1, Checkpoint: "B"}, {Index: 2, Checkpoint: "C"}}
		refs := checkpoints(a, b)
		names := make([]string, len(refs))
		for i, r := range refs {
			names[i] = r.name
		}
		convey.So(names, convey.ShouldResemble, []string{"A", "B", "C"})
	})
}
