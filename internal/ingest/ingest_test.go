package ingest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/wser/internal/adapters/repository"
	"github.com/okian/wser/internal/domain/course"
	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/timefmt"
	"github.com/okian/wser/internal/domain/types"
)

func smallCourse() *course.Course {
	return course.MustNew([]course.Checkpoint{
		{Name: "Lyon Ridge", Distance: 10},
		{Name: "Robinson Flat", Distance: 20},
		{Name: "Finish", Distance: 30},
	})
}

const resultsCSV = `OverallPlace,Bib,FirstName,LastName,Gender,Age,City,State,Country,LyonRidge,LyonRidgePosition,RobinsonFlat,RobinsonFlatPosition,Finish,FinishPosition
1,20,Ann,Trason,F,40,Kentfield,CA,USA,1:30:00,1,3:00:00,1,6/26/1994 16:00:00,1
2,1,Jim,Walmsley,M,29,Flagstaff,AZ,USA,1:20:00,2,xx:yy,,17:00:00,2
,7,Dan,Dropped,M,51,Bend,OR,USA,2:00:00,3,--:--,,--:--,
,8,Back,Wards,X,33,Reno,NV,USA,3:00:00,4,2:00:00,2,nan,
`

func TestLoad(t *testing.T) {
	Convey("Given a results file and an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx)
		defer store.Close()
		l := New(WithCourse(smallCourse()))

		Convey("When loading leniently", func() {
			rep, err := l.Load(ctx, strings.NewReader(resultsCSV), store)
			So(err, ShouldBeNil)

			Convey("Then the report counts every outcome", func() {
				So(rep, ShouldResemble, Report{Rows: 4, Runners: 3, FormatErrors: 1, Rejected: 1})
			})

			Convey("Then valid splits are stored with date prefixes stripped", func() {
				tm, err := store.Split(ctx, "Finish", "20")
				So(err, ShouldBeNil)
				So(tm, ShouldResemble, model.ClockTime{Hours: 16})
				info, err := store.RunnerInfo(ctx, "20")
				So(err, ShouldBeNil)
				So(info.City, ShouldEqual, "Kentfield")
				So(info.Place, ShouldEqual, 1)
			})

			Convey("Then malformed and missing splits are absent", func() {
				_, err := store.Split(ctx, "Robinson Flat", "1")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = store.Split(ctx, "Finish", "7")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				info, err := store.RunnerInfo(ctx, "7")
				So(err, ShouldBeNil)
				So(info.Place, ShouldEqual, 0)
			})

			Convey("Then runners whose time goes backwards are rejected", func() {
				_, err := store.RunnerInfo(ctx, "8")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When loading strictly", func() {
			_, err := New(WithCourse(smallCourse()), WithStrict(true)).Load(ctx, strings.NewReader(resultsCSV), store)

			Convey("Then the malformed split aborts the load", func() {
				So(errors.Is(err, timefmt.ErrFormat), ShouldBeTrue)
			})
		})

		Convey("When a load fails over existing results", func() {
			_, err := l.Load(ctx, strings.NewReader(resultsCSV), store)
			So(err, ShouldBeNil)

			strict := New(WithCourse(smallCourse()), WithStrict(true))
			_, err = strict.Load(ctx, strings.NewReader(resultsCSV), store)
			So(errors.Is(err, timefmt.ErrFormat), ShouldBeTrue)
			_, err = l.Load(ctx, strings.NewReader("Bib,Gender,Age\n5,F,40\n6,\"M,33\n"), store)
			So(err, ShouldNotBeNil)

			Convey("Then the previous runners are kept", func() {
				ids, err := store.RunnerIDs(ctx, model.RunnerFilter{})
				So(err, ShouldBeNil)
				So(len(ids), ShouldEqual, 3)
				_, err = store.RunnerInfo(ctx, "5")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the bib column is missing", func() {
			_, err := l.Load(ctx, strings.NewReader("FirstName,Gender,Age\nAnn,F,40\n"), store)

			Convey("Then the header is rejected", func() {
				So(errors.Is(err, ErrMissingColumn), ShouldBeTrue)
			})
		})

		Convey("When an age is not a number", func() {
			rep, err := l.Load(ctx, strings.NewReader("Bib,Gender,Age\n5,F,old\n"), store)

			Convey("Then the runner is skipped", func() {
				So(err, ShouldBeNil)
				So(rep.Rejected, ShouldEqual, 1)
			})
		})
	})
}

func TestColumnName(t *testing.T) {
	Convey("Given checkpoint names", t, func() {
		So(ColumnName("Lyon Ridge"), ShouldEqual, "LyonRidge")
		So(ColumnName("Quarry Rd."), ShouldEqual, "QuarryRd")
		So(ColumnName("Finish"), ShouldEqual, "Finish")
	})
}

func TestGenerate(t *testing.T) {
	Convey("Given the Western States course", t, func() {
		ctx := context.Background()
		c := course.Default()

		Convey("When generating twice with one seed", func() {
			var a, b bytes.Buffer
			n, err := Generate(ctx, &a, c, WithRunners(50), WithSeed(7))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 50)
			_, err = Generate(ctx, &b, c, WithRunners(50), WithSeed(7))
			So(err, ShouldBeNil)

			Convey("Then the output is identical", func() {
				So(a.String(), ShouldEqual, b.String())
			})

			Convey("Then it loads without rejects", func() {
				store := repository.NewMemStore(ctx)
				defer store.Close()
				rep, err := New(WithCourse(c)).Load(ctx, &a, store)
				So(err, ShouldBeNil)
				So(rep.Rows, ShouldEqual, 50)
				So(rep.Runners, ShouldEqual, 50)
				So(rep.FormatErrors, ShouldEqual, 0)
				So(rep.Rejected, ShouldEqual, 0)

				fin, err := store.Finishers(ctx, types.GenderAny)
				So(err, ShouldBeNil)
				for _, f := range fin {
					So(f.FinishHours, ShouldBeBetweenOrEqual, 14.9, 29.5)
				}
			})
		})

		Convey("When nobody drops", func() {
			var buf bytes.Buffer
			_, err := Generate(ctx, &buf, c, WithRunners(10), WithDNFRate(0), WithGapRate(0))
			So(err, ShouldBeNil)
			store := repository.NewMemStore(ctx)
			defer store.Close()
			_, err = New(WithCourse(c)).Load(ctx, &buf, store)
			So(err, ShouldBeNil)

			Convey("Then every runner finishes with a place", func() {
				ids, err := store.RunnerIDs(ctx, model.RunnerFilter{FinishersOnly: true})
				So(err, ShouldBeNil)
				So(len(ids), ShouldEqual, 10)
				first, err := store.RunnerInfo(ctx, ids[0])
				So(err, ShouldBeNil)
				So(first.Place, ShouldEqual, 1)
			})
		})
	})
}
