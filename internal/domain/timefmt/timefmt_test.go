package timefmt

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given the default normalizer", t, func() {
		n := New()
		So(n.Policy(), ShouldEqual, PolicyAbsent)

		Convey("When parsing every clock value on a grid", func() {
			Convey("Then the result is h + m/60 + s/3600", func() {
				for _, h := range []int{0, 1, 15, 29, 31} {
					for _, m := range []int{0, 7, 59} {
						for _, s := range []int{0, 30, 59} {
							r, err := n.Normalize(fmt.Sprintf("%02d:%02d:%02d", h, m, s))
							So(err, ShouldBeNil)
							So(r.Present, ShouldBeTrue)
							So(r.Hours, ShouldEqual, float64(h)+float64(m)/60+float64(s)/3600)
						}
					}
				}
			})
		})

		Convey("When the value carries a date prefix and trailing tokens", func() {
			r, err := n.Normalize("6/29/2019 14:30:36 PM")

			Convey("Then they are stripped", func() {
				So(err, ShouldBeNil)
				So(r.Hours, ShouldAlmostEqual, 14.51, 1e-9)
			})
		})

		Convey("When the value is a no-data marker", func() {
			Convey("Then it is absent", func() {
				for _, raw := range []string{"--:--", "nan", "NaN", "", "  ", "DNF-", "-"} {
					r, err := n.Normalize(raw)
					So(err, ShouldBeNil)
					So(r.Present, ShouldBeFalse)
				}
			})
		})

		Convey("When the value is malformed", func() {
			Convey("Then ErrFormat is returned", func() {
				for _, raw := range []string{"14:30", "1:2:3:4", "aa:bb:cc", "10:75:00", "10:00:60"} {
					_, err := n.Normalize(raw)
					So(errors.Is(err, ErrFormat), ShouldBeTrue)
				}
			})
		})
	})

	Convey("Given an imputing normalizer", t, func() {
		n := New(WithPolicy(PolicyImpute))

		Convey("Then markers become the default finish time", func() {
			r, err := n.Normalize("--:--")
			So(err, ShouldBeNil)
			So(r, ShouldResemble, Result{Hours: DefaultImputeHours, Present: true, Imputed: true})
		})

		Convey("Then the default can be overridden", func() {
			r, err := New(WithPolicy(PolicyImpute), WithDefaultHours(32)).Normalize("nan")
			So(err, ShouldBeNil)
			So(r.Hours, ShouldEqual, 32.0)
		})
	})
}

func TestClock(t *testing.T) {
	Convey("Given raw clock strings", t, func() {
		n := New()

		Convey("Then components are returned for real times", func() {
			h, m, s, ok, err := n.Clock("6/29/2019 23:05:09")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So([]int{h, m, s}, ShouldResemble, []int{23, 5, 9})
		})

		Convey("Then markers are not ok without an error", func() {
			_, _, _, ok, err := n.Clock("--:--")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestParsePolicy(t *testing.T) {
	Convey("Given policy names", t, func() {
		p, err := ParsePolicy("impute")
		So(err, ShouldBeNil)
		So(p.String(), ShouldEqual, "impute")
		p, err = ParsePolicy("")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, PolicyAbsent)
		_, err = ParsePolicy("zero")
		So(err, ShouldNotBeNil)
	})
}
