package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/wser/internal/config"
	"github.com/okian/wser/internal/domain/timefmt"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
			convey.So(cfg.FetchWorkers, convey.ShouldEqual, runtime.NumCPU()*4)
			convey.So(cfg.AggregateParallelism, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.ProfileCacheSize, convey.ShouldEqual, 2_000)
			convey.So(cfg.DNFDefaultHours, convey.ShouldEqual, timefmt.DefaultImputeHours)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the default course is Western States", func() {
			c, err := cfg.BuildCourse()
			convey.So(err, convey.ShouldBeNil)
			convey.So(c.Len(), convey.ShouldEqual, 20)
			convey.So(c.Finish().Name, convey.ShouldEqual, "Finish")
			convey.So(cfg.Policy(), convey.ShouldEqual, timefmt.PolicyAbsent)
		})

		convey.Convey("When the course is overridden", func() {
			cfg.Course = []config.Checkpoint{{Name: "Half", Distance: 50}, {Name: "Finish", Distance: 100}}
			c, err := cfg.BuildCourse()

			convey.Convey("Then the custom checkpoints are used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(c.Names(), convey.ShouldResemble, []string{"Half", "Finish"})
			})
		})

		convey.Convey("When the course goes backwards", func() {
			cfg.Course = []config.Checkpoint{{Name: "B", Distance: 50}, {Name: "A", Distance: 40}}

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When imputation is configured", func() {
			cfg.DNFPolicy = "impute"
			convey.So(cfg.Policy(), convey.ShouldEqual, timefmt.PolicyImpute)
		})
	})
}
