package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/wser/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
				convey.So(cfg.DNFPolicy, convey.ShouldEqual, "absent")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("WSER_ADDR", ":8080")
			_ = os.Setenv("WSER_FETCH_WORKERS", "16")
			_ = os.Setenv("WSER_PROFILE_CACHE_SIZE", "0")
			_ = os.Setenv("WSER_DNF_POLICY", "impute")
			_ = os.Setenv("WSER_DNF_DEFAULT_HOURS", "31.5")
			_ = os.Setenv("WSER_INGEST_STRICT", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.FetchWorkers, convey.ShouldEqual, 16)
				convey.So(cfg.ProfileCacheSize, convey.ShouldEqual, 0)
				convey.So(cfg.DNFPolicy, convey.ShouldEqual, "impute")
				convey.So(cfg.DNFDefaultHours, convey.ShouldEqual, 31.5)
				convey.So(cfg.IngestStrict, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
# local sqlite copy of the results
addr: ":9090"
store_driver: sqlite
store_dsn: "file:wser.db"
results_csv: results.csv
aggregate_parallelism: 3
course:
  - name: Half
    distance: 50
  - name: Finish
    distance: 100.2
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("WSER_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.StoreDSN, convey.ShouldEqual, "file:wser.db")
				convey.So(cfg.ResultsCSV, convey.ShouldEqual, "results.csv")
				convey.So(cfg.AggregateParallelism, convey.ShouldEqual, 3)
				convey.So(cfg.Course, convey.ShouldHaveLength, 2)
				convey.So(cfg.Course[1].Distance, convey.ShouldEqual, 100.2)
			})

			convey.Convey("And env vars override the file", func() {
				_ = os.Setenv("WSER_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("WSER_CONFIG", "/nonexistent/wser.yaml")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the YAML is malformed", func() {
			tmpFile := createTempConfigFile("addr: [unclosed")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("WSER_CONFIG", tmpFile)
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a numeric env var is not a number", func() {
			_ = os.Setenv("WSER_FETCH_WORKERS", "many")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When values fail validation", func() {
			cases := map[string]string{
				"WSER_ADDR":                  "",
				"WSER_STORE_DRIVER":          "mongo",
				"WSER_DNF_POLICY":            "drop",
				"WSER_FETCH_WORKERS":         "0",
				"WSER_PROFILE_CACHE_SIZE":    "-1",
				"WSER_DNF_DEFAULT_HOURS":     "0",
				"WSER_LOG_FORMAT":            "xml",
				"WSER_AGGREGATE_PARALLELISM": "1000",
			}
			for key, val := range cases {
				clearConfigEnvVars()
				if val == "" {
					tmpFile := createTempConfigFile(`addr: ""`)
					_ = os.Setenv("WSER_CONFIG", tmpFile)
					_, err := config.Load(ctx)
					_ = os.Remove(tmpFile)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					continue
				}
				_ = os.Setenv(key, val)
				_, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})

		convey.Convey("When postgres is selected without a DSN", func() {
			_ = os.Setenv("WSER_STORE_DRIVER", "postgres")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"WSER_CONFIG", "WSER_ADDR", "WSER_LOG_LEVEL", "WSER_LOG_FORMAT",
		"WSER_STORE_DRIVER", "WSER_STORE_DSN", "WSER_RESULTS_CSV",
		"WSER_FETCH_WORKERS", "WSER_AGGREGATE_PARALLELISM", "WSER_PROFILE_CACHE_SIZE",
		"WSER_DNF_POLICY", "WSER_DNF_DEFAULT_HOURS", "WSER_INGEST_STRICT",
		"WSER_EVENT_NAME",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "wser-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}
