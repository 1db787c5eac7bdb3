package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/hydrater/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("HYDRATER_ADDR", ":8080")
			_ = os.Setenv("HYDRATER_QUEUE_SIZE", "500")
			_ = os.Setenv("HYDRATER_WORKER_COUNT", "3")
			_ = os.Setenv("HYDRATER_MIN_COMPATIBILITY", "0.45")
			_ = os.Setenv("HYDRATER_FETCH_CONCURRENCY", "16")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.MinCompatibility, convey.ShouldEqual, 0.45)
				convey.So(cfg.FetchConcurrency, convey.ShouldEqual, 16)
				convey.So(cfg.MinConfidence, convey.ShouldEqual, 0.2)
			})
		})

		convey.Convey("When nested weights come from the environment", func() {
			_ = os.Setenv("HYDRATER_DIMENSION_WEIGHTS__COLDNESS", "0.4")
			_ = os.Setenv("HYDRATER_DIMENSION_WEIGHTS__YUM_FACTOR", "0.1")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then only the named weights change", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DimensionWeights.Coldness, convey.ShouldEqual, 0.4)
				convey.So(cfg.DimensionWeights.YumFactor, convey.ShouldEqual, 0.1)
				convey.So(cfg.DimensionWeights.Pressure, convey.ShouldEqual, 0.25)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
queue_size: 300
store_driver: sqlite
sqlite_dsn: /tmp/hydrater-test.db
min_confidence: 0.25
dimension_weights:
  coldness: 0.25
  pressure: 0.25
  experience: 0.25
  yum_factor: 0.25
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("HYDRATER_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.SQLiteDSN, convey.ShouldEqual, "/tmp/hydrater-test.db")
				convey.So(cfg.MinConfidence, convey.ShouldEqual, 0.25)
				convey.So(cfg.DimensionWeights.Coldness, convey.ShouldEqual, 0.25)
				convey.So(cfg.MaxMatchLimit, convey.ShouldEqual, 100) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
worker_count: 24
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("HYDRATER_CONFIG", tmpFile)
			_ = os.Setenv("HYDRATER_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")   // Overridden by env
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("HYDRATER_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("HYDRATER_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("HYDRATER_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("HYDRATER_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When env weights break the sum", func() {
			_ = os.Setenv("HYDRATER_DIMENSION_WEIGHTS__COLDNESS", "0.9")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"HYDRATER_CONFIG",
		"HYDRATER_ADDR",
		"HYDRATER_QUEUE_SIZE",
		"HYDRATER_WORKER_COUNT",
		"HYDRATER_MIN_COMPATIBILITY",
		"HYDRATER_FETCH_CONCURRENCY",
		"HYDRATER_DIMENSION_WEIGHTS__COLDNESS",
		"HYDRATER_DIMENSION_WEIGHTS__YUM_FACTOR",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "hydrater-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
