package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	app "github.com/okian/hydrater/internal/app"
	"github.com/okian/hydrater/internal/config"
	"github.com/okian/hydrater/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given configuration loaded from the environment", t, func() {
		_ = os.Setenv("HYDRATER_ADDR", ":8080")
		_ = os.Setenv("HYDRATER_QUEUE_SIZE", "1000")
		_ = os.Setenv("HYDRATER_WORKER_COUNT", "4")
		defer func() {
			_ = os.Unsetenv("HYDRATER_ADDR")
			_ = os.Unsetenv("HYDRATER_QUEUE_SIZE")
			_ = os.Unsetenv("HYDRATER_WORKER_COUNT")
		}()

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the service is built from it", func() {
			svc := app.New(serviceOptions(cfg, logger.Get())...)

			convey.Convey("Then the overrides reach the service", func() {
				stats := svc.GetStats()
				convey.So(stats.WorkerCount, convey.ShouldEqual, 4)
				convey.So(stats.QueueCapacity, convey.ShouldEqual, 1000)
				convey.So(stats.StoreDriver, convey.ShouldEqual, "memory")
				convey.So(stats.FetchConcurrency, convey.ShouldEqual, cfg.FetchConcurrency)
			})
		})
	})

	convey.Convey("Given the sqlite driver", t, func() {
		cfg := config.New()
		cfg.StoreDriver = config.StoreSQLite
		cfg.SQLiteDSN = filepath.Join(t.TempDir(), "h.db")

		convey.Convey("Then the service opens a SQLite store", func() {
			svc := app.New(serviceOptions(cfg, logger.Get())...)
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()
			convey.So(svc.GetStats().StoreDriver, convey.ShouldEqual, "sqlite")
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given a started service and its handler", t, func() {
		cfg := config.New()
		svc := app.New(serviceOptions(cfg, logger.Get())...)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()
		h := newHandler(svc, cfg)

		convey.Convey("When a rating is posted", func() {
			body := `{"user_id":"ana","fountain_id":"f1","coldness":5,"pressure":5,"experience":4,"yum_factor":4}`
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ratings", strings.NewReader(body)))

			convey.Convey("Then it is accepted and later readable", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusAccepted)

				deadline := time.Now().Add(2 * time.Second)
				code := 0
				for time.Now().Before(deadline) && code != http.StatusOK {
					get := httptest.NewRecorder()
					h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/ratings/ana", nil))
					code = get.Code
					time.Sleep(5 * time.Millisecond)
				}
				convey.So(code, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When the API docs are requested", func() {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

			convey.Convey("Then the OpenAPI document is served", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, "/matches/{user_id}")
			})
		})

		convey.Convey("When metrics are scraped", func() {
			updateSystemMetrics()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			convey.Convey("Then system gauges are exported", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, "goroutine")
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a configuration on an ephemeral port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				convey.So(run(ctx, cfg, logger.Get()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the address is unusable", func() {
			cfg.Addr = "256.0.0.1:bad"

			convey.Convey("Then run reports the listen error", func() {
				convey.So(run(context.Background(), cfg, logger.Get()), convey.ShouldNotBeNil)
			})
		})
	})
}
