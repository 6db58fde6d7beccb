package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/pairup/internal/config"
	"github.com/okian/pairup/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		t.Setenv("PAIRUP_ADDR", ":8081")
		t.Setenv("PAIRUP_WORKER_COUNT", "3")
		t.Setenv("PAIRUP_SESSION_STORE", "badger")
		t.Setenv("PAIRUP_BADGER_IN_MEMORY", "true")
		t.Setenv("PAIRUP_DEFAULT_STRICTNESS", "partial")

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":8081")

		convey.Convey("When the service is built and started from it", func() {
			svc := newService(cfg, logger.Nop())
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the options are applied", func() {
				stats := svc.GetStats(context.Background())
				convey.So(stats.Workers, convey.ShouldEqual, 3)
				convey.So(stats.SessionStore, convey.ShouldEqual, "badger")
			})

			convey.Convey("And the handler serves the API and the docs", func() {
				h := newHandler(context.Background(), cfg, svc, logger.Nop())
				for _, path := range []string{"/healthz", "/stats", "/openapi.yaml", "/api-docs", "/bookings/u1"} {
					w := httptest.NewRecorder()
					h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}

				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/queue/join", strings.NewReader(`{}`)))
				convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			})

			convey.Convey("And service metrics can be refreshed", func() {
				convey.So(func() { updateServiceMetrics(context.Background(), svc) }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater runs until cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When system metrics are updated", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When service metrics are refreshed before start", func() {
			svc := newService(config.New(), logger.Nop())
			convey.So(func() { updateServiceMetrics(context.Background(), svc) }, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given an invalid address", t, func() {
		t.Setenv("PAIRUP_ADDR", "")

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}
