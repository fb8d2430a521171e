package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/evalmatrix/internal/config"
	"github.com/okian/evalmatrix/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestBuildService(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When the service is built without analysis backends", func() {
			svc, err := buildService(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			convey.Convey("Then the default catalog is used and analysis is off", func() {
				stats := svc.GetStats()
				convey.So(stats["criteria"], convey.ShouldEqual, 8)
				convey.So(stats["analysisEnabled"], convey.ShouldBeFalse)
				convey.So(stats["proxyEnabled"], convey.ShouldBeFalse)
			})
		})

		convey.Convey("When a remote analysis url is configured", func() {
			cfg.AnalysisURL = "http://127.0.0.1:1"
			svc, err := buildService(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then analysis is enabled", func() {
				convey.So(svc.GetStats()["analysisEnabled"], convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the catalog file is missing", func() {
			cfg.CatalogFile = filepath.Join(t.TempDir(), "missing.yaml")
			_, err := buildService(ctx, cfg, logger.Nop())

			convey.Convey("Then building fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given the assembled mux", t, func() {
		ctx := context.Background()
		cfg := config.New()
		svc, err := buildService(ctx, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := newMux(ctx, svc, cfg)

		for _, path := range []string{"/", "/catalog", "/api/health", "/api-docs", "/openapi.yaml", "/healthz"} {
			convey.Convey("Then GET "+path+" is served", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			})
		}

		convey.Convey("And sessions can be created", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)
		})
	})
}

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		_ = os.Setenv("EVALMATRIX_ADDR", ":9090")
		_ = os.Setenv("EVALMATRIX_ANALYSIS_WORKERS", "2")
		defer func() {
			_ = os.Unsetenv("EVALMATRIX_ADDR")
			_ = os.Unsetenv("EVALMATRIX_ANALYSIS_WORKERS")
		}()

		convey.Convey("Then the loaded configuration reflects them", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.AnalysisWorkers, convey.ShouldEqual, 2)
		})
	})
}

func TestSystemMetricsUpdater(t *testing.T) {
	convey.Convey("Given a short-lived context", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		convey.Convey("Then the updater returns when it ends", func() {
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}
