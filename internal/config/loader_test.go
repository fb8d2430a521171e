package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/evalmatrix/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"EVALMATRIX_CONFIG",
	"EVALMATRIX_ADDR",
	"EVALMATRIX_MAX_SESSIONS",
	"EVALMATRIX_LOG_FORMAT",
	"EVALMATRIX_GEMINI_API_KEY",
	"EVALMATRIX_ANALYSIS_TIMEOUT_MS",
	"EVALMATRIX_CORS_ORIGIN",
	"GEMINI_API_KEY",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8788")
			convey.So(cfg.MaxSessions, convey.ShouldEqual, 1000)
			convey.So(cfg.AnalysisTimeout(), convey.ShouldEqual, 60*time.Second)
			convey.So(cfg.CORSOrigin, convey.ShouldEqual, "*")
			convey.So(cfg.LogFormat, convey.ShouldEqual, config.LogFormatText)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8788")
			convey.So(cfg.GeminiAPIKey, convey.ShouldBeEmpty)
		})

		convey.Convey("When environment variables are set", func() {
			_ = os.Setenv("EVALMATRIX_ADDR", ":9000")
			_ = os.Setenv("EVALMATRIX_MAX_SESSIONS", "5")
			_ = os.Setenv("EVALMATRIX_CORS_ORIGIN", "https://example.org")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9000")
			convey.So(cfg.MaxSessions, convey.ShouldEqual, 5)
			convey.So(cfg.CORSOrigin, convey.ShouldEqual, "https://example.org")
		})

		convey.Convey("When only the bare Gemini key is set", func() {
			_ = os.Setenv("GEMINI_API_KEY", "k1")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.GeminiAPIKey, convey.ShouldEqual, "k1")
		})

		convey.Convey("When both Gemini keys are set the prefixed one wins", func() {
			_ = os.Setenv("GEMINI_API_KEY", "k1")
			_ = os.Setenv("EVALMATRIX_GEMINI_API_KEY", "k2")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.GeminiAPIKey, convey.ShouldEqual, "k2")
		})

		convey.Convey("When a YAML file is given", func() {
			path := filepath.Join(t.TempDir(), "config.yaml")
			convey.So(os.WriteFile(path, []byte("addr: \":7000\"\nanalysis_timeout_ms: 1500\nlog_format: json\n"), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("EVALMATRIX_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":7000")
			convey.So(cfg.AnalysisTimeout(), convey.ShouldEqual, 1500*time.Millisecond)
			convey.So(cfg.LogFormat, convey.ShouldEqual, config.LogFormatJSON)

			convey.Convey("And env still overrides the file", func() {
				_ = os.Setenv("EVALMATRIX_ADDR", ":7001")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7001")
			})
		})

		convey.Convey("When the config file is missing", func() {
			_ = os.Setenv("EVALMATRIX_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When values are out of range", func() {
			_ = os.Setenv("EVALMATRIX_MAX_SESSIONS", "-1")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the log format is unknown", func() {
			_ = os.Setenv("EVALMATRIX_LOG_FORMAT", "xml")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestLoadDotEnv(t *testing.T) {
	convey.Convey("Given dotenv files", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		dir := t.TempDir()
		local := filepath.Join(dir, ".env.local")
		shared := filepath.Join(dir, ".env")
		convey.So(os.WriteFile(local, []byte("EVALMATRIX_ADDR=:6000\n"), 0o600), convey.ShouldBeNil)
		convey.So(os.WriteFile(shared, []byte("EVALMATRIX_ADDR=:6001\nGEMINI_API_KEY=from-env-file\n"), 0o600), convey.ShouldBeNil)

		err := config.LoadDotEnv(local, shared, filepath.Join(dir, "missing"))

		convey.Convey("Then earlier files win and missing ones are skipped", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(os.Getenv("EVALMATRIX_ADDR"), convey.ShouldEqual, ":6000")
			convey.So(os.Getenv("GEMINI_API_KEY"), convey.ShouldEqual, "from-env-file")
		})
	})
}
