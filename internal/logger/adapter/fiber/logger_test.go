package fiber_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "github.com/go-rbac-admin/go-rbac-admin/internal/logger/adapter/fiber"

	"github.com/go-rbac-admin/go-rbac-admin/internal/logger"
)

type accessEntry struct {
	IP     string `json:"IP"`
	Status int    `json:"status"`
	URI    string `json:"URI"`
	Method string `json:"method"`
	Host   string `json:"host"`
	UserID uint64 `json:"user_id"`
}

func consoleConfig() logger.Log {
	return logger.Log{
		EnableAccessLogToConsole: true,
		Console:                  logger.Console{Enabled: true},
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		target string
		config adapter.Config
		want   *accessEntry
	}{
		{
			name:   "nothing enabled no output",
			target: "/",
		},
		{
			name:   "root path",
			target: "/",
			config: adapter.Config{Config: consoleConfig()},
			want:   &accessEntry{IP: "0.0.0.0", Status: fiber.StatusOK, URI: "/", Method: fiber.MethodGet, Host: "example.com"},
		},
		{
			name:   "raw uri with double slash and query",
			target: "//x?test=123",
			config: adapter.Config{Config: consoleConfig()},
			want:   &accessEntry{IP: "0.0.0.0", Status: fiber.StatusNotFound, URI: "//x?test=123", Method: fiber.MethodGet, Host: "example.com"},
		},
		{
			name:   "user id reported",
			target: "/",
			config: adapter.Config{
				Config: consoleConfig(),
				UserID: func(_ *fiber.Ctx) (uint64, bool) { return 42, true },
			},
			want: &accessEntry{IP: "0.0.0.0", Status: fiber.StatusOK, URI: "/", Method: fiber.MethodGet, Host: "example.com", UserID: 42},
		},
		{
			name:   "health skipped",
			target: "/health",
			config: adapter.Config{Config: func() logger.Log {
				l := consoleConfig()
				l.DisableHealthLog = true

				return l
			}()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := serve(t, tt.target, tt.config)

			if tt.want == nil {
				assert.Empty(t, out)

				return
			}

			var got accessEntry
			require.NoError(t, json.Unmarshal([]byte(out), &got), out)
			assert.Equal(t, *tt.want, got)
		})
	}
}

func serve(t *testing.T, target string, cfg adapter.Config) string {
	t.Helper()

	stdout, stderr := os.Stdout, os.Stderr

	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout, os.Stderr = w, w

	app := fiber.New(fiber.Config{CaseSensitive: true, Immutable: true})
	app.Use(adapter.New(cfg))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("hello test") })
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	_, err = app.Test(httptest.NewRequest(fiber.MethodGet, target, nil), -1)

	outC := make(chan string)

	go func() {
		var buf bytes.Buffer

		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	_ = w.Close()
	os.Stdout, os.Stderr = stdout, stderr
	out := <-outC

	require.NoError(t, err)

	return out
}
