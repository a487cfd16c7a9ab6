// Package devservertest starts the reference backend over an in-memory
// sqlite database for tests.
package devservertest

import (
	"context"
	"net/http/httptest"
	"testing"

	"docqa/internal/config"
	"docqa/internal/devserver"
	"docqa/internal/platform/database"
	httptransport "docqa/internal/transport/http"
)

// New returns a running server and its App. Both are torn down with t.
func New(t testing.TB) (*httptest.Server, *devserver.App) {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{Name: "docqa-devserver", Env: "test"},
		DevServer: config.DevServerConfig{
			GinMode:         "test",
			JWTSecret:       "test-secret",
			JWTExpireMinute: 30,
			Database:        config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"},
		},
	}

	db, err := database.Open(context.Background(), cfg.DevServer.Database)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	app, err := devserver.NewWithDB(db, cfg, nil)
	if err != nil {
		_ = database.Close(db)
		t.Fatalf("build devserver: %v", err)
	}

	server := httptest.NewServer(httptransport.NewRouter(app))
	t.Cleanup(func() {
		server.Close()
		_ = app.Close()
	})
	return server, app
}
