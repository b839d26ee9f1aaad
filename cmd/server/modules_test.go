package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/shiftmatch/internal/infrastructure"
	"github.com/JaimeStill/shiftmatch/pkg/database"
	"github.com/JaimeStill/shiftmatch/pkg/lifecycle"
)

type fakeDatabase struct {
	pingErr error
}

func (f *fakeDatabase) Connection() *sql.DB                { return nil }
func (f *fakeDatabase) Start(*lifecycle.Coordinator) error { return nil }
func (f *fakeDatabase) Ping(context.Context) error         { return f.pingErr }

func newTestInfra(db *fakeDatabase) *infrastructure.Infrastructure {
	return &infrastructure.Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Database:  db,
	}
}

func TestHealthz(t *testing.T) {
	router := buildRouter(newTestInfra(&fakeDatabase{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name    string
		started bool
		pingErr error
		want    int
	}{
		{"starting", false, nil, http.StatusServiceUnavailable},
		{"ready", true, nil, http.StatusOK},
		{"database down", true, errors.Join(database.ErrNotReady, errors.New("refused")), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			infra := newTestInfra(&fakeDatabase{pingErr: tt.pingErr})
			if tt.started {
				infra.Lifecycle.WaitForStartup()
			}
			router := buildRouter(infra)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
