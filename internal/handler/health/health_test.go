package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/playperu/dailygeo/internal/database"
	"github.com/playperu/dailygeo/internal/handler/health"
)

type mockChecker struct{ err error }

func (m mockChecker) Check(_ context.Context) error { return m.err }

func TestCheckFuncHonoursTimeout(t *testing.T) {
	slow := health.CheckFunc(func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		if !ok {
			return errors.New("no deadline")
		}
		return nil
	})
	h := health.NewHandler(zerolog.Nop(), map[string]health.Checker{"database": slow})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]health.Checker
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name: "all healthy",
			checks: map[string]health.Checker{
				"database": mockChecker{},
				"redis":    mockChecker{},
			},
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"database": "ok", "redis": "ok"},
		},
		{
			name: "database down",
			checks: map[string]health.Checker{
				"database": mockChecker{err: errors.New("locked")},
				"redis":    mockChecker{},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"database": "error", "redis": "ok"},
		},
		{
			name: "redis down",
			checks: map[string]health.Checker{
				"database": mockChecker{},
				"redis":    mockChecker{err: errors.New("refused")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"database": "ok", "redis": "error"},
		},
		{
			name: "both down",
			checks: map[string]health.Checker{
				"database": mockChecker{err: errors.New("db")},
				"redis":    mockChecker{err: errors.New("cache")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"database": "error", "redis": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(zerolog.Nop(), tt.checks)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]struct{ Status string }
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response: %v", err)
			}

			for name, want := range tt.wantBody {
				if got := body[name].Status; got != want {
					t.Errorf("%s status = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestChecksRunConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	rendezvous := health.CheckFunc(func(ctx context.Context) error {
		started.Done()
		done := make(chan struct{})
		go func() { started.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	h := health.NewHandler(zerolog.Nop(), map[string]health.Checker{"database": rendezvous, "redis": rendezvous})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	results, healthy := h.Run(ctx)
	if !healthy {
		t.Fatalf("checks ran one after another: %+v", results)
	}
}

func TestResultReportsLatency(t *testing.T) {
	slow := health.CheckFunc(func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	h := health.NewHandler(zerolog.Nop(), map[string]health.Checker{"database": slow})

	results, healthy := h.Run(context.Background())
	if !healthy {
		t.Fatal("expected healthy")
	}
	if got := results["database"].LatencyMs; got < 20 {
		t.Errorf("latencyMs = %d, want >= 20", got)
	}
}

func TestDatabaseChecker(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverLibSQL, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	check := health.Database(db)
	if err := check.Check(ctx); err != nil {
		t.Fatalf("open pool: %v", err)
	}
	db.Close()
	if err := check.Check(ctx); err == nil {
		t.Fatal("closed pool reported healthy")
	}
}

func TestRedisCheckerUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	if err := health.Redis(rdb).Check(context.Background()); err == nil {
		t.Fatal("unreachable redis reported healthy")
	}
}
