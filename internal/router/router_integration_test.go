//go:build integration

package router

// End-to-end run of the shift lifecycle against real Postgres and Redis.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"fuelpump/internal/config"
	"fuelpump/internal/infra"
	"fuelpump/internal/model"
	"fuelpump/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func do(t *testing.T, srv *httptest.Server, method, path string, body any, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server    *httptest.Server
	db        *gorm.DB
	token     string // admin JWT
	attendant uuid.UUID
	reports   string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("fuelpump_test"),
		tcPostgres.WithUsername("fuelpump"),
		tcPostgres.WithPassword("fuelpump"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(context.Background()) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                          "test",
		JWTSecret:                    "test-secret-key",
		JWTExpirationHours:           8,
		DatabaseURL:                  pgURL,
		RedisURL:                     rdURL,
		CashVarianceThreshold:        10,
		ConsumablePaymentAttribution: config.AttributionUnattributed,
		DraftTTLMinutes:              60,
		FuelPriceCacheSeconds:        60,
		RateLimitPerSec:              1000,
		RateLimitBurst:               1000,
		ReportStoragePath:            t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	// Seed tenant: one admin, one attendant, one fuel price
	tenant := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("fuelpump2026"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := &model.Staff{FuelPumpID: tenant, Name: "Admin", Username: "admin", PasswordHash: string(hash), Role: model.RoleAdmin, Active: true}
	attendant := &model.Staff{FuelPumpID: tenant, Name: "Ravi", Username: "ravi", PasswordHash: string(hash), Role: model.RoleStaff, Active: true}
	require.NoError(t, db.Create(admin).Error)
	require.NoError(t, db.Create(attendant).Error)
	require.NoError(t, db.Create(&model.FuelSetting{FuelPumpID: tenant, FuelType: "Diesel", CurrentPrice: decimal.NewFromInt(90)}).Error)

	queue := worker.NewRedisQueue(rdb)
	worker.StartWorkerPool(ctx, queue, 1, map[string]worker.JobHandler{
		worker.JobShiftReport: worker.NewReportWorker(worker.ReportWorkerConfig{StoragePath: cfg.ReportStoragePath}),
	})

	r := New(cfg, Deps{DB: db, Redis: rdb, Cache: infra.NewRedisCache(rdb), Reports: worker.NewDispatcher(queue)})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, http.MethodPost, "/v1/auth/login", map[string]string{"username": "admin", "password": "fuelpump2026"}, "")
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &login)
	require.NotEmpty(t, login.AccessToken)

	return &testEnv{server: srv, db: db, token: login.AccessToken, attendant: attendant.ID, reports: cfg.ReportStoragePath}
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestIntegration_ShiftLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	// 1. Start
	resp := do(t, env.server, http.MethodPost, "/v1/shifts", map[string]any{
		"staff_id":         env.attendant.String(),
		"pump_id":          "P1",
		"shift_type":       "morning",
		"starting_cash":    500,
		"opening_readings": []map[string]any{{"fuel_type": "diesel", "reading": 1000}},
	}, env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var shift struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &shift)
	base := "/v1/shifts/" + shift.ID

	// Second start for the same attendant is rejected
	resp = do(t, env.server, http.MethodPost, "/v1/shifts", map[string]any{"staff_id": env.attendant.String(), "pump_id": "P2"}, env.token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// 2. Closing form
	for _, patch := range []struct {
		path string
		body map[string]any
	}{
		{"/close/readings", map[string]any{"fuel_type": "Diesel", "value": "1100"}},
		{"/close/sales", map[string]any{"field": "cash_sales", "value": 9000}},
		{"/close/cash", map[string]any{"cash_remaining": 9005}},
	} {
		resp = do(t, env.server, http.MethodPatch, base+patch.path, patch.body, env.token)
		require.Equal(t, http.StatusOK, resp.StatusCode, patch.path)
		resp.Body.Close()
	}

	resp = do(t, env.server, http.MethodGet, base+"/close", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var draft struct {
		Usage struct {
			TotalLiters decimal.Decimal `json:"total_liters"`
		} `json:"usage"`
		ExpectedSalesAmount map[string]decimal.Decimal `json:"expected_sales_amount"`
	}
	decodeJSON(t, resp, &draft)
	assert.True(t, draft.Usage.TotalLiters.Equal(decimal.NewFromInt(100)))
	assert.True(t, draft.ExpectedSalesAmount["Diesel"].Equal(decimal.NewFromInt(9000)), "100 L at 90")

	// 3. Close
	resp = do(t, env.server, http.MethodPost, base+"/close", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var closed struct {
		Shift struct {
			Status string `json:"status"`
		} `json:"shift"`
		Reconciliation struct {
			Difference decimal.Decimal `json:"difference"`
			Flagged    bool            `json:"flagged"`
		} `json:"reconciliation"`
		Warnings []string `json:"warnings"`
	}
	decodeJSON(t, resp, &closed)
	assert.Equal(t, model.ShiftCompleted, closed.Shift.Status)
	assert.True(t, closed.Reconciliation.Difference.Equal(decimal.NewFromInt(5)))
	assert.False(t, closed.Reconciliation.Flagged)
	assert.Empty(t, closed.Warnings)

	// Closing twice conflicts
	resp = do(t, env.server, http.MethodPost, base+"/close", nil, env.token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// 4. Persisted rows
	var reading model.Reading
	require.NoError(t, env.db.Where("shift_id = ?", shift.ID).First(&reading).Error)
	require.NotNil(t, reading.ClosingReading)
	assert.True(t, reading.ClosingReading.Equal(decimal.NewFromInt(1100)))
	assert.True(t, reading.CashSales.Equal(decimal.NewFromInt(9000)))

	// 5. Report rendered by the worker pool
	require.Eventually(t, func() bool {
		matches, _ := filepath.Glob(filepath.Join(env.reports, "*.pdf"))
		return len(matches) == 1
	}, 10*time.Second, 100*time.Millisecond)

	// 6. Attendant is free again
	resp = do(t, env.server, http.MethodGet, "/v1/staff/available", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var staff []struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &staff)
	ids := make([]string, len(staff))
	for i, s := range staff {
		ids[i] = s.ID
	}
	assert.Contains(t, ids, env.attendant.String())
}
