package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hardik-0129/backend/internal/api"
	"github.com/hardik-0129/backend/internal/auth"
	"github.com/hardik-0129/backend/internal/booking"
	"github.com/hardik-0129/backend/internal/config"
	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/ledger/ledgertest"
	"github.com/hardik-0129/backend/internal/match"
	"github.com/hardik-0129/backend/internal/payment"
	"github.com/hardik-0129/backend/internal/user"
	"github.com/hardik-0129/backend/internal/wallet"
	"github.com/hardik-0129/backend/internal/withdrawal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type noUsers struct{ user.Repository }

type noSlots struct{ match.Repository }

func (noSlots) ListSlots(context.Context, ledger.SlotStatus, int, int) ([]match.Slot, error) {
	return nil, nil
}

func newTestServer(t *testing.T, burst int) (*Server, *ledgertest.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := ledgertest.New()
	st.PutAccount(ledger.Account{UserID: 1, JoinBalance: decimal.NewFromInt(20)})
	n := &ledgertest.Notifier{}

	walletSvc := wallet.NewService(st, n, nil)
	cfg := &config.Config{JWTSecret: testSecret, RateLimitRPS: 0.001, RateLimitBurst: burst}

	srv := New(cfg, Handlers{
		Users:       user.NewHandler(user.NewService(noUsers{}, st, nil, user.Config{AccessSecret: testSecret})),
		Wallet:      wallet.NewHandler(walletSvc),
		Bookings:    booking.NewHandler(booking.NewService(st, n, nil)),
		Withdrawals: withdrawal.NewHandler(withdrawal.NewService(st, n, nil, withdrawal.Config{Minimum: decimal.NewFromInt(10)})),
		Payments:    payment.NewHandler(payment.NewProcessor(payment.NewHMACGateway("whsec"), walletSvc)),
		Matches:     match.NewHandler(match.NewService(noSlots{}, st, walletSvc)),
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, st
}

func token(t *testing.T, role string) string {
	t.Helper()
	access, err := auth.NewIssuer(testSecret, "").Access(auth.Identity{UserID: 1, Email: "player@example.com", Role: role})
	require.NoError(t, err)
	return access
}

func do(srv *Server, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServerRoutes(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	userToken := token(t, auth.RoleUser)
	adminToken := token(t, auth.RoleAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		bearer string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"public slots", http.MethodGet, "/slots", "", http.StatusOK},
		{"balance needs token", http.MethodGet, "/wallet/balance", "", http.StatusUnauthorized},
		{"balance", http.MethodGet, "/wallet/balance", userToken, http.StatusOK},
		{"own transactions", http.MethodGet, "/wallet/transactions", userToken, http.StatusOK},
		{"own withdrawals", http.MethodGet, "/wallet/withdrawals", userToken, http.StatusOK},
		{"admin needs role", http.MethodGet, "/admin/transactions", userToken, http.StatusForbidden},
		{"admin transactions", http.MethodGet, "/admin/transactions", adminToken, http.StatusOK},
		{"admin withdrawals", http.MethodGet, "/admin/withdrawals", adminToken, http.StatusOK},
		{"webhook without signature", http.MethodPost, "/wallet/payment/webhook", "", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, tt.method, tt.path, tt.bearer)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestHealthReportsDependencies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	redisUp := true
	checks := map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis": func(context.Context) error {
			if redisUp {
				return nil
			}
			return errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
		},
	}
	r := gin.New()
	r.GET("/health", Health(checks))

	get := func() (int, api.HealthResponse) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		var body api.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w.Code, body
	}

	code, body := get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Checks)

	redisUp = false
	code, body = get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Contains(t, body.Checks["redis"], "connection refused")
}

func TestServerRateLimitsAuth(t *testing.T) {
	srv, _ := newTestServer(t, 2)

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusBadRequest, login())
	assert.Equal(t, http.StatusBadRequest, login())
	assert.Equal(t, http.StatusTooManyRequests, login())
}

func TestServerShutdownBeforeStart(t *testing.T) {
	srv, _ := newTestServer(t, 1)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
