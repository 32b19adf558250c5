package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ledger.ErrInsufficientFunds, http.StatusBadRequest},
		{ledger.ErrBelowMinimum, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", ledger.ErrSlotFull), http.StatusConflict},
		{&ledger.PositionConflictError{Pairs: []string{"team1-1"}}, http.StatusConflict},
		{ledger.ErrWithdrawalNotFound, http.StatusNotFound},
		{ledger.ErrInvalidSignature, http.StatusBadRequest},
		{ledger.ErrGatewayUnavailable, http.StatusBadGateway},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestFailWritesDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/slots/1/book", nil)

	Fail(c, &ledger.PositionConflictError{Pairs: []string{"team1-1", "team1-2"}})

	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "team1-1")
	details := body["details"].(map[string]interface{})
	assert.Len(t, details["positions"], 2)
}

func TestFailMasksInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)

	Fail(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}
