package withdrawal

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hardik-0129/backend/internal/api"
	"github.com/hardik-0129/backend/internal/auth"
	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type RequestBody struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"250"`
	UPIID  string          `json:"upiId" example:"player@upi"`
}

type RejectBody struct {
	Reason string `json:"reason" binding:"required" example:"UPI id does not match KYC"`
}

// Request godoc
// @Summary Request a withdrawal
// @Description Holds the amount from the win balance until an admin reviews it
// @Tags withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RequestBody true "Withdrawal"
// @Success 201 {object} ledger.Transaction
// @Failure 400 {object} api.ErrorResponse
// @Router /wallet/withdraw [post]
func (h *Handler) Request(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req RequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		api.InvalidBody(c, err)
		return
	}

	tx, err := h.svc.Request(c.Request.Context(), userID, req.Amount, req.UPIID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// ListMine returns the caller's withdrawal history.
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	h.list(c, userID)
}

// List godoc
// @Summary List withdrawal requests
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param user_id query int false "Filter by user"
// @Success 200 {array} ledger.Transaction
// @Router /admin/withdrawals [get]
func (h *Handler) List(c *gin.Context) {
	var userID int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			api.BadRequest(c, "invalid user_id")
			return
		}
		userID = id
	}
	h.list(c, userID)
}

func (h *Handler) list(c *gin.Context, userID int64) {
	var statuses []ledger.TxStatus
	if raw := c.Query("status"); raw != "" {
		st, ok := ParseStatus(raw)
		if !ok {
			api.BadRequest(c, "invalid status")
			return
		}
		statuses = append(statuses, st)
	}

	limit, offset := api.Page(c)
	txs, err := h.svc.List(c.Request.Context(), userID, statuses, limit, offset)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawals": txs, "limit": limit, "offset": offset})
}

// Approve godoc
// @Summary Approve a pending withdrawal
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param transactionID path string true "Withdrawal transaction ID"
// @Success 200 {object} ledger.Transaction
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/withdrawals/{transactionID}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	adminID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	tx, err := h.svc.Approve(c.Request.Context(), c.Param("transactionID"), adminID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// Reject godoc
// @Summary Reject a pending withdrawal
// @Description Releases the held amount back to the win balance
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transactionID path string true "Withdrawal transaction ID"
// @Param request body RejectBody true "Reason"
// @Success 200 {object} ledger.Transaction
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/withdrawals/{transactionID}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	adminID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req RejectBody
	if err := c.ShouldBindJSON(&req); err != nil {
		api.Fail(c, ledger.ErrReasonRequired)
		return
	}

	tx, err := h.svc.Reject(c.Request.Context(), c.Param("transactionID"), adminID, req.Reason)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}
