package wallet

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hardik-0129/backend/internal/api"
	"github.com/hardik-0129/backend/internal/auth"
	"github.com/hardik-0129/backend/internal/ledger"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	b, err := h.svc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	f := filterFromQuery(c)
	f.UserID = userID

	txs, err := h.svc.ListTransactions(c.Request.Context(), f)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs, "limit": f.Limit, "offset": f.Offset})
}

func (h *Handler) ReferralEarnings(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, offset := api.Page(c)
	e, err := h.svc.ReferralEarnings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, e)
}

// AdminListTransactions lists transactions across users. user_id, type and
// status narrow the listing; type and status accept comma separated values.
func (h *Handler) AdminListTransactions(c *gin.Context) {
	f := filterFromQuery(c)
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			api.BadRequest(c, "invalid user_id")
			return
		}
		f.UserID = id
	}

	txs, err := h.svc.ListTransactions(c.Request.Context(), f)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs, "limit": f.Limit, "offset": f.Offset})
}

func (h *Handler) AddWinning(c *gin.Context) {
	var req AddWinningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "user_id and amount are required")
		return
	}

	res, err := h.svc.AddWinning(c.Request.Context(), Winning{
		UserID:      req.UserID,
		Amount:      req.Amount,
		MatchRef:    req.MatchRef,
		Description: req.Description,
	})
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) AddJoinMoney(c *gin.Context) {
	adminID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req AddJoinMoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequest(c, "user_id and amount are required")
		return
	}

	tx, err := h.svc.AddJoinMoney(c.Request.Context(), req.UserID, req.Amount, adminID, req.Note)
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "join money added", "transaction": tx})
}

func filterFromQuery(c *gin.Context) ledger.TransactionFilter {
	var f ledger.TransactionFilter
	f.Limit, f.Offset = api.Page(c)
	for _, t := range splitList(c.Query("type")) {
		f.Types = append(f.Types, ledger.TxType(strings.ToUpper(t)))
	}
	for _, s := range splitList(c.Query("status")) {
		f.Statuses = append(f.Statuses, ledger.TxStatus(strings.ToUpper(s)))
	}
	return f
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
