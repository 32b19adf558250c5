package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hardik-0129/backend/internal/api"
	"github.com/hardik-0129/backend/internal/auth"
	"github.com/shopspring/decimal"
)

// SignatureHeader carries the provider's signature of the raw webhook body.
const SignatureHeader = "X-Payment-Signature"

type Handler struct {
	processor *Processor
}

func NewHandler(processor *Processor) *Handler {
	return &Handler{processor: processor}
}

type VerifyRequest struct {
	OrderID   string          `json:"orderId" binding:"required"`
	PaymentID string          `json:"paymentId" binding:"required"`
	Signature string          `json:"signature" binding:"required"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"100"`
}

// Webhook godoc
// @Summary Payment provider callback
// @Description Credits the join balance once per order id
// @Tags wallet
// @Accept json
// @Produce json
// @Param X-Payment-Signature header string true "HMAC-SHA256 of the body"
// @Success 200 {object} Result
// @Failure 400 {object} api.ErrorResponse
// @Router /wallet/payment/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		api.BadRequest(c, "unreadable body")
		return
	}

	res, err := h.processor.HandleWebhook(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Verify godoc
// @Summary Confirm a checkout payment
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body VerifyRequest true "Payment confirmation"
// @Success 200 {object} Result
// @Failure 400 {object} api.ErrorResponse
// @Router /wallet/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.InvalidBody(c, err)
		return
	}

	res, err := h.processor.VerifyClientPayment(c.Request.Context(), ClientPayment{
		UserID:    userID,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		Amount:    req.Amount,
	})
	if err != nil {
		api.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
