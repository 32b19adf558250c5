package payment

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/logger"
	"github.com/hardik-0129/backend/internal/wallet"
	"github.com/shopspring/decimal"
)

// Depositor is the wallet operation a confirmed payment ends in.
type Depositor interface {
	CreditDeposit(ctx context.Context, d wallet.Deposit) (*ledger.Transaction, bool, error)
}

// Event is the provider's payment notification.
type Event struct {
	OrderID       string          `json:"orderId"`
	PaymentID     string          `json:"paymentId"`
	Amount        decimal.Decimal `json:"amount"`
	UserReference string          `json:"userReference"`
	Status        string          `json:"status"`
}

// Succeeded reports whether the provider considers the payment settled.
func (e Event) Succeeded() bool {
	switch strings.ToLower(e.Status) {
	case "success", "completed", "paid", "captured":
		return true
	}
	return false
}

// UserID resolves the paying user from userReference, or from an order id of
// the form ORD_<userId>_<suffix> when no reference was sent.
func (e Event) UserID() (int64, bool) {
	if id, err := strconv.ParseInt(strings.TrimSpace(e.UserReference), 10, 64); err == nil && id > 0 {
		return id, true
	}
	parts := strings.Split(e.OrderID, "_")
	if len(parts) >= 3 {
		if id, err := strconv.ParseInt(parts[1], 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

type Result struct {
	Transaction *ledger.Transaction `json:"transaction,omitempty"`
	// Credited is false for replays of an already credited payment.
	Credited bool `json:"credited"`
	// Ignored is true for events that do not report a settled payment.
	Ignored bool `json:"ignored,omitempty"`
}

type ClientPayment struct {
	UserID    int64
	OrderID   string
	PaymentID string
	Signature string
	Amount    decimal.Decimal
}

type Processor struct {
	gateway Gateway
	wallet  Depositor
}

func NewProcessor(gateway Gateway, wallet Depositor) *Processor {
	return &Processor{gateway: gateway, wallet: wallet}
}

// HandleWebhook verifies and applies one provider notification. Redelivered
// events are acknowledged without crediting twice.
func (p *Processor) HandleWebhook(ctx context.Context, body []byte, signature string) (*Result, error) {
	if p.gateway == nil {
		return nil, ledger.ErrGatewayUnavailable
	}
	if !p.gateway.VerifySignature(body, signature) {
		logger.Warn("payment webhook rejected: bad signature")
		return nil, ledger.ErrInvalidSignature
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, ledger.ErrInvalidPayload
	}
	if strings.TrimSpace(ev.OrderID) == "" || !ev.Amount.IsPositive() {
		return nil, ledger.ErrInvalidPayload
	}
	if !ev.Succeeded() {
		logger.Info("payment webhook ignored", "order_id", ev.OrderID, "status", ev.Status)
		return &Result{Ignored: true}, nil
	}

	userID, ok := ev.UserID()
	if !ok {
		return nil, ledger.ErrInvalidPayload
	}

	tx, created, err := p.wallet.CreditDeposit(ctx, wallet.Deposit{
		ExternalOrderID: ev.OrderID,
		UserID:          userID,
		Amount:          ev.Amount,
		PaymentID:       ev.PaymentID,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Transaction: tx, Credited: created}, nil
}

// VerifyClientPayment credits a payment confirmed by the checkout widget. The
// signature covers the amount, and the order id is the idempotency key shared
// with HandleWebhook, so a payment confirmed both ways is credited once.
func (p *Processor) VerifyClientPayment(ctx context.Context, cp ClientPayment) (*Result, error) {
	if p.gateway == nil {
		return nil, ledger.ErrGatewayUnavailable
	}
	if cp.OrderID == "" || cp.PaymentID == "" {
		return nil, ledger.ErrInvalidPayload
	}
	// the signed form carries two decimals, so finer amounts cannot be verified
	if !cp.Amount.IsPositive() || !cp.Amount.Equal(cp.Amount.Round(2)) {
		return nil, ledger.ErrInvalidAmount
	}
	if !p.gateway.VerifySignature(ClientPayload(cp.OrderID, cp.PaymentID, cp.Amount), cp.Signature) {
		logger.Warn("client payment rejected: bad signature", "user_id", cp.UserID, "order_id", cp.OrderID)
		return nil, ledger.ErrInvalidSignature
	}

	tx, created, err := p.wallet.CreditDeposit(ctx, wallet.Deposit{
		ExternalOrderID: cp.OrderID,
		UserID:          cp.UserID,
		Amount:          cp.Amount,
		PaymentID:       cp.PaymentID,
	})
	if err != nil {
		return nil, err
	}
	if !created && tx.UserID != cp.UserID {
		return nil, ledger.ErrDuplicateReference
	}
	return &Result{Transaction: tx, Credited: created}, nil
}
