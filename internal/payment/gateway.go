// Package payment turns verified gateway callbacks into wallet deposits.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

// Gateway verifies that a payload was signed by the payment provider.
type Gateway interface {
	VerifySignature(payload []byte, signature string) bool
}

// HMACGateway checks hex encoded HMAC-SHA256 signatures made with a shared secret.
type HMACGateway struct {
	secret []byte
}

func NewHMACGateway(secret string) *HMACGateway {
	return &HMACGateway{secret: []byte(secret)}
}

func (g *HMACGateway) VerifySignature(payload []byte, signature string) bool {
	if len(g.secret) == 0 || signature == "" {
		return false
	}
	want, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(want, g.sign(payload))
}

// Sign returns the hex signature of payload. The provider side and tests use it.
func (g *HMACGateway) Sign(payload []byte) string {
	return hex.EncodeToString(g.sign(payload))
}

func (g *HMACGateway) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// ClientPayload is what the checkout widget signs after a successful payment.
// The amount is rendered with two decimals so 25 and 25.00 sign the same.
func ClientPayload(orderID, paymentID string, amount decimal.Decimal) []byte {
	return []byte(orderID + "|" + paymentID + "|" + amount.StringFixed(2))
}
