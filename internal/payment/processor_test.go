package payment

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/ledger/ledgertest"
	"github.com/hardik-0129/backend/internal/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const secret = "whsec_test"

type MockDepositor struct{ mock.Mock }

func (m *MockDepositor) CreditDeposit(ctx context.Context, d wallet.Deposit) (*ledger.Transaction, bool, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*ledger.Transaction), args.Bool(1), args.Error(2)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	proc    *Processor
	gateway *HMACGateway
	store   *ledgertest.Store
	notes   *ledgertest.Notifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{gateway: NewHMACGateway(secret), store: ledgertest.New(), notes: &ledgertest.Notifier{}}
	f.store.PutAccount(ledger.Account{UserID: 7, JoinBalance: d("10"), WinBalance: d("0")})
	f.proc = NewProcessor(f.gateway, wallet.NewService(f.store, f.notes, nil))
	return f
}

func (f *fixture) event(t *testing.T, ev Event) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	return body, f.gateway.Sign(body)
}

func (f *fixture) join(t *testing.T, id int64) decimal.Decimal {
	a, err := f.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.JoinBalance
}

func TestHMACGateway(t *testing.T) {
	g := NewHMACGateway(secret)
	payload := []byte(`{"orderId":"o1"}`)
	sig := g.Sign(payload)

	assert.True(t, g.VerifySignature(payload, sig))
	assert.False(t, g.VerifySignature([]byte(`{"orderId":"o2"}`), sig))
	assert.False(t, g.VerifySignature(payload, "zz-not-hex"))
	assert.False(t, g.VerifySignature(payload, ""))
	assert.False(t, NewHMACGateway("other").VerifySignature(payload, sig))
	assert.False(t, NewHMACGateway("").VerifySignature(payload, NewHMACGateway("").Sign(payload)))
}

func TestWebhookCreditsOnce(t *testing.T) {
	f := newFixture(t)
	body, sig := f.event(t, Event{OrderID: "ORD_7_1001", PaymentID: "pay_1", Amount: d("100"), UserReference: "7", Status: "success"})

	res, err := f.proc.HandleWebhook(context.Background(), body, sig)
	require.NoError(t, err)
	assert.True(t, res.Credited)
	assert.Equal(t, "ORD_7_1001", res.Transaction.Ref())
	assert.Equal(t, ledger.MethodGateway, res.Transaction.PaymentMethod)
	assert.True(t, d("110").Equal(f.join(t, 7)))

	res, err = f.proc.HandleWebhook(context.Background(), body, sig)
	require.NoError(t, err)
	assert.False(t, res.Credited)
	assert.True(t, d("110").Equal(f.join(t, 7)))
	assert.Len(t, f.store.Transactions(), 1)
	assert.Len(t, f.notes.For(7), 1)
}

func TestWebhookConcurrentRedelivery(t *testing.T) {
	f := newFixture(t)
	body, sig := f.event(t, Event{OrderID: "ORD_7_2002", Amount: d("50"), UserReference: "7", Status: "completed"})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		credits int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.proc.HandleWebhook(context.Background(), body, sig)
			if assert.NoError(t, err) && res.Credited {
				mu.Lock()
				credits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, credits)
	assert.True(t, d("60").Equal(f.join(t, 7)))
}

func TestWebhookUserFromOrderID(t *testing.T) {
	f := newFixture(t)
	body, sig := f.event(t, Event{OrderID: "ORD_7_3003", Amount: d("5"), Status: "PAID"})

	res, err := f.proc.HandleWebhook(context.Background(), body, sig)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Transaction.UserID)
}

func TestWebhookRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	good, goodSig := f.event(t, Event{OrderID: "ORD_7_1", Amount: d("5"), UserReference: "7", Status: "success"})
	_, err := f.proc.HandleWebhook(ctx, good, "deadbeef")
	assert.ErrorIs(t, err, ledger.ErrInvalidSignature)

	tampered := []byte(string(good[:len(good)-1]) + " }")
	_, err = f.proc.HandleWebhook(ctx, tampered, goodSig)
	assert.ErrorIs(t, err, ledger.ErrInvalidSignature)

	garbage := []byte("not json")
	_, err = f.proc.HandleWebhook(ctx, garbage, f.gateway.Sign(garbage))
	assert.ErrorIs(t, err, ledger.ErrInvalidPayload)

	noUser, sig := f.event(t, Event{OrderID: "plain", Amount: d("5"), Status: "success"})
	_, err = f.proc.HandleWebhook(ctx, noUser, sig)
	assert.ErrorIs(t, err, ledger.ErrInvalidPayload)

	zero, sig := f.event(t, Event{OrderID: "ORD_7_2", Amount: d("0"), UserReference: "7", Status: "success"})
	_, err = f.proc.HandleWebhook(ctx, zero, sig)
	assert.ErrorIs(t, err, ledger.ErrInvalidPayload)

	unknown, sig := f.event(t, Event{OrderID: "ORD_99_1", Amount: d("5"), Status: "success"})
	_, err = f.proc.HandleWebhook(ctx, unknown, sig)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.Empty(t, f.store.Transactions())
}

func TestWebhookIgnoresUnsettled(t *testing.T) {
	f := newFixture(t)
	body, sig := f.event(t, Event{OrderID: "ORD_7_9", Amount: d("5"), UserReference: "7", Status: "failed"})

	res, err := f.proc.HandleWebhook(context.Background(), body, sig)
	require.NoError(t, err)
	assert.True(t, res.Ignored)
	assert.Empty(t, f.store.Transactions())
}

func TestWebhookWithoutGateway(t *testing.T) {
	p := NewProcessor(nil, &MockDepositor{})
	_, err := p.HandleWebhook(context.Background(), []byte(`{}`), "x")
	assert.ErrorIs(t, err, ledger.ErrGatewayUnavailable)
}

func TestWebhookDepositFailure(t *testing.T) {
	dep := &MockDepositor{}
	g := NewHMACGateway(secret)
	p := NewProcessor(g, dep)
	body := []byte(`{"orderId":"ORD_7_1","amount":"5","userReference":"7","status":"success"}`)
	dep.On("CreditDeposit", mock.Anything, mock.MatchedBy(func(dp wallet.Deposit) bool {
		return dp.ExternalOrderID == "ORD_7_1" && dp.UserID == 7 && dp.Amount.Equal(d("5"))
	})).
		Return(nil, false, errors.New("db down")).Once()

	_, err := p.HandleWebhook(context.Background(), body, g.Sign(body))
	assert.EqualError(t, err, "db down")
	dep.AssertExpectations(t)
}

func TestVerifyClientPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sig := f.gateway.Sign(ClientPayload("order_1", "pay_1", d("25")))
	cp := ClientPayment{UserID: 7, OrderID: "order_1", PaymentID: "pay_1", Signature: sig, Amount: d("25")}

	res, err := f.proc.VerifyClientPayment(ctx, cp)
	require.NoError(t, err)
	assert.True(t, res.Credited)
	assert.Equal(t, "order_1", res.Transaction.Ref())
	assert.Equal(t, "pay_1", res.Transaction.Metadata[ledger.MetaPaymentID])
	assert.True(t, d("35").Equal(f.join(t, 7)))

	res, err = f.proc.VerifyClientPayment(ctx, cp)
	require.NoError(t, err)
	assert.False(t, res.Credited)
	assert.True(t, d("35").Equal(f.join(t, 7)))

	bad := cp
	bad.PaymentID = "pay_2"
	_, err = f.proc.VerifyClientPayment(ctx, bad)
	assert.ErrorIs(t, err, ledger.ErrInvalidSignature)

	bad = cp
	bad.Amount = d("-1")
	_, err = f.proc.VerifyClientPayment(ctx, bad)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestVerifyClientPaymentAmountIsSigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sig := f.gateway.Sign(ClientPayload("order_1", "pay_1", d("1")))

	_, err := f.proc.VerifyClientPayment(ctx, ClientPayment{UserID: 7, OrderID: "order_1", PaymentID: "pay_1", Signature: sig, Amount: d("100000")})
	assert.ErrorIs(t, err, ledger.ErrInvalidSignature)
	assert.True(t, d("10").Equal(f.join(t, 7)))
	assert.Empty(t, f.store.Transactions())

	_, err = f.proc.VerifyClientPayment(ctx, ClientPayment{UserID: 7, OrderID: "order_1", PaymentID: "pay_1", Signature: f.gateway.Sign(ClientPayload("order_1", "pay_1", d("1.004"))), Amount: d("1.004")})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	res, err := f.proc.VerifyClientPayment(ctx, ClientPayment{UserID: 7, OrderID: "order_1", PaymentID: "pay_1", Signature: sig, Amount: d("1.00")})
	require.NoError(t, err)
	assert.True(t, res.Credited)
	assert.True(t, d("11").Equal(f.join(t, 7)))
}

func TestClientVerifyThenWebhookCreditsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sig := f.gateway.Sign(ClientPayload("ORD_7_abc", "pay_1", d("25")))

	res, err := f.proc.VerifyClientPayment(ctx, ClientPayment{UserID: 7, OrderID: "ORD_7_abc", PaymentID: "pay_1", Signature: sig, Amount: d("25")})
	require.NoError(t, err)
	require.True(t, res.Credited)

	body, bodySig := f.event(t, Event{OrderID: "ORD_7_abc", PaymentID: "pay_1", Amount: d("25"), Status: "success"})
	res, err = f.proc.HandleWebhook(ctx, body, bodySig)
	require.NoError(t, err)
	assert.False(t, res.Credited)
	assert.True(t, d("35").Equal(f.join(t, 7)))
	assert.Len(t, f.store.Transactions(), 1)
}

func TestWebhookThenClientVerifyCreditsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	body, bodySig := f.event(t, Event{OrderID: "ORD_7_def", PaymentID: "pay_2", Amount: d("40"), Status: "captured"})
	res, err := f.proc.HandleWebhook(ctx, body, bodySig)
	require.NoError(t, err)
	require.True(t, res.Credited)

	sig := f.gateway.Sign(ClientPayload("ORD_7_def", "pay_2", d("40")))
	res, err = f.proc.VerifyClientPayment(ctx, ClientPayment{UserID: 7, OrderID: "ORD_7_def", PaymentID: "pay_2", Signature: sig, Amount: d("40")})
	require.NoError(t, err)
	assert.False(t, res.Credited)
	assert.True(t, d("50").Equal(f.join(t, 7)))
	assert.Len(t, f.store.Transactions(), 1)
}

func TestVerifyClientPaymentForeignReplay(t *testing.T) {
	f := newFixture(t)
	f.store.PutAccount(ledger.Account{UserID: 8})
	sig := f.gateway.Sign(ClientPayload("order_1", "pay_1", d("25")))

	_, err := f.proc.VerifyClientPayment(context.Background(), ClientPayment{UserID: 7, OrderID: "order_1", PaymentID: "pay_1", Signature: sig, Amount: d("25")})
	require.NoError(t, err)

	_, err = f.proc.VerifyClientPayment(context.Background(), ClientPayment{UserID: 8, OrderID: "order_1", PaymentID: "pay_1", Signature: sig, Amount: d("25")})
	assert.ErrorIs(t, err, ledger.ErrDuplicateReference)
}
