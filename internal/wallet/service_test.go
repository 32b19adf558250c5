package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/ledger/ledgertest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReferrals struct{ mock.Mock }

func (m *MockReferrals) MatchWinCommission(ctx context.Context, winnerID int64, amount decimal.Decimal, winTxID, matchRef string) (*ledger.Transaction, error) {
	args := m.Called(ctx, winnerID, amount, winTxID, matchRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T, join, win string) (Service, *ledgertest.Store, *ledgertest.Notifier, *MockReferrals) {
	t.Helper()
	st := ledgertest.New()
	st.PutAccount(ledger.Account{UserID: 1, JoinBalance: d(join), WinBalance: d(win), ReferralCode: "Alpha1001"})
	n := &ledgertest.Notifier{}
	refs := &MockReferrals{}
	return NewService(st, n, refs), st, n, refs
}

func TestGetBalanceTotalPayouts(t *testing.T) {
	svc, st, _, _ := setup(t, "20", "30")
	st.PutTransaction(ledger.Transaction{ID: "a", UserID: 1, Type: ledger.TxWithdraw, Amount: d("10"), Status: ledger.StatusApproved})
	st.PutTransaction(ledger.Transaction{ID: "b", UserID: 1, Type: ledger.TxWithdraw, Amount: d("15"), Status: ledger.StatusPendingApproval})
	st.PutTransaction(ledger.Transaction{ID: "c", UserID: 1, Type: ledger.TxDebit, Amount: d("2.5"), Status: ledger.StatusSuccess})
	st.PutTransaction(ledger.Transaction{ID: "e", UserID: 1, Type: ledger.TxBooking, Amount: d("12"), Status: ledger.StatusSuccess})
	st.PutTransaction(ledger.Transaction{ID: "f", UserID: 2, Type: ledger.TxWithdraw, Amount: d("99"), Status: ledger.StatusApproved})

	b, err := svc.GetBalance(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, b.TotalBalance.Equal(d("50")))
	assert.True(t, b.TotalPayouts.Equal(d("12.5")), b.TotalPayouts.String())
}

func TestGetBalanceUnknownUser(t *testing.T) {
	svc, _, _, _ := setup(t, "0", "0")
	_, err := svc.GetBalance(context.Background(), 99)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestCreditDepositReplay(t *testing.T) {
	svc, st, n, _ := setup(t, "0", "0")
	ctx := context.Background()
	dep := Deposit{ExternalOrderID: "order_X", UserID: 1, Amount: d("100"), PaymentID: "pay_1"}

	first, created, err := svc.CreditDeposit(ctx, dep)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.CreditDeposit(ctx, dep)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	acct, _ := st.GetAccount(ctx, 1)
	assert.True(t, acct.JoinBalance.Equal(d("100")))
	assert.Len(t, st.Transactions(), 1)
	assert.Len(t, n.Events(), 1)
}

func TestCreditDepositConcurrentReplay(t *testing.T) {
	svc, st, _, _ := setup(t, "0", "0")
	ctx := context.Background()
	dep := Deposit{ExternalOrderID: "order_Y", UserID: 1, Amount: d("40")}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		credits int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := svc.CreditDeposit(ctx, dep)
			assert.NoError(t, err)
			if created {
				mu.Lock()
				credits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, credits)
	acct, _ := st.GetAccount(ctx, 1)
	assert.True(t, acct.JoinBalance.Equal(d("40")))
}

func TestCreditDepositValidation(t *testing.T) {
	svc, _, _, _ := setup(t, "0", "0")
	ctx := context.Background()

	_, _, err := svc.CreditDeposit(ctx, Deposit{ExternalOrderID: "o", UserID: 1, Amount: d("0")})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, _, err = svc.CreditDeposit(ctx, Deposit{UserID: 1, Amount: d("5")})
	assert.Error(t, err)

	_, _, err = svc.CreditDeposit(ctx, Deposit{ExternalOrderID: "o", UserID: 42, Amount: d("5")})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestAddWinningTriggersCommission(t *testing.T) {
	svc, st, n, refs := setup(t, "0", "10")
	refs.On("MatchWinCommission", mock.Anything, int64(1), d("100"), mock.AnythingOfType("string"), "slot-7").
		Return(nil, nil).Once()

	res, err := svc.AddWinning(context.Background(), Winning{UserID: 1, Amount: d("100"), MatchRef: "slot-7"})
	require.NoError(t, err)
	assert.True(t, res.NewWinBalance.Equal(d("110")))
	assert.Equal(t, ledger.TxWin, res.Transaction.Type)
	assert.Equal(t, ledger.CategoryWin, res.Transaction.Metadata[ledger.MetaCategory])
	assert.Len(t, st.Transactions(), 1)
	assert.Len(t, n.For(1), 1)
	refs.AssertExpectations(t)
}

func TestAddWinningCommissionFailureIsSwallowed(t *testing.T) {
	svc, st, _, refs := setup(t, "0", "0")
	refs.On("MatchWinCommission", mock.Anything, int64(1), d("50"), mock.Anything, "").
		Return(nil, errors.New("referrer locked")).Once()

	res, err := svc.AddWinning(context.Background(), Winning{UserID: 1, Amount: d("50")})
	require.NoError(t, err)
	assert.True(t, res.NewWinBalance.Equal(d("50")))

	acct, _ := st.GetAccount(context.Background(), 1)
	assert.True(t, acct.WinBalance.Equal(d("50")))
}

func TestAddWinningIdempotentPerWinner(t *testing.T) {
	svc, st, _, refs := setup(t, "0", "0")
	refs.On("MatchWinCommission", mock.Anything, int64(1), d("25"), mock.Anything, "slot-3").
		Return(nil, nil).Once()
	w := Winning{UserID: 1, Amount: d("25"), MatchRef: "slot-3", WinnerID: 77}

	first, err := svc.AddWinning(context.Background(), w)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, "WIN_77", first.Transaction.Ref())

	second, err := svc.AddWinning(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.True(t, second.NewWinBalance.Equal(d("25")))
	assert.Len(t, st.Transactions(), 1)
	refs.AssertExpectations(t)
}

func TestAddJoinMoney(t *testing.T) {
	svc, st, _, _ := setup(t, "5", "0")

	tx, err := svc.AddJoinMoney(context.Background(), 1, d("15"), 900, "")
	require.NoError(t, err)
	assert.Equal(t, ledger.MethodAdmin, tx.PaymentMethod)
	assert.Equal(t, "900", tx.Metadata[ledger.MetaAdminID])

	acct, _ := st.GetAccount(context.Background(), 1)
	assert.True(t, acct.JoinBalance.Equal(d("20")))

	_, err = svc.AddJoinMoney(context.Background(), 1, d("-1"), 900, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestReferralEarnings(t *testing.T) {
	svc, st, _, _ := setup(t, "0", "0")
	st.PutAccount(ledger.Account{UserID: 1, ReferralCode: "Alpha1001", TotalReferralEarnings: d("8"), TotalReferralCount: 2})
	st.PutTransaction(ledger.Transaction{ID: "r1", UserID: 1, Type: ledger.TxCredit, Amount: d("5"),
		Metadata: ledger.Metadata{ledger.MetaBonusType: ledger.BonusFirstPaidMatch}})
	st.PutTransaction(ledger.Transaction{ID: "r2", UserID: 1, Type: ledger.TxCredit, Amount: d("3"),
		Metadata: ledger.Metadata{ledger.MetaBonusType: ledger.BonusWithdrawal}})
	st.PutTransaction(ledger.Transaction{ID: "x", UserID: 1, Type: ledger.TxCredit, Amount: d("100"),
		Metadata: ledger.Metadata{ledger.MetaOrderID: "o1"}})

	e, err := svc.ReferralEarnings(context.Background(), 1, 50, 0)
	require.NoError(t, err)
	assert.True(t, e.Total.Equal(d("8")))
	assert.Equal(t, 2, e.Count)
	assert.Equal(t, 2, e.Referrals)
	assert.Equal(t, "Alpha1001", e.ReferralCode)
}
