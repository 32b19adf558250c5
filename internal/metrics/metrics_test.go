package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/wallet/withdraw", "200", 0.1)
	RecordHTTPRequest("POST", "/wallet/withdraw", "200", 0.2)
	RecordHTTPRequest("POST", "/wallet/withdraw", "400", 0.05)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/wallet/withdraw", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/wallet/withdraw", "400")))
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordBooking(t *testing.T) {
	BookingsTotal.Reset()
	before := testutil.ToFloat64(PositionsBookedTotal)

	RecordBooking("confirmed", "paid", 3)
	RecordBooking("confirmed", "free", 1)
	RecordBooking("rejected", "paid", 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(BookingsTotal.WithLabelValues("confirmed", "paid")))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingsTotal.WithLabelValues("confirmed", "free")))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingsTotal.WithLabelValues("rejected", "paid")))
	assert.Equal(t, before+4, testutil.ToFloat64(PositionsBookedTotal))
}

func TestRecordWithdrawal(t *testing.T) {
	WithdrawalsTotal.Reset()

	RecordWithdrawal("PENDING_ADMIN_APPROVAL")
	RecordWithdrawal("ADMIN_APPROVED")
	RecordWithdrawal("ADMIN_APPROVED")

	assert.Equal(t, float64(1), testutil.ToFloat64(WithdrawalsTotal.WithLabelValues("PENDING_ADMIN_APPROVAL")))
	assert.Equal(t, float64(2), testutil.ToFloat64(WithdrawalsTotal.WithLabelValues("ADMIN_APPROVED")))
}

func TestRecordDeposit(t *testing.T) {
	DepositsTotal.Reset()

	RecordDeposit("credited")
	RecordDeposit("duplicate")
	RecordDeposit("duplicate")

	assert.Equal(t, float64(1), testutil.ToFloat64(DepositsTotal.WithLabelValues("credited")))
	assert.Equal(t, float64(2), testutil.ToFloat64(DepositsTotal.WithLabelValues("duplicate")))
}

func TestRecordReferralReward(t *testing.T) {
	ReferralRewardsTotal.Reset()

	RecordReferralReward("signup_referral")
	RecordReferralReward("match_win_referral")

	assert.Equal(t, float64(1), testutil.ToFloat64(ReferralRewardsTotal.WithLabelValues("signup_referral")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ReferralRewardsTotal.WithLabelValues("match_win_referral")))
}

func TestRecordNotification(t *testing.T) {
	NotificationsTotal.Reset()

	RecordNotification("sent")
	RecordNotification("failed")

	assert.Equal(t, float64(1), testutil.ToFloat64(NotificationsTotal.WithLabelValues("sent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(NotificationsTotal.WithLabelValues("failed")))
}

func TestNotifyQueueLength(t *testing.T) {
	NotifyQueueLength.Set(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(NotifyQueueLength))
	NotifyQueueLength.Set(0)
}

func TestRecordWinningPaid(t *testing.T) {
	before := testutil.ToFloat64(WinningsPaidTotal)
	RecordWinningPaid()
	assert.Equal(t, before+1, testutil.ToFloat64(WinningsPaidTotal))
}
