package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arena_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_bookings_total",
			Help: "Booking attempts by outcome and payment kind (free or paid)",
		},
		[]string{"status", "payment"},
	)

	PositionsBookedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arena_positions_booked_total",
			Help: "Total number of team positions booked",
		},
	)

	WithdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_withdrawals_total",
			Help: "Withdrawal requests and reviews by status",
		},
		[]string{"status"},
	)

	DepositsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_deposits_total",
			Help: "Gateway deposits by result (credited, duplicate, rejected)",
		},
		[]string{"result"},
	)

	ReferralRewardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_referral_rewards_total",
			Help: "Referral rewards credited by bonus type",
		},
		[]string{"bonus_type"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_notifications_total",
			Help: "Balance notifications by delivery status",
		},
		[]string{"status"},
	)

	NotifyQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arena_notify_queue_length",
			Help: "Current length of the notification queue",
		},
	)

	WinningsPaidTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arena_winnings_paid_total",
			Help: "Number of winner payouts credited",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(status, payment string, positions int) {
	BookingsTotal.WithLabelValues(status, payment).Inc()
	if status == "confirmed" && positions > 0 {
		PositionsBookedTotal.Add(float64(positions))
	}
}

func RecordWithdrawal(status string) {
	WithdrawalsTotal.WithLabelValues(status).Inc()
}

func RecordDeposit(result string) {
	DepositsTotal.WithLabelValues(result).Inc()
}

func RecordReferralReward(bonusType string) {
	ReferralRewardsTotal.WithLabelValues(bonusType).Inc()
}

func RecordNotification(status string) {
	NotificationsTotal.WithLabelValues(status).Inc()
}

func RecordWinningPaid() {
	WinningsPaidTotal.Inc()
}
