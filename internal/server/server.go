package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hardik-0129/backend/internal/auth"
	"github.com/hardik-0129/backend/internal/booking"
	"github.com/hardik-0129/backend/internal/config"
	"github.com/hardik-0129/backend/internal/match"
	"github.com/hardik-0129/backend/internal/payment"
	"github.com/hardik-0129/backend/internal/user"
	"github.com/hardik-0129/backend/internal/wallet"
	"github.com/hardik-0129/backend/internal/withdrawal"
)

// Handlers are the HTTP front ends of the domain services.
type Handlers struct {
	Users       *user.Handler
	Wallet      *wallet.Handler
	Bookings    *booking.Handler
	Withdrawals *withdrawal.Handler
	Payments    *payment.Handler
	Matches     *match.Handler

	// Checks back the /health endpoint, keyed by dependency name.
	Checks map[string]Check
}

type Server struct {
	router  *gin.Engine
	http    *http.Server
	limiter *RateLimiter
	config  *config.Config
}

func New(cfg *config.Config, h Handlers) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLoggingMiddleware(), MetricsMiddleware(), corsMiddleware())

	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)
	limited := limiter.Middleware()

	router.GET("/health", Health(h.Checks))
	router.GET("/metrics", Metrics())

	public := router.Group("/auth")
	public.Use(limited)
	{
		public.POST("/register", h.Users.Register)
		public.POST("/login", h.Users.Login)
		public.POST("/refresh", h.Users.RefreshToken)
	}

	router.POST("/wallet/payment/webhook", limited, h.Payments.Webhook)
	router.GET("/slots", h.Matches.ListSlots)
	router.GET("/slots/:slotID", h.Matches.GetSlot)
	router.GET("/slots/:slotID/winners", h.Matches.ListWinners)

	authMiddleware := auth.RequireAuth(auth.NewIssuer(cfg.JWTSecret, cfg.RefreshSecret))
	protected := router.Group("/")
	protected.Use(authMiddleware, limited)
	{
		protected.GET("/me", h.Users.GetMe)
		protected.GET("/wallet/balance", h.Wallet.GetBalance)
		protected.GET("/wallet/transactions", h.Wallet.ListTransactions)
		protected.GET("/wallet/referral-earnings", h.Wallet.ReferralEarnings)
		protected.POST("/wallet/withdraw", h.Withdrawals.Request)
		protected.GET("/wallet/withdrawals", h.Withdrawals.ListMine)
		protected.POST("/wallet/verify", h.Payments.Verify)
		protected.POST("/slots/:slotID/book", h.Bookings.BookSlot)
		protected.GET("/bookings", h.Bookings.ListMyBookings)
	}

	adminMiddleware := auth.RequireAdmin()
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/slots", h.Matches.CreateSlot)
		admin.GET("/slots", h.Matches.ListSlots)
		admin.PATCH("/slots/:slotID/status", h.Matches.UpdateStatus)
		admin.GET("/slots/:slotID/bookings", h.Bookings.ListBookingsBySlot)
		admin.POST("/slots/:slotID/winners", h.Matches.RecordWinners)
		admin.POST("/slots/:slotID/payout", h.Matches.Payout)
		admin.POST("/wallet/add-winning", h.Wallet.AddWinning)
		admin.POST("/wallet/add-join-money", h.Wallet.AddJoinMoney)
		admin.GET("/transactions", h.Wallet.AdminListTransactions)
		admin.GET("/withdrawals", h.Withdrawals.List)
		admin.POST("/withdrawals/:transactionID/approve", h.Withdrawals.Approve)
		admin.POST("/withdrawals/:transactionID/reject", h.Withdrawals.Reject)
	}

	return &Server{
		router:  router,
		limiter: limiter,
		config:  cfg,
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests. It is safe to call before Start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	if s.http == nil {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Payment-Signature")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
