package api

import (
	"log"
	stdhttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	intconfig "stayhub/internal/config"
	h "stayhub/internal/http/handlers"
	"stayhub/internal/http/middleware"
	"stayhub/internal/provider"
	"stayhub/internal/repositories"
	"stayhub/internal/services"
)

// Deps carries the long-lived collaborators the router wires into
// handlers. Everything request-scoped is built per request through the
// factories so log lines carry the request id.
type Deps struct {
	Env      intconfig.Env
	Adapter  provider.Adapter
	Dispatch *services.Dispatcher
}

func NewRouter(deps Deps) *gin.Engine {
	env := deps.Env

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     env.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", "Origin", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	settlementFactory := h.NewSettlementFactory(env, deps.Adapter)
	ledgerFactory := func(requestID string) services.LedgerService {
		return services.LedgerService{
			Wallets:   repositories.WalletRepository{},
			Provider:  deps.Adapter,
			RequestID: requestID,
		}
	}
	escrowFactory := func(requestID string) services.EscrowService {
		return services.EscrowService{
			Escrows:        repositories.EscrowRepository{},
			Ledger:         ledgerFactory(requestID),
			Provider:       deps.Adapter,
			PendingTimeout: env.EscrowPendingTimeout,
			RequestID:      requestID,
		}
	}
	checkinFactory := func(requestID string) services.CheckinService {
		return services.CheckinService{
			Bookings:  repositories.BookingRepository{},
			Payouts:   repositories.PayoutRepository{},
			Ledger:    ledgerFactory(requestID),
			RequestID: requestID,
		}
	}
	receiptFactory := func(requestID string) services.ReceiptService {
		return services.ReceiptService{
			Bookings:  repositories.BookingRepository{},
			Payouts:   repositories.PayoutRepository{},
			RequestID: requestID,
		}
	}
	reconcileFactory := func(requestID string) services.ReconcileService {
		return services.ReconcileService{
			Bookings:   repositories.BookingRepository{},
			Provider:   deps.Adapter,
			Settlement: settlementFactory(requestID),
			Interval:   env.ReconcileInterval,
			RequestID:  requestID,
		}
	}

	webhook := h.WebhookHandler{Env: env, Dispatch: deps.Dispatch, Build: settlementFactory}
	checkStatus := h.CheckStatusHandler{Reconcile: reconcileFactory}
	bookings := h.BookingHandler{
		Adapter:  deps.Adapter,
		Build:    settlementFactory,
		Checkin:  checkinFactory,
		Receipts: receiptFactory,
	}
	wallet := h.WalletHandler{Ledger: ledgerFactory}
	escrow := h.EscrowHandler{Build: escrowFactory}
	auth := h.AuthHandler{JWTSecret: env.JWTSecret, Users: repositories.UserRepository{}}

	// Provider-facing surface: no auth, always 200 on the POST endpoints.
	r.POST("/callback", webhook.Receive)
	r.POST("/webhook", webhook.Receive)
	r.GET("/callback", webhook.Redirect)
	r.POST("/check-status", checkStatus.Check)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)

		authGroup := api.Group("/auth")
		authGroup.POST("/login", auth.Login)
		authGroup.POST("/register", auth.Register)

		authed := api.Group("")
		authed.Use(middleware.RequireAuth(env.JWTSecret))
		{
			b := authed.Group("/bookings")
			b.POST("/:id/pay", bookings.Pay)
			b.GET("/:id/payment", bookings.PaymentStatus)
			b.GET("/:id/receipt", bookings.Receipt)
			b.POST("/:id/checkin", middleware.RequireRole("host"), bookings.CheckIn)
			b.POST("/:id/checkout", middleware.RequireRole("host"), bookings.CheckOut)

			w := authed.Group("/wallet")
			w.GET("", wallet.Get)
			w.GET("/transactions", wallet.Transactions)
			w.POST("/withdraw", wallet.Withdraw)

			e := authed.Group("/escrow")
			e.POST("", escrow.Create)
			e.GET("/:id", escrow.Get)
			e.POST("/:id/release", escrow.Release)
			e.POST("/:id/refund", escrow.Refund)
			e.POST("/:id/dispute", escrow.Dispute)
			e.POST("/:id/resolve", middleware.RequireRole("admin"), escrow.Resolve)
		}
	}

	return r
}
