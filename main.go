package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	intconfig "stayhub/internal/config"
	router "stayhub/internal/http"
	"stayhub/internal/provider"
	"stayhub/internal/repositories"
	"stayhub/internal/services"
	"stayhub/internal/utils"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	intconfig.ConnectDB(env.DBDSN)
	defer intconfig.CloseDB()

	adapter := provider.NewClient(env.ProviderBaseURL, env.ProviderAPIKey)
	dispatch := services.NewDispatcher(4, 256)

	r := router.NewRouter(router.Deps{
		Env:      env,
		Adapter:  adapter,
		Dispatch: dispatch,
	})

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	go runSweeps(sweepCtx, env, adapter)

	go func() {
		log.Printf("server listening on %s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	stopSweeps()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := dispatch.Shutdown(ctx); err != nil {
		log.Printf("dispatcher drain incomplete: %v", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}

	log.Println("server stopped cleanly")
}

// runSweeps drives the two periodic passes: reconciliation of stale pending
// payments and timeout of abandoned escrow deposits. Both are backstops for
// uncertain webhook delivery; missing a tick is harmless.
func runSweeps(ctx context.Context, env intconfig.Env, adapter provider.Adapter) {
	reconcileTicker := time.NewTicker(env.ReconcileInterval)
	escrowTicker := time.NewTicker(env.EscrowPendingTimeout / 4)
	defer reconcileTicker.Stop()
	defer escrowTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reconcileTicker.C:
			reqID := utils.NewID()
			ledger := services.LedgerService{
				Wallets:   repositories.WalletRepository{},
				Provider:  adapter,
				RequestID: reqID,
			}
			rec := services.ReconcileService{
				Bookings: repositories.BookingRepository{},
				Provider: adapter,
				Settlement: services.SettlementService{
					Bookings:       repositories.BookingRepository{},
					Payouts:        repositories.PayoutRepository{},
					Idempotency:    repositories.IdempotencyRepository{},
					Ledger:         ledger,
					Rule:           env.SplitRule,
					PlatformUserID: env.PlatformUserID,
					RequestID:      reqID,
				},
				Interval:  env.ReconcileInterval,
				RequestID: reqID,
			}
			if err := rec.Sweep(ctx, time.Now().UTC()); err != nil {
				utils.LogEvent(reqID, "reconcile", "sweep_error", err.Error())
			}
		case <-escrowTicker.C:
			reqID := utils.NewID()
			esc := services.EscrowService{
				Escrows: repositories.EscrowRepository{},
				Ledger: services.LedgerService{
					Wallets:   repositories.WalletRepository{},
					Provider:  adapter,
					RequestID: reqID,
				},
				Provider:       adapter,
				PendingTimeout: env.EscrowPendingTimeout,
				RequestID:      reqID,
			}
			if err := esc.SweepPending(ctx, time.Now().UTC()); err != nil {
				utils.LogEvent(reqID, "escrow", "sweep_error", err.Error())
			}
		}
	}
}
