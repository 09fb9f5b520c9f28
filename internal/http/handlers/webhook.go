package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	intconfig "stayhub/internal/config"
	"stayhub/internal/http/middleware"
	"stayhub/internal/provider"
	"stayhub/internal/repositories"
	"stayhub/internal/services"
	"stayhub/internal/utils"
)

// WebhookHandler receives inbound provider callbacks. It acknowledges 200
// immediately in every case, since providers retry aggressively on anything
// else, and defers processing to the dispatcher. Rejects (missing refid,
// bad signature) still answer 200 with success:false to suppress retries,
// logged for offline investigation.
type WebhookHandler struct {
	Env      intconfig.Env
	Dispatch *services.Dispatcher
	Build    SettlementFactory
}

// SettlementFactory builds a request-scoped settlement service. Webhook
// tasks outlive the request, so each task constructs its own service with
// the originating request id attached for tracing.
type SettlementFactory func(requestID string) services.SettlementService

// NewSettlementFactory wires the production factory against the shared DB
// pool and provider adapter.
func NewSettlementFactory(env intconfig.Env, adapter provider.Adapter) SettlementFactory {
	return func(requestID string) services.SettlementService {
		ledger := services.LedgerService{
			Wallets:   repositories.WalletRepository{},
			Provider:  adapter,
			RequestID: requestID,
		}
		return services.SettlementService{
			Bookings:    repositories.BookingRepository{},
			Payouts:     repositories.PayoutRepository{},
			Idempotency: repositories.IdempotencyRepository{},
			Ledger:      ledger,
			Escrow: &services.EscrowService{
				Escrows:        repositories.EscrowRepository{},
				Ledger:         ledger,
				Provider:       adapter,
				PendingTimeout: env.EscrowPendingTimeout,
				RequestID:      requestID,
			},
			Rule:           env.SplitRule,
			PlatformUserID: env.PlatformUserID,
			Notifier:       services.LogNotifier{RequestID: requestID},
			RequestID:      requestID,
		}
	}
}

type webhookResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	RefID            string `json:"refid,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

func (h WebhookHandler) ack(c *gin.Context, start time.Time, success bool, message, refID string) {
	c.JSON(http.StatusOK, webhookResponse{
		Success:          success,
		Message:          message,
		RefID:            refID,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})
}

// Receive handles POST /callback and POST /webhook.
func (h WebhookHandler) Receive(c *gin.Context) {
	start := time.Now()
	reqID := middleware.GetRequestID(c)

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil || len(raw) == 0 {
		utils.LogEvent(reqID, "webhook", "reject", "empty or unreadable body")
		h.ack(c, start, false, "invalid payload", "")
		return
	}

	if !h.verifySignature(c, reqID, raw) {
		h.ack(c, start, false, "signature verification failed", "")
		return
	}

	ev, err := provider.ParseWebhook(raw)
	if err != nil {
		utils.LogEvent(reqID, "webhook", "reject", err.Error())
		h.ack(c, start, false, "invalid payload", "")
		return
	}

	h.enqueue(reqID, ev)
	h.ack(c, start, true, "accepted", ev.RefID)
}

// Redirect handles GET /callback: the browser return leg after payment.
// The claimed status picks the landing page only; money moves exclusively
// through the asynchronously processed event.
func (h WebhookHandler) Redirect(c *gin.Context) {
	reqID := middleware.GetRequestID(c)

	ev, err := provider.ParseRedirect(c.Request.URL.Query())
	if err != nil {
		utils.LogEvent(reqID, "webhook", "redirect_reject", err.Error())
		c.Redirect(http.StatusFound, h.Env.FrontendURL+"/payment/failed")
		return
	}

	h.enqueue(reqID, ev)

	page := "pending"
	switch ev.Status {
	case provider.StatusSuccess:
		page = "success"
	case provider.StatusFailed:
		page = "failed"
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/payment/%s?ref=%s", h.Env.FrontendURL, page, ev.RefID))
}

func (h WebhookHandler) enqueue(reqID string, ev provider.Event) {
	ok := h.Dispatch.Enqueue(services.Task{
		Name:      "settlement:" + ev.RefID,
		RequestID: reqID,
		Run: func() error {
			return h.Build(reqID).ProcessEvent(ev)
		},
	})
	if ok {
		utils.LogEvent(reqID, "webhook", "enqueued",
			fmt.Sprintf("refid=%s status=%s", ev.RefID, ev.Status))
	}
}

func (h WebhookHandler) verifySignature(c *gin.Context, reqID string, raw []byte) bool {
	secret := h.Env.WebhookSecret
	if secret == "" {
		if h.Env.IsProduction() {
			utils.LogSecurityEvent(reqID, "webhook", "signature_reject", "no webhook secret configured in production")
			return false
		}
		utils.LogEvent(reqID, "webhook", "signature_skip", "no webhook secret configured, accepting unsigned payload")
		return true
	}

	sig := c.GetHeader("X-Signature")
	if sig == "" {
		sig = c.GetHeader("X-Webhook-Signature")
	}
	if !provider.VerifySignature(raw, sig, secret) {
		utils.LogSecurityEvent(reqID, "webhook", "signature_reject",
			fmt.Sprintf("ip=%s", c.ClientIP()))
		return false
	}
	return true
}

// CheckStatus handles POST /check-status: manual reconciliation for one
// correlation id.
type checkStatusRequest struct {
	RefID         string `json:"refid"`
	TransactionID string `json:"transactionId"`
}

type CheckStatusHandler struct {
	Reconcile func(requestID string) services.ReconcileService
}

func (h CheckStatusHandler) Check(c *gin.Context) {
	var req checkStatusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	refID := req.RefID
	if refID == "" {
		refID = req.TransactionID
	}
	if refID == "" {
		RespondError(c, http.StatusBadRequest, "refid is required", nil)
		return
	}

	reqID := middleware.GetRequestID(c)
	status, err := h.Reconcile(reqID).CheckStatus(c.Request.Context(), refID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refid": refID, "status": status})
}
