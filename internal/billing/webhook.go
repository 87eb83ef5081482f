package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/adforge-app/adforge/internal/api"
	"github.com/adforge-app/adforge/internal/credits"
	inats "github.com/adforge-app/adforge/internal/nats"
)

const (
	signatureHeader = "X-Billing-Signature"
	maxBodyBytes    = 64 * 1024
	// dedupeTTL bounds how long event IDs are remembered. Providers
	// retry for at most a few days; a week of memory covers that.
	dedupeTTL = 7 * 24 * time.Hour
)

// AuditPublisher records purchase events on the audit stream.
// *nats.Publisher satisfies it.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

// WebhookHandler processes payment provider callbacks. Verification is
// HMAC-SHA256 over the raw body; replays are absorbed by a Redis SETNX
// on the event ID so a retried webhook never grants credits twice.
type WebhookHandler struct {
	secret []byte
	rdb    *redis.Client
	ledger *credits.Service
	audit  AuditPublisher
}

func NewWebhookHandler(secret string, rdb *redis.Client, ledger *credits.Service, audit AuditPublisher) *WebhookHandler {
	return &WebhookHandler{
		secret: []byte(secret),
		rdb:    rdb,
		ledger: ledger,
		audit:  audit,
	}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if !h.verifySignature(body, r.Header.Get(signatureHeader)) {
		slog.Warn("billing webhook signature mismatch", "remote", r.RemoteAddr)
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		api.HandleError(w, api.NewBadRequestError("malformed event payload"))
		return
	}
	if event.ID == "" {
		api.HandleError(w, api.NewBadRequestError("event id is required"))
		return
	}

	if event.Type != EventCreditPackPurchased {
		slog.Info("ignoring billing event", "event_id", event.ID, "type", event.Type)
		api.JSONMessage(w, http.StatusOK, "event ignored")
		return
	}

	fresh, err := h.rdb.SetNX(r.Context(), dedupeKey(event.ID), 1, dedupeTTL).Result()
	if err != nil {
		slog.Error("webhook dedupe check failed", "error", err, "event_id", event.ID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if !fresh {
		slog.Info("duplicate billing event", "event_id", event.ID)
		api.JSONMessage(w, http.StatusOK, "event already processed")
		return
	}

	if err := h.processPurchase(r.Context(), event); err != nil {
		// Release the dedupe claim so the provider's retry can succeed.
		if delErr := h.rdb.Del(context.Background(), dedupeKey(event.ID)).Err(); delErr != nil {
			slog.Error("releasing dedupe key", "error", delErr, "event_id", event.ID)
		}
		slog.Error("processing purchase event", "error", err, "event_id", event.ID)
		api.HandleError(w, err)
		return
	}

	api.JSONMessage(w, http.StatusOK, "credits granted")
}

func (h *WebhookHandler) processPurchase(ctx context.Context, event Event) error {
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return api.NewBadRequestError("invalid user id")
	}
	pack, ok := PackByID(event.PackID)
	if !ok {
		return api.NewBadRequestError(fmt.Sprintf("unknown credit pack %q", event.PackID))
	}

	newBalance, err := h.ledger.Grant(ctx, userID, pack.Credits, credits.KindPurchase,
		fmt.Sprintf("credit pack %s, event %s", pack.ID, event.ID))
	if err != nil {
		return fmt.Errorf("granting purchased credits: %w", err)
	}

	slog.Info("credit pack purchased",
		"user_id", userID, "pack", pack.ID, "credits", pack.Credits.String(), "new_balance", newBalance.String())

	if h.audit != nil {
		auditErr := h.audit.PublishAuditEvent(ctx, inats.AuditEvent{
			UserID:       userID,
			EventType:    "credits.purchased",
			Severity:     "info",
			ResourceType: "credit_pack",
			ResourceID:   pack.ID,
			Details:      fmt.Sprintf("granted %s credits via event %s", pack.Credits, event.ID),
			Timestamp:    time.Now().UTC(),
		})
		if auditErr != nil {
			slog.Warn("publishing purchase audit event", "error", auditErr, "event_id", event.ID)
		}
	}
	return nil
}

func (h *WebhookHandler) verifySignature(body []byte, header string) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

func dedupeKey(eventID string) string {
	return "billing:event:" + eventID
}
