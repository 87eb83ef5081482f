package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adforge-app/adforge/internal/api"
	"github.com/adforge-app/adforge/internal/auth"
	"github.com/adforge-app/adforge/internal/credits"
	inats "github.com/adforge-app/adforge/internal/nats"
)

// AuditPublisher records adjustments on the audit stream.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

// Handler exposes operator-only endpoints. Routes must be mounted
// behind auth.AdminOnly.
type Handler struct {
	ledger   *credits.Service
	audit    AuditPublisher
	validate *validator.Validate
}

func NewHandler(ledger *credits.Service, audit AuditPublisher) *Handler {
	return &Handler{
		ledger:   ledger,
		audit:    audit,
		validate: validator.New(),
	}
}

type AdjustCreditsRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	// Amount is a signed decimal string: positive grants, negative deducts.
	Amount string `json:"amount" validate:"required"`
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type adjustCreditsResponse struct {
	UserID     uuid.UUID       `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// AdjustCredits applies a manual balance correction. Negative amounts go
// through the same insufficient-balance guard as any deduction, so an
// adjustment can never push a balance below zero.
func (h *Handler) AdjustCredits(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req AdjustCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid user ID"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsZero() {
		api.HandleError(w, api.NewBadRequestError("amount must be a non-zero decimal"))
		return
	}

	description := fmt.Sprintf("admin adjustment by %s: %s", claims.UserID, req.Reason)

	var newBalance decimal.Decimal
	if amount.IsPositive() {
		newBalance, err = h.ledger.Grant(r.Context(), userID, amount, credits.KindAdminAdjustment, description)
	} else {
		var result credits.DeductResult
		result, err = h.ledger.Deduct(r.Context(), userID, amount.Neg(), credits.KindAdminAdjustment, description)
		newBalance = result.NewBalance
	}
	if err != nil {
		if credits.IsInsufficientCredits(err) {
			api.HandleError(w, api.NewBadRequestError("adjustment would make balance negative"))
			return
		}
		slog.Error("adjusting credits", "error", err, "target_user", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	slog.Info("admin credit adjustment",
		"admin", claims.UserID, "target_user", userID, "amount", amount.String(), "new_balance", newBalance.String())

	if h.audit != nil {
		auditErr := h.audit.PublishAuditEvent(r.Context(), inats.AuditEvent{
			UserID:       userID,
			EventType:    "credits.admin_adjustment",
			Severity:     "warn",
			ResourceType: "credit_balance",
			ResourceID:   userID.String(),
			Details:      fmt.Sprintf("adjusted by %s credits, admin %s: %s", amount, claims.UserID, req.Reason),
			Timestamp:    time.Now().UTC(),
		})
		if auditErr != nil {
			slog.Warn("publishing adjustment audit event", "error", auditErr)
		}
	}

	api.JSON(w, http.StatusOK, adjustCreditsResponse{
		UserID:     userID,
		Amount:     amount,
		NewBalance: newBalance,
	})
}
