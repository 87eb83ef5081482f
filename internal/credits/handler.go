package credits

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adforge-app/adforge/internal/api"
	authclaims "github.com/adforge-app/adforge/internal/auth/claims"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	claims := authclaims.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	balance, err := h.svc.Balance(r.Context(), userID)
	if err != nil {
		slog.Error("fetching balance", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	claims := authclaims.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := DefaultListParams()
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}

	txs, totalCount, err := h.svc.Transactions(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing transactions", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, txs, totalCount, params.Page, params.PageSize)
}
