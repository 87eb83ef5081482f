package assets

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/adforge-app/adforge/internal/api"
	"github.com/adforge-app/adforge/internal/projects"
)

// Handler serves asset metadata. Routes are mounted under the project
// ownership middleware, so the project in context is already verified.
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) ListByProject(w http.ResponseWriter, r *http.Request) {
	project := projects.GetProjectFromContext(r.Context())
	if project == nil {
		api.HandleError(w, api.ErrNotFound)
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

	list, totalCount, err := h.repo.ListByProject(r.Context(), project.ID, params)
	if err != nil {
		slog.Error("listing assets", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, list, totalCount, params.Page, params.PageSize)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	project := projects.GetProjectFromContext(r.Context())
	if project == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	assetID, err := uuid.Parse(chi.URLParam(r, "assetID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid asset ID"))
		return
	}

	asset, err := h.repo.GetByID(r.Context(), assetID)
	if err != nil {
		slog.Error("fetching asset", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if asset == nil || asset.ProjectID != project.ID {
		api.HandleError(w, api.NewNotFoundError("asset not found"))
		return
	}

	if err := h.repo.Delete(r.Context(), asset.ID); err != nil {
		slog.Error("deleting asset", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "asset deleted successfully")
}
