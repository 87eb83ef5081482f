package generation

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/adforge-app/adforge/internal/api"
	"github.com/adforge-app/adforge/internal/auth"
	"github.com/adforge-app/adforge/internal/credits"
	"github.com/adforge-app/adforge/internal/projects"
)

type Handler struct {
	svc      *Service
	projects *projects.Service
	validate *validator.Validate
}

func NewHandler(svc *Service, projectsSvc *projects.Service) *Handler {
	return &Handler{
		svc:      svc,
		projects: projectsSvc,
		validate: validator.New(),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid project ID"))
		return
	}

	project, err := h.projects.GetByID(r.Context(), projectID)
	if err != nil {
		slog.Error("fetching project for generation", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if project == nil {
		api.HandleError(w, api.NewNotFoundError("project not found"))
		return
	}
	if project.OwnerUserID != userID {
		slog.Warn("ownership violation attempt",
			"project_id", projectID,
			"project_owner", project.OwnerUserID,
			"requester", claims.UserID,
			"path", r.URL.Path,
			"method", r.Method,
		)
		api.HandleError(w, api.ErrOwnershipViolation)
		return
	}

	job, err := h.svc.Create(r.Context(), userID, projectID, Kind(req.Kind), req.Prompt)
	if err != nil {
		if credits.IsInsufficientCredits(err) {
			api.HandleError(w, api.NewPaymentRequiredError("insufficient credits"))
			return
		}
		slog.Error("creating generation job", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusAccepted, job)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
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

	jobs, totalCount, err := h.svc.ListByUser(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing generation jobs", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, jobs, totalCount, params.Page, params.PageSize)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid job ID"))
		return
	}

	job, err := h.svc.GetByID(r.Context(), jobID)
	if err != nil {
		slog.Error("fetching generation job", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	// A foreign job reads as missing; existence is not leaked across users.
	if job == nil || job.UserID.String() != claims.UserID {
		api.HandleError(w, api.NewNotFoundError("generation job not found"))
		return
	}

	api.JSON(w, http.StatusOK, job)
}
