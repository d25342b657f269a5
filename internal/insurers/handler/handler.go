// Package handler exposes insurer line assignments over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"polledger/internal/insurers/models"
	"polledger/internal/platform/middleware"
	"polledger/internal/transport/http/shared"
	dErrors "polledger/pkg/domain-errors"
)

// Service defines the insurer operations the handler needs.
type Service interface {
	SyncLines(ctx context.Context, insurerID uuid.UUID, lineIDs []int64, status models.AssignmentStatus) (*models.SyncResult, error)
	AssignedLines(ctx context.Context, insurerID uuid.UUID) ([]models.LineOfBusiness, error)
	AvailableLines(ctx context.Context, insurerID uuid.UUID) ([]models.LineOfBusiness, error)
	CatalogLines(ctx context.Context) ([]models.LineOfBusiness, error)
}

// Handler handles insurer line endpoints.
type Handler struct {
	logger   *slog.Logger
	insurers Service
	timeout  time.Duration
}

// New creates an insurers Handler.
func New(insurers Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		insurers: insurers,
		timeout:  30 * time.Second,
	}
}

// Register mounts the insurer routes on the chi router.
func (h *Handler) Register(r chi.Router) {
	insurerRouter := chi.NewRouter()
	insurerRouter.Use(middleware.Recovery(h.logger))
	insurerRouter.Use(middleware.RequestID)
	insurerRouter.Use(middleware.Logger(h.logger))
	insurerRouter.Use(middleware.ContentTypeJSON)
	insurerRouter.Use(middleware.Timeout(h.timeout))
	insurerRouter.Put("/api/insurers/{insurerID}/lines", h.handleSyncLines)
	insurerRouter.Get("/api/insurers/{insurerID}/lines", h.handleAssignedLines)
	insurerRouter.Get("/api/insurers/{insurerID}/lines/available", h.handleAvailableLines)
	insurerRouter.Get("/api/lines", h.handleCatalog)

	r.Mount("/", insurerRouter)
}

// syncLinesRequest carries the full desired set of line ids plus the
// status applied to every assignment the sync inserts or keeps.
type syncLinesRequest struct {
	LineIDs []int64                 `json:"desiredLineIds"`
	Status  models.AssignmentStatus `json:"status"`
}

func (h *Handler) handleSyncLines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	insurerID, ok := h.insurerID(w, r)
	if !ok {
		return
	}

	var req syncLinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid sync request body",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	result, err := h.insurers.SyncLines(ctx, insurerID, req.LineIDs, req.Status)
	if err != nil {
		h.logSyncFailure(ctx, requestID, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAssignedLines(w http.ResponseWriter, r *http.Request) {
	insurerID, ok := h.insurerID(w, r)
	if !ok {
		return
	}
	lines, err := h.insurers.AssignedLines(r.Context(), insurerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeLines(w, lines)
}

func (h *Handler) handleAvailableLines(w http.ResponseWriter, r *http.Request) {
	insurerID, ok := h.insurerID(w, r)
	if !ok {
		return
	}
	lines, err := h.insurers.AvailableLines(r.Context(), insurerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeLines(w, lines)
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	lines, err := h.insurers.CatalogLines(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeLines(w, lines)
}

func (h *Handler) insurerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	insurerID, err := uuid.Parse(chi.URLParam(r, "insurerID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "insurer id must be a valid id"))
		return uuid.Nil, false
	}
	return insurerID, true
}

type linesResponse struct {
	Items []models.LineOfBusiness `json:"items"`
}

func (h *Handler) writeLines(w http.ResponseWriter, lines []models.LineOfBusiness) {
	if lines == nil {
		lines = []models.LineOfBusiness{}
	}
	shared.WriteJSON(w, http.StatusOK, linesResponse{Items: lines})
}

func (h *Handler) logSyncFailure(ctx context.Context, requestID string, err error) {
	code := dErrors.CodeOf(err)
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		h.logger.ErrorContext(ctx, "line sync failed",
			"request_id", requestID,
			"code", string(code),
			"error", err.Error(),
		)
	default:
		h.logger.WarnContext(ctx, "line sync rejected",
			"request_id", requestID,
			"code", string(code),
		)
	}
}
