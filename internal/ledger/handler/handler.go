// Package handler exposes the policy ledger over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"polledger/internal/ledger/models"
	"polledger/internal/platform/middleware"
	"polledger/internal/transport/http/shared"
	dErrors "polledger/pkg/domain-errors"
	"polledger/pkg/money"
)

// dateLayout is the wire format for payment dates.
const dateLayout = "2006-01-02"

// Service defines the ledger operations the handler needs.
type Service interface {
	ComputeBalance(ctx context.Context, policyID uuid.UUID) (*models.BalanceReport, error)
	AdmitPayment(ctx context.Context, policyID uuid.UUID, candidate models.CandidatePayment) (*models.AdmissionResult, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
}

// Handler handles payment and balance endpoints.
type Handler struct {
	logger  *slog.Logger
	ledger  Service
	timeout time.Duration
}

// New creates a ledger Handler.
func New(ledger Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		ledger:  ledger,
		timeout: 30 * time.Second,
	}
}

// Register mounts the ledger routes on the chi router.
func (h *Handler) Register(r chi.Router) {
	ledgerRouter := chi.NewRouter()
	ledgerRouter.Use(middleware.Recovery(h.logger))
	ledgerRouter.Use(middleware.RequestID)
	ledgerRouter.Use(middleware.Logger(h.logger))
	ledgerRouter.Use(middleware.ContentTypeJSON)
	ledgerRouter.Use(middleware.Timeout(h.timeout))
	ledgerRouter.Post("/api/payments", h.handleAdmitPayment)
	ledgerRouter.Get("/api/payments", h.handleListPayments)
	ledgerRouter.Get("/api/payments/{paymentID}", h.handleGetPayment)
	ledgerRouter.Get("/api/policies/{policyID}/balance", h.handleBalance)

	r.Mount("/", ledgerRouter)
}

// admitPaymentRequest is the create-payment body.
type admitPaymentRequest struct {
	PolicyID      string       `json:"policyId"`
	Date          string       `json:"date"`
	Amount        money.Amount `json:"amount"`
	ReceiptNumber string       `json:"receiptNumber"`
	Method        string       `json:"method"`
	Notes         string       `json:"notes,omitempty"`
}

func (h *Handler) handleAdmitPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req admitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid payment request body",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	policyID, err := uuid.Parse(req.PolicyID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "policyId must be a valid id").
			WithMeta("field", "policyId"))
		return
	}

	candidate := models.CandidatePayment{
		Amount:        req.Amount,
		ReceiptNumber: req.ReceiptNumber,
		Method:        models.PaymentMethod(req.Method),
		Notes:         req.Notes,
	}
	if req.Date != "" {
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD").
				WithMeta("field", "date"))
			return
		}
		candidate.Date = date
	}

	result, err := h.ledger.AdmitPayment(ctx, policyID, candidate)
	if err != nil {
		h.logAdmissionFailure(ctx, requestID, err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policyID, err := uuid.Parse(chi.URLParam(r, "policyID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "policy id must be a valid id"))
		return
	}

	report, err := h.ledger.ComputeBalance(ctx, policyID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "payment id must be a valid id"))
		return
	}

	payment, err := h.ledger.GetPayment(ctx, paymentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, payment)
}

// listPaymentsResponse wraps a history page.
type listPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := models.PaymentFilter{
		ReceiptNumber: query.Get("receipt"),
	}
	if raw := query.Get("policyId"); raw != "" {
		policyID, err := uuid.Parse(raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "policyId must be a valid id"))
			return
		}
		filter.PolicyID = policyID
	}
	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "from must be YYYY-MM-DD"))
			return
		}
		filter.From = from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "to must be YYYY-MM-DD"))
			return
		}
		filter.To = to
	}
	filter.Page = intQuery(query.Get("page"), 1)
	filter.Limit = intQuery(query.Get("limit"), models.DefaultPageLimit)
	filter.Normalize()

	payments, err := h.ledger.ListPayments(ctx, filter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	shared.WriteJSON(w, http.StatusOK, listPaymentsResponse{
		Items: payments,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

func (h *Handler) logAdmissionFailure(ctx context.Context, requestID string, err error) {
	code := dErrors.CodeOf(err)
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		h.logger.ErrorContext(ctx, "payment admission failed",
			"request_id", requestID,
			"code", string(code),
			"error", err.Error(),
		)
	default:
		h.logger.WarnContext(ctx, "payment admission rejected",
			"request_id", requestID,
			"code", string(code),
		)
	}
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
