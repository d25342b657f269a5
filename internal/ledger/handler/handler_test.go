package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"polledger/internal/ledger/handler/mocks"
	"polledger/internal/ledger/models"
	dErrors "polledger/pkg/domain-errors"
	"polledger/pkg/money"
)

//go:generate mockgen -source=handler.go -destination=mocks/ledger-mocks.go -package=mocks Service
type LedgerHandlerSuite struct {
	suite.Suite
}

func TestLedgerHandlerSuite(t *testing.T) {
	suite.Run(t, new(LedgerHandlerSuite))
}

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := New(mockService, logger)
	r := chi.NewRouter()
	handler.Register(r)
	return r, mockService
}

func admitBody(t *testing.T, policyID uuid.UUID) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"policyId":      policyID.String(),
		"date":          "2025-06-15",
		"amount":        "150.00",
		"receiptNumber": "R-100",
		"method":        "TRANSFER",
	})
	require.NoError(t, err)
	return body
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *LedgerHandlerSuite) TestAdmitPayment_Created() {
	router, mockService := newTestRouter(s.T())
	policyID := uuid.New()
	paymentID := uuid.New()

	mockService.EXPECT().AdmitPayment(gomock.Any(), policyID, gomock.Any()).
		Return(&models.AdmissionResult{
			Payment: &models.Payment{
				ID:            paymentID,
				PolicyID:      policyID,
				Date:          time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
				Amount:        money.MustParse("150.00"),
				ReceiptNumber: "R-100",
				Method:        models.MethodTransfer,
				Status:        models.PaymentStatusRegistered,
			},
			Balance: money.MustParse("350.00"),
			IsPaid:  false,
		}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader(admitBody(s.T(), policyID)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	resp := decodeBody(s.T(), w)
	payment := resp["payment"].(map[string]any)
	assert.Equal(s.T(), paymentID.String(), payment["id"])
	assert.Equal(s.T(), "350.00", resp["balance"])
	assert.Equal(s.T(), false, resp["isPaid"])
}

func (s *LedgerHandlerSuite) TestAdmitPayment_MalformedBody() {
	router, _ := newTestRouter(s.T())

	req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	resp := decodeBody(s.T(), w)
	assert.Equal(s.T(), string(dErrors.CodeValidation), resp["error"])
}

func (s *LedgerHandlerSuite) TestAdmitPayment_BadPolicyID() {
	router, _ := newTestRouter(s.T())

	body, err := json.Marshal(map[string]any{"policyId": "not-a-uuid"})
	require.NoError(s.T(), err)
	req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	resp := decodeBody(s.T(), w)
	assert.Equal(s.T(), "policyId", resp["field"])
}

func (s *LedgerHandlerSuite) TestAdmitPayment_PolicyNotFound() {
	router, mockService := newTestRouter(s.T())
	policyID := uuid.New()

	mockService.EXPECT().AdmitPayment(gomock.Any(), policyID, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "policy not found"))

	req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader(admitBody(s.T(), policyID)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *LedgerHandlerSuite) TestAdmitPayment_ExceedsBalanceConflict() {
	router, mockService := newTestRouter(s.T())
	policyID := uuid.New()

	mockService.EXPECT().AdmitPayment(gomock.Any(), policyID, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeExceedsBalance, "payment exceeds remaining balance of 20.00").
			WithMeta("balance", "20.00"))

	req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader(admitBody(s.T(), policyID)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusConflict, w.Code)
	resp := decodeBody(s.T(), w)
	assert.Equal(s.T(), string(dErrors.CodeExceedsBalance), resp["error"])
	assert.Equal(s.T(), "20.00", resp["balance"])
}

func (s *LedgerHandlerSuite) TestAdmitPayment_DuplicateReceiptConflict() {
	router, mockService := newTestRouter(s.T())
	policyID := uuid.New()

	mockService.EXPECT().AdmitPayment(gomock.Any(), policyID, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeDuplicateReceipt, "receipt number already used"))

	req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader(admitBody(s.T(), policyID)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusConflict, w.Code)
	resp := decodeBody(s.T(), w)
	assert.Equal(s.T(), string(dErrors.CodeDuplicateReceipt), resp["error"])
}

func (s *LedgerHandlerSuite) TestAdmitPayment_InternalErrorHidesDetails() {
	router, mockService := newTestRouter(s.T())
	policyID := uuid.New()

	mockService.EXPECT().AdmitPayment(gomock.Any(), policyID, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeInternal, "pq: connection reset"))

	req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader(admitBody(s.T(), policyID)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	resp := decodeBody(s.T(), w)
	assert.Equal(s.T(), "unexpected error", resp["message"])
}

func (s *LedgerHandlerSuite) TestBalance_OK() {
	router, mockService := newTestRouter(s.T())
	policyID := uuid.New()

	mockService.EXPECT().ComputeBalance(gomock.Any(), policyID).
		Return(&models.BalanceReport{
			TotalPaid: money.MustParse("500.00"),
			Balance:   money.Zero(),
			IsPaid:    true,
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/policies/"+policyID.String()+"/balance", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	resp := decodeBody(s.T(), w)
	assert.Equal(s.T(), "500.00", resp["totalPaid"])
	assert.Equal(s.T(), "0.00", resp["balance"])
	assert.Equal(s.T(), true, resp["isPaid"])
}

func (s *LedgerHandlerSuite) TestBalance_BadID() {
	router, _ := newTestRouter(s.T())

	req := httptest.NewRequest(http.MethodGet, "/api/policies/xyz/balance", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *LedgerHandlerSuite) TestGetPayment_NotFound() {
	router, mockService := newTestRouter(s.T())
	paymentID := uuid.New()

	mockService.EXPECT().GetPayment(gomock.Any(), paymentID).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "payment not found"))

	req := httptest.NewRequest(http.MethodGet, "/api/payments/"+paymentID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *LedgerHandlerSuite) TestListPayments_ForwardsFilter() {
	router, mockService := newTestRouter(s.T())
	policyID := uuid.New()

	mockService.EXPECT().ListPayments(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, filter models.PaymentFilter) ([]*models.Payment, error) {
			assert.Equal(s.T(), policyID, filter.PolicyID)
			assert.Equal(s.T(), "R-7", filter.ReceiptNumber)
			assert.Equal(s.T(), 2, filter.Page)
			assert.Equal(s.T(), 5, filter.Limit)
			return nil, nil
		})

	req := httptest.NewRequest(http.MethodGet,
		"/api/payments?policyId="+policyID.String()+"&receipt=R-7&page=2&limit=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	resp := decodeBody(s.T(), w)
	assert.Equal(s.T(), []any{}, resp["items"])
	assert.Equal(s.T(), float64(2), resp["page"])
}
