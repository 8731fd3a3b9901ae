package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lastbite/internal/middleware"
	"lastbite/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderService is a mock implementation of service.OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Create(ctx context.Context, userID uuid.UUID, req *model.OrderRequest) (*model.OrderResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, actor model.Identity, orderID uuid.UUID) (*model.OrderResponse, error) {
	args := m.Called(ctx, actor, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Accept(ctx context.Context, actorID, orderID uuid.UUID, req *model.AcceptRequest) (*model.Order, error) {
	args := m.Called(ctx, actorID, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) MarkReady(ctx context.Context, actorID, orderID uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, actorID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) Complete(ctx context.Context, actorID, orderID uuid.UUID, code string) (*model.Order, error) {
	args := m.Called(ctx, actorID, orderID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) CancelByCustomer(ctx context.Context, actorID, orderID uuid.UUID, reason string) (*model.Order, error) {
	args := m.Called(ctx, actorID, orderID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) CancelByProvider(ctx context.Context, actorID, orderID uuid.UUID, reason string) (*model.Order, error) {
	args := m.Called(ctx, actorID, orderID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) ShowCode(ctx context.Context, actorID, orderID uuid.UUID) (string, error) {
	args := m.Called(ctx, actorID, orderID)
	return args.String(0), args.Error(1)
}

func (m *MockOrderService) ResendCode(ctx context.Context, actorID, orderID uuid.UUID) error {
	args := m.Called(ctx, actorID, orderID)
	return args.Error(0)
}

func (m *MockOrderService) GenerateClaimCode(ctx context.Context, actorID, orderID uuid.UUID) (*model.ClaimCodeResponse, error) {
	args := m.Called(ctx, actorID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClaimCodeResponse), args.Error(1)
}

func (m *MockOrderService) ProviderStats(ctx context.Context, actorID uuid.UUID) (*model.ProviderStats, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderStats), args.Error(1)
}

func (m *MockOrderService) ListEvents(ctx context.Context, actor model.Identity, orderID uuid.UUID) ([]model.OrderEvent, error) {
	args := m.Called(ctx, actor, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderEvent), args.Error(1)
}

func newRequest(t *testing.T, method, target string, body interface{}, id *model.Identity) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if id != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), *id))
	}
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestOrderHandler_Create(t *testing.T) {
	customer := model.Identity{UserID: uuid.New(), Role: model.RoleCustomer}
	orderID := uuid.New()
	testResponse := &model.OrderResponse{
		Order: &model.Order{ID: orderID, UserID: customer.UserID, Status: model.OrderStatusPending},
		Items: []model.OrderItem{{ID: uuid.New(), OrderID: orderID, MealID: uuid.New(), Quantity: 2}},
	}
	validBody := &model.OrderRequest{
		Items: []model.OrderItemRequest{{MealID: uuid.New(), Quantity: 2}},
	}

	tests := []struct {
		name           string
		identity       *model.Identity
		body           interface{}
		mockReturn     *model.OrderResponse
		mockError      error
		expectedStatus int
		expectedCode   string
		expectService  bool
	}{
		{
			name:           "Success",
			identity:       &customer,
			body:           validBody,
			mockReturn:     testResponse,
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Missing identity",
			identity:       nil,
			body:           validBody,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   model.ErrCodeUnauthorised,
		},
		{
			name:           "Provider cannot create orders",
			identity:       &model.Identity{UserID: uuid.New(), Role: model.RoleProvider},
			body:           validBody,
			expectedStatus: http.StatusForbidden,
			expectedCode:   model.ErrCodeForbidden,
		},
		{
			name:           "Empty order",
			identity:       &customer,
			body:           &model.OrderRequest{},
			mockError:      model.ErrEmptyOrder,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   model.ErrCodeEmptyOrder,
			expectService:  true,
		},
		{
			name:           "Insufficient stock",
			identity:       &customer,
			body:           validBody,
			mockError:      model.ErrInsufficientStock,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   model.ErrCodeInsufficientStock,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			h := NewOrderHandler(mockService, zerolog.Nop())

			if tt.expectService {
				if tt.mockError != nil {
					mockService.On("Create", mock.Anything, tt.identity.UserID, mock.AnythingOfType("*model.OrderRequest")).Return(nil, tt.mockError)
				} else {
					mockService.On("Create", mock.Anything, tt.identity.UserID, mock.AnythingOfType("*model.OrderRequest")).Return(tt.mockReturn, nil)
				}
			}

			req := newRequest(t, http.MethodPost, "/api/orders", tt.body, tt.identity)
			rec := httptest.NewRecorder()

			h.Create(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, rec).Error)
			}
			if !tt.expectService {
				mockService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_Create_InvalidJSON(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	customer := model.Identity{UserID: uuid.New(), Role: model.RoleCustomer}
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{not json"))
	req = req.WithContext(middleware.WithIdentity(req.Context(), customer))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, model.ErrCodeInvalidJSON, decodeError(t, rec).Error)
}

func TestOrderHandler_GetByID(t *testing.T) {
	customer := model.Identity{UserID: uuid.New(), Role: model.RoleCustomer}
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, zerolog.Nop())

		resp := &model.OrderResponse{Order: &model.Order{ID: orderID, UserID: customer.UserID}}
		mockService.On("GetByID", mock.Anything, customer, orderID).Return(resp, nil)

		req := newRequest(t, http.MethodGet, "/api/orders/"+orderID.String(), nil, &customer)
		req.SetPathValue("id", orderID.String())
		rec := httptest.NewRecorder()

		h.GetByID(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Not found", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, zerolog.Nop())

		mockService.On("GetByID", mock.Anything, customer, orderID).Return(nil, nil)

		req := newRequest(t, http.MethodGet, "/api/orders/"+orderID.String(), nil, &customer)
		req.SetPathValue("id", orderID.String())
		rec := httptest.NewRecorder()

		h.GetByID(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, model.ErrCodeOrderNotFound, decodeError(t, rec).Error)
	})

	t.Run("Invalid id", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, zerolog.Nop())

		req := newRequest(t, http.MethodGet, "/api/orders/not-a-uuid", nil, &customer)
		req.SetPathValue("id", "not-a-uuid")
		rec := httptest.NewRecorder()

		h.GetByID(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderHandler_Accept(t *testing.T) {
	provider := model.Identity{UserID: uuid.New(), Role: model.RoleProvider}
	orderID := uuid.New()

	windowStart := time.Now().Add(time.Hour).Truncate(time.Second)
	body := &model.AcceptRequest{
		PickupWindowStart: windowStart,
		PickupWindowEnd:   windowStart.Add(2 * time.Hour),
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, zerolog.Nop())

		accepted := &model.Order{ID: orderID, Status: model.OrderStatusAccepted}
		mockService.On("Accept", mock.Anything, provider.UserID, orderID, mock.AnythingOfType("*model.AcceptRequest")).Return(accepted, nil)

		req := newRequest(t, http.MethodPost, "/api/orders/"+orderID.String()+"/accept", body, &provider)
		req.SetPathValue("id", orderID.String())
		rec := httptest.NewRecorder()

		h.Accept(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Customer forbidden", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, zerolog.Nop())

		customer := model.Identity{UserID: uuid.New(), Role: model.RoleCustomer}
		req := newRequest(t, http.MethodPost, "/api/orders/"+orderID.String()+"/accept", body, &customer)
		req.SetPathValue("id", orderID.String())
		rec := httptest.NewRecorder()

		h.Accept(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		mockService.AssertNotCalled(t, "Accept", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Invalid window", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, zerolog.Nop())

		mockService.On("Accept", mock.Anything, provider.UserID, orderID, mock.AnythingOfType("*model.AcceptRequest")).Return(nil, model.ErrInvalidPickupWindow)

		req := newRequest(t, http.MethodPost, "/api/orders/"+orderID.String()+"/accept", body, &provider)
		req.SetPathValue("id", orderID.String())
		rec := httptest.NewRecorder()

		h.Accept(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, model.ErrCodeInvalidPickupWindow, decodeError(t, rec).Error)
	})
}

func TestOrderHandler_Complete_ErrorMapping(t *testing.T) {
	provider := model.Identity{UserID: uuid.New(), Role: model.RoleProvider}
	orderID := uuid.New()

	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
		expectedCode   string
	}{
		{"wrong code", model.ErrInvalidCode, http.StatusBadRequest, model.ErrCodeInvalidCode},
		{"attempts exhausted", model.ErrMaxAttemptsExceeded, http.StatusBadRequest, model.ErrCodeMaxAttemptsExceeded},
		{"malformed", model.ErrMalformedCode, http.StatusUnprocessableEntity, model.ErrCodeMalformedCode},
		{"already picked up", model.ErrAlreadyPickedUp, http.StatusBadRequest, model.ErrCodeTerminalState},
		{"concurrent", model.ErrConcurrentModification, http.StatusConflict, model.ErrCodeConcurrentModification},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			h := NewOrderHandler(mockService, zerolog.Nop())

			mockService.On("Complete", mock.Anything, provider.UserID, orderID, "123456").Return(nil, tt.serviceErr)

			req := newRequest(t, http.MethodPost, "/api/orders/"+orderID.String()+"/complete", &model.CompleteRequest{Code: "123456"}, &provider)
			req.SetPathValue("id", orderID.String())
			rec := httptest.NewRecorder()

			h.Complete(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedCode, decodeError(t, rec).Error)
		})
	}
}

func TestOrderHandler_Cancel_RoleDispatch(t *testing.T) {
	orderID := uuid.New()
	body := &model.CancelRequest{Reason: "no longer needed"}

	t.Run("Customer cancel", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, zerolog.Nop())

		customer := model.Identity{UserID: uuid.New(), Role: model.RoleCustomer}
		cancelled := &model.Order{ID: orderID, Status: model.OrderStatusCancelledByCustomer}
		mockService.On("CancelByCustomer", mock.Anything, customer.UserID, orderID, body.Reason).Return(cancelled, nil)

		req := newRequest(t, http.MethodPost, "/api/orders/"+orderID.String()+"/cancel", body, &customer)
		req.SetPathValue("id", orderID.String())
		rec := httptest.NewRecorder()

		h.Cancel(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertNotCalled(t, "CancelByProvider", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Provider cancel", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, zerolog.Nop())

		provider := model.Identity{UserID: uuid.New(), Role: model.RoleProvider}
		cancelled := &model.Order{ID: orderID, Status: model.OrderStatusCancelledByRestaurant}
		mockService.On("CancelByProvider", mock.Anything, provider.UserID, orderID, body.Reason).Return(cancelled, nil)

		req := newRequest(t, http.MethodPost, "/api/orders/"+orderID.String()+"/cancel", body, &provider)
		req.SetPathValue("id", orderID.String())
		rec := httptest.NewRecorder()

		h.Cancel(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertNotCalled(t, "CancelByCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Admin rejected", func(t *testing.T) {
		mockService := new(MockOrderService)
		h := NewOrderHandler(mockService, zerolog.Nop())

		admin := model.Identity{UserID: uuid.New(), Role: model.RoleAdmin}
		req := newRequest(t, http.MethodPost, "/api/orders/"+orderID.String()+"/cancel", body, &admin)
		req.SetPathValue("id", orderID.String())
		rec := httptest.NewRecorder()

		h.Cancel(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestOrderHandler_ShowCode(t *testing.T) {
	customer := model.Identity{UserID: uuid.New(), Role: model.RoleCustomer}
	orderID := uuid.New()

	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("ShowCode", mock.Anything, customer.UserID, orderID).Return("123456", nil)

	req := newRequest(t, http.MethodGet, "/api/orders/"+orderID.String()+"/code", nil, &customer)
	req.SetPathValue("id", orderID.String())
	rec := httptest.NewRecorder()

	h.ShowCode(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp model.CodeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "123456", resp.Code)
}

func TestOrderHandler_GenerateClaimCode(t *testing.T) {
	customer := model.Identity{UserID: uuid.New(), Role: model.RoleCustomer}
	orderID := uuid.New()

	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	expiresAt := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	mockService.On("GenerateClaimCode", mock.Anything, customer.UserID, orderID).Return(&model.ClaimCodeResponse{Code: "987654", ExpiresAt: expiresAt}, nil)

	req := newRequest(t, http.MethodPost, "/api/orders/"+orderID.String()+"/claim-code", nil, &customer)
	req.SetPathValue("id", orderID.String())
	rec := httptest.NewRecorder()

	h.GenerateClaimCode(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp model.ClaimCodeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "987654", resp.Code)
}

func TestOrderHandler_ProviderStats(t *testing.T) {
	provider := model.Identity{UserID: uuid.New(), Role: model.RoleProvider}

	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("ProviderStats", mock.Anything, provider.UserID).Return(&model.ProviderStats{Pending: 3, Ready: 1}, nil)

	req := newRequest(t, http.MethodGet, "/api/provider/stats", nil, &provider)
	rec := httptest.NewRecorder()

	h.ProviderStats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var stats model.ProviderStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 3, stats.Pending)
}

func TestOrderHandler_InternalErrorIsOpaque(t *testing.T) {
	customer := model.Identity{UserID: uuid.New(), Role: model.RoleCustomer}
	orderID := uuid.New()

	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("GetByID", mock.Anything, customer, orderID).Return(nil, assert.AnError)

	req := newRequest(t, http.MethodGet, "/api/orders/"+orderID.String(), nil, &customer)
	req.SetPathValue("id", orderID.String())
	rec := httptest.NewRecorder()

	h.GetByID(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, model.ErrCodeInternalError, resp.Error)
	assert.NotContains(t, resp.Message, assert.AnError.Error())
}
