package handler

import (
	"net/http"
	"testing"

	"github.com/bank-reconciliation-ledger/internal/api/middleware"
	"github.com/bank-reconciliation-ledger/internal/domain/account"
	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAccountRouter(h *AccountHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api/v1")
	group.Use(middleware.OrganizationScope())
	group.POST("/accounts", h.Create)
	group.GET("/accounts", h.List)
	group.GET("/accounts/:id", h.GetByID)
	return router
}

func TestAccountHandler_Create(t *testing.T) {
	orgID := uuid.New()

	t.Run("CreatesAccount", func(t *testing.T) {
		service := new(MockAccountService)
		router := newAccountRouter(NewAccountHandler(newTestLogger(), service))

		acc, err := account.New(orgID, "Operating Cash", account.TypeAsset)
		require.NoError(t, err)

		service.On("CreateAccount", mock.Anything, orgID, "Operating Cash", "ASSET").Return(acc, nil).Once()

		rr := performRequest(t, router, http.MethodPost, "/api/v1/accounts", orgID,
			CreateAccountRequest{Name: "Operating Cash", Type: "ASSET"})

		require.Equal(t, http.StatusCreated, rr.Code)

		var resp AccountResponse
		decodeData(t, rr, &resp)
		assert.Equal(t, acc.ID.String(), resp.ID)
		assert.Equal(t, "Operating Cash", resp.Name)
		assert.Equal(t, "0.00", resp.Balance)
		assert.True(t, resp.Active)
		service.AssertExpectations(t)
	})

	t.Run("RejectsUnknownType", func(t *testing.T) {
		service := new(MockAccountService)
		router := newAccountRouter(NewAccountHandler(newTestLogger(), service))

		rr := performRequest(t, router, http.MethodPost, "/api/v1/accounts", orgID,
			map[string]string{"name": "Petty Cash", "type": "PIGGYBANK"})

		require.Equal(t, http.StatusBadRequest, rr.Code)
		service.AssertNotCalled(t, "CreateAccount")
	})

	t.Run("RejectsMissingOrganizationHeader", func(t *testing.T) {
		service := new(MockAccountService)
		router := newAccountRouter(NewAccountHandler(newTestLogger(), service))

		req, _ := http.NewRequest(http.MethodPost, "/api/v1/accounts", nil)
		rr := performRecorder(router, req)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAccountHandler_GetByID(t *testing.T) {
	orgID := uuid.New()

	t.Run("ReturnsAccount", func(t *testing.T) {
		service := new(MockAccountService)
		router := newAccountRouter(NewAccountHandler(newTestLogger(), service))

		acc, err := account.New(orgID, "Operating Cash", account.TypeAsset)
		require.NoError(t, err)

		service.On("GetAccount", mock.Anything, orgID, acc.ID).Return(acc, nil).Once()

		rr := performRequest(t, router, http.MethodGet, "/api/v1/accounts/"+acc.ID.String(), orgID, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp AccountResponse
		decodeData(t, rr, &resp)
		assert.Equal(t, acc.ID.String(), resp.ID)
	})

	t.Run("UnknownAccountReturns404", func(t *testing.T) {
		service := new(MockAccountService)
		router := newAccountRouter(NewAccountHandler(newTestLogger(), service))

		id := uuid.New()
		service.On("GetAccount", mock.Anything, orgID, id).
			Return(nil, shared.NotFoundError{Resource: "account", ID: id}).Once()

		rr := performRequest(t, router, http.MethodGet, "/api/v1/accounts/"+id.String(), orgID, nil)
		require.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("MalformedIDReturns400", func(t *testing.T) {
		service := new(MockAccountService)
		router := newAccountRouter(NewAccountHandler(newTestLogger(), service))

		rr := performRequest(t, router, http.MethodGet, "/api/v1/accounts/not-a-uuid", orgID, nil)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAccountHandler_List(t *testing.T) {
	orgID := uuid.New()

	service := new(MockAccountService)
	router := newAccountRouter(NewAccountHandler(newTestLogger(), service))

	cash, err := account.New(orgID, "Cash", account.TypeAsset)
	require.NoError(t, err)
	revenue, err := account.New(orgID, "Sales Revenue", account.TypeRevenue)
	require.NoError(t, err)

	service.On("ListAccounts", mock.Anything, orgID).Return([]*account.Account{cash, revenue}, nil).Once()

	rr := performRequest(t, router, http.MethodGet, "/api/v1/accounts", orgID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp []AccountResponse
	decodeData(t, rr, &resp)
	require.Len(t, resp, 2)
	assert.Equal(t, "Cash", resp[0].Name)
	assert.Equal(t, "REVENUE", resp[1].Type)
}
