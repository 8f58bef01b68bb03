package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	catalogdomain "github.com/dairylink/creditledger/internal/catalog/domain"
	"github.com/dairylink/creditledger/internal/config"
	enginedomain "github.com/dairylink/creditledger/internal/creditengine/domain"
	profiledomain "github.com/dairylink/creditledger/internal/creditprofile/domain"
	requestdomain "github.com/dairylink/creditledger/internal/creditrequest/domain"
	identitydomain "github.com/dairylink/creditledger/internal/identity/domain"
)

type fakeProfileService struct {
	eligibility *profiledomain.EligibilityResult
	err         error
}

func (f *fakeProfileService) CheckEligibility(ctx context.Context, farmerID snowflake.ID) (*profiledomain.EligibilityResult, error) {
	_ = ctx
	_ = farmerID
	return f.eligibility, f.err
}

func (f *fakeProfileService) Get(ctx context.Context, farmerID snowflake.ID) (*profiledomain.CreditProfile, error) {
	_ = ctx
	_ = farmerID
	return nil, profiledomain.ErrProfileNotFound
}

func (f *fakeProfileService) GetOrCreate(ctx context.Context, tx *gorm.DB, farmerID snowflake.ID) (*profiledomain.CreditProfile, error) {
	_ = ctx
	_ = tx
	_ = farmerID
	return nil, profiledomain.ErrProfileNotFound
}

type fakeProcessor struct {
	grantErr  error
	useResult *enginedomain.UseResult
	useErr    error
	lastUse   enginedomain.UseRequest
	repayErr  error
	freezeErr error
	txn       *enginedomain.CreditTransaction
}

func (f *fakeProcessor) Grant(ctx context.Context, farmerID snowflake.ID, grantedBy *snowflake.ID) (*enginedomain.CreditTransaction, error) {
	_ = ctx
	_ = farmerID
	_ = grantedBy
	return f.txn, f.grantErr
}

func (f *fakeProcessor) Use(ctx context.Context, req enginedomain.UseRequest) (*enginedomain.UseResult, error) {
	_ = ctx
	f.lastUse = req
	return f.useResult, f.useErr
}

func (f *fakeProcessor) Repay(ctx context.Context, farmerID snowflake.ID, amount decimal.Decimal, repaidBy *snowflake.ID) (*enginedomain.CreditTransaction, error) {
	_ = ctx
	_ = farmerID
	_ = amount
	_ = repaidBy
	return f.txn, f.repayErr
}

func (f *fakeProcessor) Adjust(ctx context.Context, req enginedomain.AdjustRequest) (*enginedomain.CreditTransaction, error) {
	_ = ctx
	_ = req
	return f.txn, nil
}

func (f *fakeProcessor) Freeze(ctx context.Context, farmerID snowflake.ID, reason string, frozenBy *snowflake.ID) error {
	_ = ctx
	_ = farmerID
	_ = reason
	_ = frozenBy
	return f.freezeErr
}

func (f *fakeProcessor) Unfreeze(ctx context.Context, farmerID snowflake.ID, unfrozenBy *snowflake.ID) error {
	_ = ctx
	_ = farmerID
	_ = unfrozenBy
	return nil
}

func (f *fakeProcessor) Settle(ctx context.Context, farmerID snowflake.ID, settledBy *snowflake.ID) (*enginedomain.CreditTransaction, error) {
	_ = ctx
	_ = farmerID
	_ = settledBy
	return f.txn, nil
}

func (f *fakeProcessor) ListTransactions(ctx context.Context, farmerID snowflake.ID, limit int) ([]enginedomain.CreditTransaction, error) {
	_ = ctx
	_ = farmerID
	_ = limit
	if f.txn == nil {
		return nil, nil
	}
	return []enginedomain.CreditTransaction{*f.txn}, nil
}

type fakeRequestService struct {
	rejectErr error
	request   *requestdomain.CreditRequest
}

func (f *fakeRequestService) Create(ctx context.Context, req requestdomain.CreateRequest) (*requestdomain.CreditRequest, error) {
	_ = ctx
	_ = req
	return f.request, nil
}

func (f *fakeRequestService) Approve(ctx context.Context, requestID snowflake.ID, approvedBy string) (*requestdomain.DecisionResult, error) {
	_ = ctx
	_ = requestID
	_ = approvedBy
	return &requestdomain.DecisionResult{Success: true, Request: f.request}, nil
}

func (f *fakeRequestService) Reject(ctx context.Context, requestID snowflake.ID, reason, rejectedBy string) (*requestdomain.CreditRequest, error) {
	_ = ctx
	_ = requestID
	_ = reason
	_ = rejectedBy
	return f.request, f.rejectErr
}

func (f *fakeRequestService) Get(ctx context.Context, requestID snowflake.ID) (*requestdomain.CreditRequest, error) {
	_ = ctx
	_ = requestID
	if f.request == nil {
		return nil, requestdomain.ErrRequestNotFound
	}
	return f.request, nil
}

func (f *fakeRequestService) List(ctx context.Context, filter requestdomain.ListFilter) ([]requestdomain.CreditRequest, error) {
	_ = ctx
	_ = filter
	return nil, nil
}

type fakeCatalogService struct {
	products []catalogdomain.CreditEligibleProduct
}

func (f *fakeCatalogService) Get(ctx context.Context, productID snowflake.ID) (*catalogdomain.Product, error) {
	_ = ctx
	_ = productID
	return nil, catalogdomain.ErrProductNotFound
}

func (f *fakeCatalogService) PackagingOptions(ctx context.Context, productID snowflake.ID) ([]catalogdomain.PackagingOption, error) {
	_ = ctx
	_ = productID
	return nil, nil
}

func (f *fakeCatalogService) ResolveUnitPrice(ctx context.Context, productID snowflake.ID, packagingID *snowflake.ID) (*catalogdomain.PriceQuote, error) {
	_ = ctx
	_ = productID
	_ = packagingID
	return nil, catalogdomain.ErrProductNotFound
}

func (f *fakeCatalogService) ListCreditEligible(ctx context.Context) ([]catalogdomain.CreditEligibleProduct, error) {
	_ = ctx
	return f.products, nil
}

func (f *fakeCatalogService) CreateProduct(ctx context.Context, req catalogdomain.CreateProductRequest) (*catalogdomain.Product, error) {
	_ = ctx
	_ = req
	return nil, catalogdomain.ErrInvalidName
}

func (f *fakeCatalogService) UpdateProduct(ctx context.Context, productID snowflake.ID, req catalogdomain.UpdateProductRequest) (*catalogdomain.Product, error) {
	_ = ctx
	_ = productID
	_ = req
	return nil, catalogdomain.ErrProductNotFound
}

func (f *fakeCatalogService) CreatePackaging(ctx context.Context, req catalogdomain.CreatePackagingRequest) (*catalogdomain.PackagingOption, error) {
	_ = ctx
	_ = req
	return nil, catalogdomain.ErrProductNotFound
}

func (f *fakeCatalogService) DeletePackaging(ctx context.Context, packagingID snowflake.ID) error {
	_ = ctx
	_ = packagingID
	return nil
}

func (f *fakeCatalogService) DecrementStock(ctx context.Context, productID snowflake.ID, units decimal.Decimal) error {
	_ = ctx
	_ = productID
	_ = units
	return nil
}

type fakeResolver struct {
	staff map[string]snowflake.ID
}

func (f *fakeResolver) ResolveStaffID(ctx context.Context, userID string) (*snowflake.ID, error) {
	_ = ctx
	if id, ok := f.staff[userID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (f *fakeResolver) FindFarmer(ctx context.Context, farmerID snowflake.ID) (*identitydomain.Farmer, error) {
	_ = ctx
	_ = farmerID
	return nil, nil
}

type serverFixture struct {
	server    *Server
	processor *fakeProcessor
	requests  *fakeRequestService
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	processor := &fakeProcessor{
		txn: &enginedomain.CreditTransaction{
			ID:       snowflake.ID(900),
			FarmerID: snowflake.ID(1),
			Type:     enginedomain.TxnCreditGranted,
			Amount:   decimal.NewFromInt(3000),
		},
		useResult: &enginedomain.UseResult{Success: true},
	}
	requests := &fakeRequestService{
		request: &requestdomain.CreditRequest{
			ID:       snowflake.ID(700),
			FarmerID: snowflake.ID(1),
			Status:   requestdomain.StatusPending,
		},
	}

	s := NewServer(ServerParams{
		Gin: NewEngine(),
		Cfg: config.Config{AppName: "creditledger-test"},
		Log: nil,
		ProfileSvc: &fakeProfileService{
			eligibility: &profiledomain.EligibilityResult{
				IsEligible:      true,
				CreditLimit:     decimal.NewFromInt(3000),
				AvailableCredit: decimal.NewFromInt(3000),
			},
		},
		Processor:  processor,
		RequestSvc: requests,
		CatalogSvc: &fakeCatalogService{},
		Identity:   &fakeResolver{staff: map[string]snowflake.ID{"user-jane": snowflake.ID(42)}},
	})
	registerRoutes(s)

	return &serverFixture{server: s, processor: processor, requests: requests}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(rec, req)
	return rec
}

func TestCheckEligibilityRoute(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/farmers/1/credit/eligibility", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data profiledomain.EligibilityResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.IsEligible)
	assert.True(t, resp.Data.CreditLimit.Equal(decimal.NewFromInt(3000)))
}

func TestCheckEligibilityRejectsBadID(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/farmers/not-a-number/credit/eligibility", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Type)
}

func TestGrantMapsAlreadyGranted(t *testing.T) {
	f := newServerFixture(t)
	f.processor.grantErr = enginedomain.ErrAlreadyGranted

	rec := f.do(t, http.MethodPost, "/api/farmers/1/credit/grant", gin.H{})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unprocessable", resp.Error.Type)
}

func TestUseForwardsParsedRequest(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/farmers/1/credit/use", gin.H{
		"product_id":   "12",
		"quantity":     "3",
		"performed_by": "user-jane",
		"notes":        "drench",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, snowflake.ID(1), f.processor.lastUse.FarmerID)
	assert.Equal(t, snowflake.ID(12), f.processor.lastUse.ProductID)
	assert.Nil(t, f.processor.lastUse.PackagingID)
	assert.True(t, f.processor.lastUse.Quantity.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, enginedomain.ApprovalApproved, f.processor.lastUse.ApprovalStatus)
	require.NotNil(t, f.processor.lastUse.UsedBy)
	assert.Equal(t, snowflake.ID(42), *f.processor.lastUse.UsedBy)
}

func TestRepayMapsProfileNotFound(t *testing.T) {
	f := newServerFixture(t)
	f.processor.repayErr = profiledomain.ErrProfileNotFound

	rec := f.do(t, http.MethodPost, "/api/farmers/1/credit/repay", gin.H{"amount": "100"})

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFreezeMapsMissingReason(t *testing.T) {
	f := newServerFixture(t)
	f.processor.freezeErr = enginedomain.ErrFreezeReasonRequired

	rec := f.do(t, http.MethodPost, "/api/farmers/1/credit/freeze", gin.H{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectMapsMissingReason(t *testing.T) {
	f := newServerFixture(t)
	f.requests.rejectErr = requestdomain.ErrRejectionReasonRequired

	rec := f.do(t, http.MethodPost, "/api/credit-requests/700/reject", gin.H{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettlementSweepUnavailableWithoutScheduler(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/admin/settlements/run", nil)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCorrelationHeaderEchoed(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-Id", "abc-123")
	rec := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-Id"))
}

func TestCorrelationHeaderGenerated(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-Id"))
}
