package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NaikDeepak/village-mandi-sub001/internal/app"
	"github.com/NaikDeepak/village-mandi-sub001/internal/auth"
	"github.com/NaikDeepak/village-mandi-sub001/internal/clock"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

const testSecret = "test-secret"

// stubAuth, stubCatalog, stubBatches and stubOrders embed their interface
// so each test only implements what it exercises. Calling anything else
// panics on the nil embedded value.
type stubAuth struct {
	AuthAPI
	register func(app.RegisterInput) (domain.User, error)
	login    func(email, password string) (app.Session, error)
	firebase func(idToken string) (app.Session, error)
	me       func(userID string) (domain.User, error)
}

func (s *stubAuth) Register(_ context.Context, in app.RegisterInput) (domain.User, error) {
	return s.register(in)
}

func (s *stubAuth) Login(_ context.Context, email, password string) (app.Session, error) {
	return s.login(email, password)
}

func (s *stubAuth) LoginWithFirebase(_ context.Context, idToken string) (app.Session, error) {
	return s.firebase(idToken)
}

func (s *stubAuth) Me(_ context.Context, userID string) (domain.User, error) {
	return s.me(userID)
}

type stubCatalog struct {
	CatalogAPI
	farmers []domain.Farmer
	farmer  domain.Farmer
	product domain.Product
	stats   domain.DashboardStats
	err     error

	gotIncludeInactive bool
	gotFarmerUpdate    app.UpdateFarmerInput
	gotProductInput    app.CreateProductInput
}

func (s *stubCatalog) ListFarmers(_ context.Context, includeInactive bool) ([]domain.Farmer, error) {
	s.gotIncludeInactive = includeInactive
	return s.farmers, s.err
}

func (s *stubCatalog) CreateFarmer(_ context.Context, in app.FarmerInput) (domain.Farmer, error) {
	if s.err != nil {
		return domain.Farmer{}, s.err
	}
	return domain.Farmer{ID: "farmer-1", Name: in.Name, Village: in.Village, IsActive: true}, nil
}

func (s *stubCatalog) GetFarmer(_ context.Context, _ string) (domain.Farmer, error) {
	return s.farmer, s.err
}

func (s *stubCatalog) UpdateFarmer(_ context.Context, in app.UpdateFarmerInput) (domain.Farmer, error) {
	s.gotFarmerUpdate = in
	return s.farmer, s.err
}

func (s *stubCatalog) DeactivateFarmer(_ context.Context, _ string) (domain.Farmer, error) {
	f := s.farmer
	f.IsActive = false
	return f, s.err
}

func (s *stubCatalog) CreateProduct(_ context.Context, in app.CreateProductInput) (domain.Product, error) {
	s.gotProductInput = in
	return s.product, s.err
}

func (s *stubCatalog) DashboardStats(context.Context) (domain.DashboardStats, error) {
	return s.stats, s.err
}

type stubBatches struct {
	BatchAPI
	view        app.BatchView
	views       []app.BatchView
	err         error
	gotStatus   string
	transition  app.TransitionBatchInput
	upsert      app.UpsertBatchProductInput
	removed     [2]string
	createdWith app.CreateBatchInput
}

func (s *stubBatches) CreateBatch(_ context.Context, in app.CreateBatchInput) (domain.Batch, error) {
	s.createdWith = in
	return s.view.Batch, s.err
}

func (s *stubBatches) TransitionBatch(_ context.Context, in app.TransitionBatchInput) (domain.Batch, error) {
	s.transition = in
	return s.view.Batch, s.err
}

func (s *stubBatches) UpsertBatchProduct(_ context.Context, in app.UpsertBatchProductInput) (domain.BatchProduct, error) {
	s.upsert = in
	return domain.BatchProduct{
		BatchID:             in.BatchID,
		ProductID:           in.ProductID,
		PricePerUnit:        in.PricePerUnit,
		FacilitationPercent: in.FacilitationPercent,
		MinOrderQty:         in.MinOrderQty,
	}, s.err
}

func (s *stubBatches) RemoveBatchProduct(_ context.Context, batchID, productID string) error {
	s.removed = [2]string{batchID, productID}
	return s.err
}

func (s *stubBatches) GetBatch(_ context.Context, _ string) (app.BatchView, error) {
	return s.view, s.err
}

func (s *stubBatches) ListBatches(_ context.Context, status string) ([]app.BatchView, error) {
	s.gotStatus = status
	return s.views, s.err
}

func (s *stubBatches) ListOpenBatches(context.Context) ([]app.BatchView, error) {
	return s.views, s.err
}

type stubOrders struct {
	OrderAPI
	result     app.PlaceOrderResult
	order      domain.Order
	orders     []domain.Order
	err        error
	gotPlace   app.PlaceOrderInput
	gotActor   app.Actor
	gotBatchID string
}

func (s *stubOrders) PlaceOrder(_ context.Context, in app.PlaceOrderInput) (app.PlaceOrderResult, error) {
	s.gotPlace = in
	return s.result, s.err
}

func (s *stubOrders) GetOrder(_ context.Context, actor app.Actor, _ string) (domain.Order, error) {
	s.gotActor = actor
	return s.order, s.err
}

func (s *stubOrders) ListMyOrders(_ context.Context, actor app.Actor) ([]domain.Order, error) {
	s.gotActor = actor
	return s.orders, s.err
}

func (s *stubOrders) ListBatchOrders(_ context.Context, batchID string) ([]domain.Order, error) {
	s.gotBatchID = batchID
	return s.orders, s.err
}

func (s *stubOrders) CancelOrder(_ context.Context, actor app.Actor, _ string) (domain.Order, error) {
	s.gotActor = actor
	return s.order, s.err
}

type stubPayments struct {
	result app.RecordPaymentResult
	err    error
	got    app.RecordPaymentInput
	actor  app.Actor
}

func (s *stubPayments) RecordPayment(_ context.Context, actor app.Actor, in app.RecordPaymentInput) (app.RecordPaymentResult, error) {
	s.actor = actor
	s.got = in
	return s.result, s.err
}

type testServer struct {
	handler  http.Handler
	tokens   *auth.TokenIssuer
	auth     *stubAuth
	catalog  *stubCatalog
	batches  *stubBatches
	orders   *stubOrders
	payments *stubPayments
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		tokens:   auth.NewTokenIssuer(testSecret, clock.NewFixed(testNow)),
		auth:     &stubAuth{},
		catalog:  &stubCatalog{},
		batches:  &stubBatches{},
		orders:   &stubOrders{},
		payments: &stubPayments{},
	}
	ts.handler = NewRouter(RouterConfig{
		Version:            "test",
		Rules:              domain.NewSystemRules(false),
		RateLimitPerMinute: 1000,
		Auth:               ts.auth,
		Catalog:            ts.catalog,
		Batches:            ts.batches,
		Orders:             ts.orders,
		Payments:           ts.payments,
		Tokens:             ts.tokens,
		Clock:              clock.NewFixed(testNow),
	})
	return ts
}

func (ts *testServer) token(t *testing.T, id string, role domain.Role) string {
	t.Helper()
	tok, _, err := ts.tokens.Issue(domain.User{ID: id, Role: role})
	require.NoError(t, err)
	return tok
}

// do sends a request authenticated with token (skipped when empty) and
// returns the recorder.
func (ts *testServer) do(t *testing.T, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}
