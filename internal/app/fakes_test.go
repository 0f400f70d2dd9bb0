package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NaikDeepak/village-mandi-sub001/internal/auth"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
	"github.com/NaikDeepak/village-mandi-sub001/internal/events"
)

// fakeStore is an in-memory implementation of every repository interface
// in this package. WithTx runs fn directly; tests are single-goroutine.
type fakeStore struct {
	users         map[string]domain.User
	hubs          map[string]domain.Hub
	farmers       map[string]domain.Farmer
	products      map[string]domain.Product
	batches       map[string]domain.Batch
	batchProducts map[string][]domain.BatchProduct
	orders        map[string]domain.Order

	// createOrderErr, when set, is returned once by CreateOrder.
	createOrderErr error
	// lateOrder is returned by the second FindOrderByIdempotencyKey call to
	// simulate a concurrent insert.
	lateOrder *domain.Order
	findCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[string]domain.User),
		hubs:          make(map[string]domain.Hub),
		farmers:       make(map[string]domain.Farmer),
		products:      make(map[string]domain.Product),
		batches:       make(map[string]domain.Batch),
		batchProducts: make(map[string][]domain.BatchProduct),
		orders:        make(map[string]domain.Order),
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) CreateUser(_ context.Context, user domain.User) error {
	for _, u := range f.users {
		if user.Email != "" && u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (f *fakeStore) GetUserByFirebaseUID(_ context.Context, uid string) (domain.User, error) {
	for _, u := range f.users {
		if u.FirebaseUID != "" && u.FirebaseUID == uid {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (f *fakeStore) CreateHub(_ context.Context, hub domain.Hub) error {
	f.hubs[hub.ID] = hub
	return nil
}

func (f *fakeStore) ListHubs(_ context.Context) ([]domain.Hub, error) {
	out := make([]domain.Hub, 0, len(f.hubs))
	for _, h := range f.hubs {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) GetHub(_ context.Context, id string) (domain.Hub, error) {
	h, ok := f.hubs[id]
	if !ok {
		return domain.Hub{}, domain.ErrHubNotFound
	}
	return h, nil
}

func (f *fakeStore) CreateFarmer(_ context.Context, farmer domain.Farmer) error {
	f.farmers[farmer.ID] = farmer
	return nil
}

func (f *fakeStore) ListFarmers(_ context.Context, includeInactive bool) ([]domain.Farmer, error) {
	var out []domain.Farmer
	for _, fm := range f.farmers {
		if fm.IsActive || includeInactive {
			out = append(out, fm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) GetFarmer(_ context.Context, id string) (domain.Farmer, error) {
	fm, ok := f.farmers[id]
	if !ok {
		return domain.Farmer{}, domain.ErrFarmerNotFound
	}
	return fm, nil
}

func (f *fakeStore) UpdateFarmer(_ context.Context, farmer domain.Farmer) error {
	if _, ok := f.farmers[farmer.ID]; !ok {
		return domain.ErrFarmerNotFound
	}
	f.farmers[farmer.ID] = farmer
	return nil
}

func (f *fakeStore) CreateProduct(_ context.Context, product domain.Product) error {
	f.products[product.ID] = product
	return nil
}

func (f *fakeStore) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.products {
		if filter.FarmerID != "" && p.FarmerID != filter.FarmerID {
			continue
		}
		if !p.IsActive && !filter.IncludeInactive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) GetProduct(_ context.Context, id string) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeStore) UpdateProduct(_ context.Context, product domain.Product) error {
	if _, ok := f.products[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	f.products[product.ID] = product
	return nil
}

func (f *fakeStore) DashboardStats(_ context.Context, now time.Time) (domain.DashboardStats, error) {
	var s domain.DashboardStats
	for _, fm := range f.farmers {
		if fm.IsActive {
			s.ActiveFarmers++
		}
	}
	for _, p := range f.products {
		if p.IsActive {
			s.ActiveProducts++
		}
	}
	for _, b := range f.batches {
		if b.EffectiveStatus(now) == domain.BatchStatusOpen {
			s.OpenBatches++
		}
	}
	for _, o := range f.orders {
		s.Orders++
		for _, p := range o.Payments {
			if !p.Paid() {
				continue
			}
			if p.Stage == domain.PaymentStageCommitment {
				s.CommitmentsCollected = s.CommitmentsCollected.Add(p.Amount)
			} else {
				s.SettlementsCollected = s.SettlementsCollected.Add(p.Amount)
			}
		}
	}
	return s, nil
}

func (f *fakeStore) CreateBatch(_ context.Context, batch domain.Batch) error {
	f.batches[batch.ID] = batch
	return nil
}

func (f *fakeStore) GetBatch(_ context.Context, id string) (domain.Batch, error) {
	b, ok := f.batches[id]
	if !ok {
		return domain.Batch{}, domain.ErrBatchNotFound
	}
	return b, nil
}

func (f *fakeStore) GetBatchForUpdate(ctx context.Context, id string) (domain.Batch, error) {
	return f.GetBatch(ctx, id)
}

func (f *fakeStore) GetBatchForShare(ctx context.Context, id string) (domain.Batch, error) {
	return f.GetBatch(ctx, id)
}

func (f *fakeStore) ListBatches(_ context.Context, statuses []domain.BatchStatus) ([]domain.Batch, error) {
	var out []domain.Batch
	for _, b := range f.batches {
		if len(statuses) > 0 && !containsStatus(statuses, b.Status) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CutoffAt.Before(out[j].CutoffAt) })
	return out, nil
}

func containsStatus(list []domain.BatchStatus, s domain.BatchStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (f *fakeStore) UpdateBatch(_ context.Context, batch domain.Batch) error {
	if _, ok := f.batches[batch.ID]; !ok {
		return domain.ErrBatchNotFound
	}
	f.batches[batch.ID] = batch
	return nil
}

func (f *fakeStore) ListExpiredOpenBatchIDs(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for _, b := range f.batches {
		if b.Status == domain.BatchStatusOpen && b.CutoffPassed(now) {
			ids = append(ids, b.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) ListBatchProducts(_ context.Context, batchID string) ([]domain.BatchProduct, error) {
	return append([]domain.BatchProduct(nil), f.batchProducts[batchID]...), nil
}

func (f *fakeStore) UpsertBatchProduct(_ context.Context, bp domain.BatchProduct) error {
	list := f.batchProducts[bp.BatchID]
	for i := range list {
		if list[i].ProductID == bp.ProductID {
			list[i] = bp
			return nil
		}
	}
	f.batchProducts[bp.BatchID] = append(list, bp)
	return nil
}

func (f *fakeStore) DeleteBatchProduct(_ context.Context, batchID, productID string) error {
	list := f.batchProducts[batchID]
	for i := range list {
		if list[i].ProductID == productID {
			f.batchProducts[batchID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return domain.ErrBatchProductNotFound
}

func (f *fakeStore) CancelOpenOrders(_ context.Context, batchID string, now time.Time) ([]string, error) {
	var ids []string
	for id, o := range f.orders {
		if o.BatchID != batchID || o.Status == domain.OrderStatusPaid || o.Status == domain.OrderStatusCancelled {
			continue
		}
		o.Status = domain.OrderStatusCancelled
		o.UpdatedAt = now
		f.orders[id] = o
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) FindOrderByIdempotencyKey(_ context.Context, buyerID, key string) (*domain.Order, error) {
	f.findCalls++
	if f.lateOrder != nil && f.findCalls > 1 {
		o := *f.lateOrder
		return &o, nil
	}
	for _, o := range f.orders {
		if o.BuyerID == buyerID && o.IdempotencyKey == key {
			copy := o
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order domain.Order) error {
	if err := f.createOrderErr; err != nil {
		f.createOrderErr = nil
		return err
	}
	for _, o := range f.orders {
		if o.BuyerID == order.BuyerID && o.IdempotencyKey == order.IdempotencyKey {
			return domain.ErrIdempotencyConflict
		}
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeStore) GetOrder(_ context.Context, id string) (domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	o.Payments = append([]domain.Payment(nil), o.Payments...)
	return o, nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return f.GetOrder(ctx, id)
}

func (f *fakeStore) ListOrdersByBuyer(_ context.Context, buyerID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) ListOrdersByBatch(_ context.Context, batchID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.BatchID == batchID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus, now time.Time) error {
	o, ok := f.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = now
	f.orders[id] = o
	return nil
}

func (f *fakeStore) MarkPaymentPaid(_ context.Context, paymentID, reference string, paidAt time.Time) error {
	for id, o := range f.orders {
		for i, p := range o.Payments {
			if p.ID != paymentID {
				continue
			}
			payments := append([]domain.Payment(nil), o.Payments...)
			at := paidAt
			payments[i].Status = domain.PaymentStatusPaid
			payments[i].Reference = reference
			payments[i].PaidAt = &at
			o.Payments = payments
			f.orders[id] = o
			return nil
		}
	}
	return domain.ErrOrderNotFound
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeTokens struct{}

func (fakeTokens) Issue(user domain.User) (string, time.Time, error) {
	return "token-" + user.ID, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

type fakeIdentity struct {
	identity auth.FirebaseIdentity
	err      error
}

func (f fakeIdentity) VerifyIDToken(context.Context, string) (auth.FirebaseIdentity, error) {
	return f.identity, f.err
}
