package app

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NaikDeepak/village-mandi-sub001/internal/clock"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
)

type CatalogRepository interface {
	CreateHub(ctx context.Context, hub domain.Hub) error
	ListHubs(ctx context.Context) ([]domain.Hub, error)

	CreateFarmer(ctx context.Context, farmer domain.Farmer) error
	ListFarmers(ctx context.Context, includeInactive bool) ([]domain.Farmer, error)
	GetFarmer(ctx context.Context, id string) (domain.Farmer, error)
	UpdateFarmer(ctx context.Context, farmer domain.Farmer) error

	CreateProduct(ctx context.Context, product domain.Product) error
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) error

	DashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error)
}

// CatalogService manages master data: hubs, farmers and their products.
type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type CreateHubInput struct {
	Name     string
	Location string
}

func (s *CatalogService) CreateHub(ctx context.Context, in CreateHubInput) (domain.Hub, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Hub{}, domain.ErrNameRequired
	}
	hub := domain.Hub{
		ID:        newID(),
		Name:      name,
		Location:  strings.TrimSpace(in.Location),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateHub(ctx, hub); err != nil {
		return domain.Hub{}, err
	}
	return hub, nil
}

func (s *CatalogService) ListHubs(ctx context.Context) ([]domain.Hub, error) {
	return s.repo.ListHubs(ctx)
}

type FarmerInput struct {
	Name     string
	Phone    string
	Village  string
	District string
}

func (s *CatalogService) CreateFarmer(ctx context.Context, in FarmerInput) (domain.Farmer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Farmer{}, domain.ErrNameRequired
	}
	now := s.clock.Now()
	farmer := domain.Farmer{
		ID:        newID(),
		Name:      name,
		Phone:     strings.TrimSpace(in.Phone),
		Village:   strings.TrimSpace(in.Village),
		District:  strings.TrimSpace(in.District),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateFarmer(ctx, farmer); err != nil {
		return domain.Farmer{}, err
	}
	return farmer, nil
}

func (s *CatalogService) ListFarmers(ctx context.Context, includeInactive bool) ([]domain.Farmer, error) {
	return s.repo.ListFarmers(ctx, includeInactive)
}

func (s *CatalogService) GetFarmer(ctx context.Context, id string) (domain.Farmer, error) {
	if id == "" {
		return domain.Farmer{}, domain.ErrInvalidID
	}
	return s.repo.GetFarmer(ctx, id)
}

// UpdateFarmerInput is a partial update; nil fields are left unchanged.
type UpdateFarmerInput struct {
	ID       string
	Name     *string
	Phone    *string
	Village  *string
	District *string
	IsActive *bool
}

func (s *CatalogService) UpdateFarmer(ctx context.Context, in UpdateFarmerInput) (domain.Farmer, error) {
	farmer, err := s.GetFarmer(ctx, in.ID)
	if err != nil {
		return domain.Farmer{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return domain.Farmer{}, domain.ErrNameRequired
		}
		farmer.Name = name
	}
	setTrimmed(&farmer.Phone, in.Phone)
	setTrimmed(&farmer.Village, in.Village)
	setTrimmed(&farmer.District, in.District)
	if in.IsActive != nil {
		farmer.IsActive = *in.IsActive
	}
	farmer.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateFarmer(ctx, farmer); err != nil {
		return domain.Farmer{}, err
	}
	return farmer, nil
}

// DeactivateFarmer soft-deletes a farmer. Their products stay as they are
// but new products cannot be added.
func (s *CatalogService) DeactivateFarmer(ctx context.Context, id string) (domain.Farmer, error) {
	inactive := false
	return s.UpdateFarmer(ctx, UpdateFarmerInput{ID: id, IsActive: &inactive})
}

type CreateProductInput struct {
	FarmerID  string
	Name      string
	Category  string
	Unit      string
	BasePrice decimal.Decimal
}

func (s *CatalogService) CreateProduct(ctx context.Context, in CreateProductInput) (domain.Product, error) {
	if in.FarmerID == "" {
		return domain.Product{}, domain.ErrInvalidID
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Product{}, domain.ErrNameRequired
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		return domain.Product{}, domain.ErrUnitRequired
	}
	if in.BasePrice.IsNegative() {
		return domain.Product{}, domain.ErrInvalidPrice
	}

	farmer, err := s.repo.GetFarmer(ctx, in.FarmerID)
	if err != nil {
		return domain.Product{}, err
	}
	if !farmer.IsActive {
		return domain.Product{}, domain.ErrFarmerInactive
	}

	now := s.clock.Now()
	product := domain.Product{
		ID:        newID(),
		FarmerID:  farmer.ID,
		Name:      name,
		Category:  strings.TrimSpace(in.Category),
		Unit:      unit,
		BasePrice: domain.RoundMoney(in.BasePrice),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, domain.ErrInvalidID
	}
	return s.repo.GetProduct(ctx, id)
}

type UpdateProductInput struct {
	ID        string
	Name      *string
	Category  *string
	Unit      *string
	BasePrice *decimal.Decimal
	IsActive  *bool
}

func (s *CatalogService) UpdateProduct(ctx context.Context, in UpdateProductInput) (domain.Product, error) {
	product, err := s.GetProduct(ctx, in.ID)
	if err != nil {
		return domain.Product{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return domain.Product{}, domain.ErrNameRequired
		}
		product.Name = name
	}
	if in.Unit != nil {
		unit := strings.TrimSpace(*in.Unit)
		if unit == "" {
			return domain.Product{}, domain.ErrUnitRequired
		}
		product.Unit = unit
	}
	setTrimmed(&product.Category, in.Category)
	if in.BasePrice != nil {
		if in.BasePrice.IsNegative() {
			return domain.Product{}, domain.ErrInvalidPrice
		}
		product.BasePrice = domain.RoundMoney(*in.BasePrice)
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	product.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *CatalogService) DeactivateProduct(ctx context.Context, id string) (domain.Product, error) {
	inactive := false
	return s.UpdateProduct(ctx, UpdateProductInput{ID: id, IsActive: &inactive})
}

func (s *CatalogService) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	return s.repo.DashboardStats(ctx, s.clock.Now())
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
