package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/NaikDeepak/village-mandi-sub001/internal/app"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
)

// CatalogAPI is the subset of the catalog service the admin handlers need.
type CatalogAPI interface {
	CreateHub(ctx context.Context, in app.CreateHubInput) (domain.Hub, error)
	ListHubs(ctx context.Context) ([]domain.Hub, error)
	CreateFarmer(ctx context.Context, in app.FarmerInput) (domain.Farmer, error)
	ListFarmers(ctx context.Context, includeInactive bool) ([]domain.Farmer, error)
	GetFarmer(ctx context.Context, id string) (domain.Farmer, error)
	UpdateFarmer(ctx context.Context, in app.UpdateFarmerInput) (domain.Farmer, error)
	DeactivateFarmer(ctx context.Context, id string) (domain.Farmer, error)
	CreateProduct(ctx context.Context, in app.CreateProductInput) (domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	UpdateProduct(ctx context.Context, in app.UpdateProductInput) (domain.Product, error)
	DeactivateProduct(ctx context.Context, id string) (domain.Product, error)
	DashboardStats(ctx context.Context) (domain.DashboardStats, error)
}

type CatalogHandler struct {
	svc    CatalogAPI
	logger *zap.Logger
}

func NewCatalogHandler(svc CatalogAPI, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{svc: svc, logger: logger}
}

type createHubRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type createFarmerRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Village  string `json:"village"`
	District string `json:"district"`
}

type updateFarmerRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Village  *string `json:"village"`
	District *string `json:"district"`
	IsActive *bool   `json:"isActive"`
}

type createProductRequest struct {
	FarmerID  string          `json:"farmerId"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Unit      string          `json:"unit"`
	BasePrice decimal.Decimal `json:"basePrice"`
}

type updateProductRequest struct {
	Name      *string          `json:"name"`
	Category  *string          `json:"category"`
	Unit      *string          `json:"unit"`
	BasePrice *decimal.Decimal `json:"basePrice"`
	IsActive  *bool            `json:"isActive"`
}

type statsResponse struct {
	ActiveFarmers        int    `json:"activeFarmers"`
	ActiveProducts       int    `json:"activeProducts"`
	OpenBatches          int    `json:"openBatches"`
	Orders               int    `json:"orders"`
	CommitmentsCollected string `json:"commitmentsCollected"`
	SettlementsCollected string `json:"settlementsCollected"`
}

// Hubs serves GET|POST /api/admin/hubs.
func (h *CatalogHandler) Hubs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		hubs, err := h.svc.ListHubs(r.Context())
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		resp := make([]hubResponse, 0, len(hubs))
		for _, hub := range hubs {
			resp = append(resp, toHubResponse(hub))
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		var req createHubRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		hub, err := h.svc.CreateHub(r.Context(), app.CreateHubInput{Name: req.Name, Location: req.Location})
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toHubResponse(hub))
	default:
		methodNotAllowed(w)
	}
}

// Farmers serves GET|POST /api/admin/farmers.
func (h *CatalogHandler) Farmers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		farmers, err := h.svc.ListFarmers(r.Context(), queryBool(r, "include_inactive"))
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		resp := make([]farmerResponse, 0, len(farmers))
		for _, f := range farmers {
			resp = append(resp, toFarmerResponse(f))
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		var req createFarmerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		farmer, err := h.svc.CreateFarmer(r.Context(), app.FarmerInput{
			Name:     req.Name,
			Phone:    req.Phone,
			Village:  req.Village,
			District: req.District,
		})
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toFarmerResponse(farmer))
	default:
		methodNotAllowed(w)
	}
}

// Farmer serves GET|PUT|DELETE /api/admin/farmers/{id}. DELETE is a soft
// delete.
func (h *CatalogHandler) Farmer(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/api/admin/farmers")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}
	id := parts[0]

	var (
		farmer domain.Farmer
		err    error
	)
	switch r.Method {
	case http.MethodGet:
		farmer, err = h.svc.GetFarmer(r.Context(), id)
	case http.MethodPut:
		var req updateFarmerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		farmer, err = h.svc.UpdateFarmer(r.Context(), app.UpdateFarmerInput{
			ID:       id,
			Name:     req.Name,
			Phone:    req.Phone,
			Village:  req.Village,
			District: req.District,
			IsActive: req.IsActive,
		})
	case http.MethodDelete:
		farmer, err = h.svc.DeactivateFarmer(r.Context(), id)
	default:
		methodNotAllowed(w)
		return
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toFarmerResponse(farmer))
}

// Products serves GET|POST /api/admin/products.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := h.svc.ListProducts(r.Context(), domain.ProductFilter{
			FarmerID:        r.URL.Query().Get("farmer_id"),
			IncludeInactive: queryBool(r, "include_inactive"),
		})
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		resp := make([]productResponse, 0, len(products))
		for _, p := range products {
			resp = append(resp, toProductResponse(p))
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		var req createProductRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.FarmerID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "farmerId is required")
			return
		}
		product, err := h.svc.CreateProduct(r.Context(), app.CreateProductInput{
			FarmerID:  req.FarmerID,
			Name:      req.Name,
			Category:  req.Category,
			Unit:      req.Unit,
			BasePrice: req.BasePrice,
		})
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toProductResponse(product))
	default:
		methodNotAllowed(w)
	}
}

// Product serves GET|PUT|DELETE /api/admin/products/{id}.
func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/api/admin/products")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
		return
	}
	id := parts[0]

	var (
		product domain.Product
		err     error
	)
	switch r.Method {
	case http.MethodGet:
		product, err = h.svc.GetProduct(r.Context(), id)
	case http.MethodPut:
		var req updateProductRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		product, err = h.svc.UpdateProduct(r.Context(), app.UpdateProductInput{
			ID:        id,
			Name:      req.Name,
			Category:  req.Category,
			Unit:      req.Unit,
			BasePrice: req.BasePrice,
			IsActive:  req.IsActive,
		})
	case http.MethodDelete:
		product, err = h.svc.DeactivateProduct(r.Context(), id)
	default:
		methodNotAllowed(w)
		return
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Stats serves GET /api/admin/stats.
func (h *CatalogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := h.svc.DashboardStats(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		ActiveFarmers:        stats.ActiveFarmers,
		ActiveProducts:       stats.ActiveProducts,
		OpenBatches:          stats.OpenBatches,
		Orders:               stats.Orders,
		CommitmentsCollected: money(stats.CommitmentsCollected),
		SettlementsCollected: money(stats.SettlementsCollected),
	})
}

// pathSegments returns the non-empty path segments after prefix.
func pathSegments(path, prefix string) []string {
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok {
		return nil
	}
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	parts := strings.Split(rest, "/")
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return parts
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}
