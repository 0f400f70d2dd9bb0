package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
)

// CatalogRepository stores hubs, farmers and products, and computes the
// admin dashboard counters.
type CatalogRepository struct {
	db
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db{pool: pool}}
}

func (r *CatalogRepository) CreateHub(ctx context.Context, hub domain.Hub) error {
	const stmt = `
INSERT INTO hubs (id, name, location, created_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.exec(ctx, stmt, hub.ID, hub.Name, hub.Location, hub.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create hub: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListHubs(ctx context.Context) ([]domain.Hub, error) {
	const query = `
SELECT id, name, location, created_at
FROM hubs
ORDER BY name ASC`
	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list hubs: %w", err)
	}
	defer rows.Close()

	var hubs []domain.Hub
	for rows.Next() {
		var hub domain.Hub
		if err := rows.Scan(&hub.ID, &hub.Name, &hub.Location, &hub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan hub: %w", err)
		}
		hubs = append(hubs, hub)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate hubs: %w", rows.Err())
	}
	return hubs, nil
}

func (r *CatalogRepository) GetHub(ctx context.Context, id string) (domain.Hub, error) {
	return r.getHub(ctx, id)
}

func (d db) getHub(ctx context.Context, id string) (domain.Hub, error) {
	const query = `SELECT id, name, location, created_at FROM hubs WHERE id = $1`
	var hub domain.Hub
	err := d.queryRow(ctx, query, id).Scan(&hub.ID, &hub.Name, &hub.Location, &hub.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hub{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Hub{}, domain.ErrHubNotFound
		}
		return domain.Hub{}, fmt.Errorf("get hub: %w", err)
	}
	return hub, nil
}

const farmerColumns = `id, name, phone, village, district, is_active, created_at, updated_at`

func scanFarmer(row pgx.Row) (domain.Farmer, error) {
	var f domain.Farmer
	err := row.Scan(&f.ID, &f.Name, &f.Phone, &f.Village, &f.District, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (r *CatalogRepository) CreateFarmer(ctx context.Context, farmer domain.Farmer) error {
	const stmt = `
INSERT INTO farmers (id, name, phone, village, district, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.exec(ctx, stmt,
		farmer.ID, farmer.Name, farmer.Phone, farmer.Village, farmer.District,
		farmer.IsActive, farmer.CreatedAt, farmer.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create farmer: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListFarmers(ctx context.Context, includeInactive bool) ([]domain.Farmer, error) {
	query := `SELECT ` + farmerColumns + ` FROM farmers WHERE is_active OR $1 ORDER BY name ASC`
	rows, err := r.query(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list farmers: %w", err)
	}
	defer rows.Close()

	var farmers []domain.Farmer
	for rows.Next() {
		f, err := scanFarmer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan farmer: %w", err)
		}
		farmers = append(farmers, f)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate farmers: %w", rows.Err())
	}
	return farmers, nil
}

func (r *CatalogRepository) GetFarmer(ctx context.Context, id string) (domain.Farmer, error) {
	f, err := scanFarmer(r.queryRow(ctx, `SELECT `+farmerColumns+` FROM farmers WHERE id = $1`, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Farmer{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Farmer{}, domain.ErrFarmerNotFound
		}
		return domain.Farmer{}, fmt.Errorf("get farmer: %w", err)
	}
	return f, nil
}

func (r *CatalogRepository) UpdateFarmer(ctx context.Context, farmer domain.Farmer) error {
	const stmt = `
UPDATE farmers
SET name = $2, phone = $3, village = $4, district = $5, is_active = $6, updated_at = $7
WHERE id = $1`
	tag, err := r.exec(ctx, stmt,
		farmer.ID, farmer.Name, farmer.Phone, farmer.Village, farmer.District,
		farmer.IsActive, farmer.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update farmer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFarmerNotFound
	}
	return nil
}

const productColumns = `id, farmer_id, name, category, unit, base_price, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.FarmerID, &p.Name, &p.Category, &p.Unit, &p.BasePrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *CatalogRepository) CreateProduct(ctx context.Context, product domain.Product) error {
	const stmt = `
INSERT INTO products (id, farmer_id, name, category, unit, base_price, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.exec(ctx, stmt,
		product.ID, product.FarmerID, product.Name, product.Category, product.Unit,
		product.BasePrice, product.IsActive, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrFarmerNotFound
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	query := `
SELECT ` + productColumns + `
FROM products
WHERE ($1 = '' OR farmer_id::text = $1) AND (is_active OR $2)
ORDER BY name ASC`
	rows, err := r.query(ctx, query, filter.FarmerID, filter.IncludeInactive)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate products: %w", rows.Err())
	}
	return products, nil
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return r.getProduct(ctx, id)
}

func (d db) getProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := scanProduct(d.queryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Product{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *CatalogRepository) UpdateProduct(ctx context.Context, product domain.Product) error {
	const stmt = `
UPDATE products
SET name = $2, category = $3, unit = $4, base_price = $5, is_active = $6, updated_at = $7
WHERE id = $1`
	tag, err := r.exec(ctx, stmt,
		product.ID, product.Name, product.Category, product.Unit,
		product.BasePrice, product.IsActive, product.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *CatalogRepository) DashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error) {
	const query = `
SELECT
	(SELECT COUNT(*) FROM farmers WHERE is_active),
	(SELECT COUNT(*) FROM products WHERE is_active),
	(SELECT COUNT(*) FROM batches WHERE status = 'OPEN' AND cutoff_at > $1),
	(SELECT COUNT(*) FROM orders),
	(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'PAID' AND stage = 'COMMITMENT'),
	(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'PAID' AND stage = 'SETTLEMENT')`

	var s domain.DashboardStats
	err := r.queryRow(ctx, query, now).Scan(
		&s.ActiveFarmers,
		&s.ActiveProducts,
		&s.OpenBatches,
		&s.Orders,
		&s.CommitmentsCollected,
		&s.SettlementsCollected,
	)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return s, nil
}
