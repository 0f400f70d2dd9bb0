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

type BatchRepository struct {
	db
}

func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{db: db{pool: pool}}
}

func (r *BatchRepository) GetHub(ctx context.Context, id string) (domain.Hub, error) {
	return r.getHub(ctx, id)
}

func (r *BatchRepository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return r.getProduct(ctx, id)
}

const batchColumns = `id, hub_id, name, status, cutoff_at, delivery_date, created_at, updated_at`

func scanBatch(row pgx.Row) (domain.Batch, error) {
	var b domain.Batch
	var status string
	err := row.Scan(&b.ID, &b.HubID, &b.Name, &status, &b.CutoffAt, &b.DeliveryDate, &b.CreatedAt, &b.UpdatedAt)
	b.Status = domain.BatchStatus(status)
	return b, err
}

func (r *BatchRepository) CreateBatch(ctx context.Context, batch domain.Batch) error {
	const stmt = `
INSERT INTO batches (id, hub_id, name, status, cutoff_at, delivery_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		batch.ID,
		batch.HubID,
		batch.Name,
		string(batch.Status),
		batch.CutoffAt,
		batch.DeliveryDate,
		batch.CreatedAt,
		batch.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrHubNotFound
		}
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

func (r *BatchRepository) GetBatch(ctx context.Context, id string) (domain.Batch, error) {
	return r.getBatch(ctx, id, "")
}

// GetBatchForUpdate takes an exclusive row lock; callers must be inside
// WithTx.
func (r *BatchRepository) GetBatchForUpdate(ctx context.Context, id string) (domain.Batch, error) {
	return r.getBatch(ctx, id, "FOR UPDATE")
}

func (d db) getBatch(ctx context.Context, id, lock string) (domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1 ` + lock
	b, err := scanBatch(d.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Batch{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Batch{}, domain.ErrBatchNotFound
		}
		return domain.Batch{}, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

func (r *BatchRepository) ListBatches(ctx context.Context, statuses []domain.BatchStatus) ([]domain.Batch, error) {
	filter := make([]string, 0, len(statuses))
	for _, s := range statuses {
		filter = append(filter, string(s))
	}
	query := `
SELECT ` + batchColumns + `
FROM batches
WHERE cardinality($1::text[]) = 0 OR status = ANY($1::text[])
ORDER BY cutoff_at DESC`

	rows, err := r.query(ctx, query, filter)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate batches: %w", rows.Err())
	}
	return batches, nil
}

func (r *BatchRepository) UpdateBatch(ctx context.Context, batch domain.Batch) error {
	const stmt = `
UPDATE batches
SET name = $2, status = $3, cutoff_at = $4, delivery_date = $5, updated_at = $6
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		batch.ID,
		batch.Name,
		string(batch.Status),
		batch.CutoffAt,
		batch.DeliveryDate,
		batch.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBatchNotFound
	}
	return nil
}

func (r *BatchRepository) ListExpiredOpenBatchIDs(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
SELECT id
FROM batches
WHERE status = 'OPEN' AND cutoff_at <= $1
ORDER BY cutoff_at ASC`

	rows, err := r.query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list expired batches: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect expired batches: %w", err)
	}
	return ids, nil
}

func (r *BatchRepository) ListBatchProducts(ctx context.Context, batchID string) ([]domain.BatchProduct, error) {
	return r.listBatchProducts(ctx, batchID)
}

func (d db) listBatchProducts(ctx context.Context, batchID string) ([]domain.BatchProduct, error) {
	const query = `
SELECT bp.batch_id, bp.product_id, p.name, p.unit, bp.price_per_unit,
	bp.facilitation_percent, bp.min_order_qty, bp.max_order_qty
FROM batch_products bp
JOIN products p ON p.id = bp.product_id
WHERE bp.batch_id = $1
ORDER BY bp.created_at ASC, p.name ASC`

	rows, err := d.query(ctx, query, batchID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list batch products: %w", err)
	}
	defer rows.Close()

	var products []domain.BatchProduct
	for rows.Next() {
		var bp domain.BatchProduct
		if err := rows.Scan(
			&bp.BatchID,
			&bp.ProductID,
			&bp.ProductName,
			&bp.Unit,
			&bp.PricePerUnit,
			&bp.FacilitationPercent,
			&bp.MinOrderQty,
			&bp.MaxOrderQty,
		); err != nil {
			return nil, fmt.Errorf("scan batch product: %w", err)
		}
		products = append(products, bp)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate batch products: %w", err)
	}
	return products, nil
}

func (r *BatchRepository) UpsertBatchProduct(ctx context.Context, bp domain.BatchProduct) error {
	const stmt = `
INSERT INTO batch_products (batch_id, product_id, price_per_unit, facilitation_percent, min_order_qty, max_order_qty)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (batch_id, product_id) DO UPDATE
SET price_per_unit = EXCLUDED.price_per_unit,
	facilitation_percent = EXCLUDED.facilitation_percent,
	min_order_qty = EXCLUDED.min_order_qty,
	max_order_qty = EXCLUDED.max_order_qty`

	_, err := r.exec(ctx, stmt,
		bp.BatchID,
		bp.ProductID,
		bp.PricePerUnit,
		bp.FacilitationPercent,
		bp.MinOrderQty,
		bp.MaxOrderQty,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			if constraintName(err) == "batch_products_batch_id_fkey" {
				return domain.ErrBatchNotFound
			}
			return domain.ErrProductNotFound
		}
		return fmt.Errorf("upsert batch product: %w", err)
	}
	return nil
}

func (r *BatchRepository) DeleteBatchProduct(ctx context.Context, batchID, productID string) error {
	const stmt = `DELETE FROM batch_products WHERE batch_id = $1 AND product_id = $2`

	tag, err := r.exec(ctx, stmt, batchID, productID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete batch product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBatchProductNotFound
	}
	return nil
}

func (r *BatchRepository) CancelOpenOrders(ctx context.Context, batchID string, now time.Time) ([]string, error) {
	const stmt = `
UPDATE orders
SET status = 'CANCELLED', updated_at = $2
WHERE batch_id = $1 AND status NOT IN ('PAID', 'CANCELLED')
RETURNING id`

	rows, err := r.query(ctx, stmt, batchID, now)
	if err != nil {
		return nil, fmt.Errorf("cancel batch orders: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect cancelled orders: %w", err)
	}
	return ids, nil
}
