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

// OrderRepository stores orders with their items and payments. It serves
// both order placement and payment recording.
type OrderRepository struct {
	db
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db{pool: pool}}
}

func (r *OrderRepository) GetBatch(ctx context.Context, id string) (domain.Batch, error) {
	return r.getBatch(ctx, id, "")
}

// GetBatchForShare blocks status transitions of the batch until the
// surrounding transaction ends while letting other orders proceed.
func (r *OrderRepository) GetBatchForShare(ctx context.Context, id string) (domain.Batch, error) {
	return r.getBatch(ctx, id, "FOR SHARE")
}

func (r *OrderRepository) ListBatchProducts(ctx context.Context, batchID string) ([]domain.BatchProduct, error) {
	return r.listBatchProducts(ctx, batchID)
}

const orderColumns = `id, buyer_id, batch_id, status, subtotal, facilitation_total, total, idempotency_key, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var status string
	err := row.Scan(
		&o.ID,
		&o.BuyerID,
		&o.BatchID,
		&status,
		&o.Subtotal,
		&o.FacilitationTotal,
		&o.Total,
		&o.IdempotencyKey,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	o.Status = domain.OrderStatus(status)
	return o, err
}

func (r *OrderRepository) FindOrderByIdempotencyKey(ctx context.Context, buyerID, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = $1 AND idempotency_key = $2`

	o, err := scanOrder(r.queryRow(ctx, query, buyerID, key))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find order by idempotency key: %w", err)
	}
	orders := []domain.Order{o}
	if err := r.loadLines(ctx, orders, false); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// CreateOrder inserts the order, its items and its payments. A duplicate
// (buyer, idempotency key) is reported as ErrIdempotencyConflict.
func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	return r.WithTx(ctx, func(txCtx context.Context) error {
		const orderStmt = `
INSERT INTO orders (id, buyer_id, batch_id, status, subtotal, facilitation_total, total, idempotency_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (buyer_id, idempotency_key) DO NOTHING`

		tag, err := r.exec(txCtx, orderStmt,
			order.ID,
			order.BuyerID,
			order.BatchID,
			string(order.Status),
			order.Subtotal,
			order.FacilitationTotal,
			order.Total,
			order.IdempotencyKey,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrIdempotencyConflict
			}
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			if isForeignKeyViolation(err) {
				if constraintName(err) == "orders_buyer_id_fkey" {
					return domain.ErrUserNotFound
				}
				return domain.ErrBatchNotFound
			}
			if isOutOfRange(err) {
				return domain.ErrOrderTooLarge
			}
			return fmt.Errorf("create order: %w", err)
		}
		// Another request with the same key got there first.
		if tag.RowsAffected() == 0 {
			return domain.ErrIdempotencyConflict
		}

		const itemStmt = `
INSERT INTO order_items (order_id, product_id, position, quantity, unit_price, farmer_amount, facilitation_amount, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		for i, it := range order.Items {
			_, err := r.exec(txCtx, itemStmt,
				order.ID, it.ProductID, i, it.Quantity,
				it.UnitPrice, it.FarmerAmount, it.FacilitationAmount, it.LineTotal,
			)
			if err != nil {
				if isForeignKeyViolation(err) {
					return domain.ErrProductNotFound
				}
				if isOutOfRange(err) {
					return domain.ErrOrderTooLarge
				}
				return fmt.Errorf("create order item: %w", err)
			}
		}

		const paymentStmt = `
INSERT INTO payments (id, order_id, stage, amount, status)
VALUES ($1, $2, $3, $4, $5)`
		for _, p := range order.Payments {
			if _, err := r.exec(txCtx, paymentStmt, p.ID, order.ID, string(p.Stage), p.Amount, string(p.Status)); err != nil {
				return fmt.Errorf("create payment: %w", err)
			}
		}
		return nil
	})
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return r.getOrder(ctx, id, false)
}

// GetOrderForUpdate locks the order and its payment rows.
func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return r.getOrder(ctx, id, true)
}

func (r *OrderRepository) getOrder(ctx context.Context, id string, forUpdate bool) (domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	orders := []domain.Order{o}
	if err := r.loadLines(ctx, orders, forUpdate); err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

func (r *OrderRepository) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	return r.listOrders(ctx, `buyer_id = $1`, buyerID)
}

func (r *OrderRepository) ListOrdersByBatch(ctx context.Context, batchID string) ([]domain.Order, error) {
	return r.listOrders(ctx, `batch_id = $1`, batchID)
}

func (r *OrderRepository) listOrders(ctx context.Context, where string, arg string) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where + ` ORDER BY created_at DESC`
	rows, err := r.query(ctx, query, arg)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if err := r.loadLines(ctx, orders, false); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadLines fills Items and Payments for orders with one query each.
func (r *OrderRepository) loadLines(ctx context.Context, orders []domain.Order, lockPayments bool) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	const itemQuery = `
SELECT order_id, product_id, quantity, unit_price, farmer_amount, facilitation_amount, line_total
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position`
	rows, err := r.query(ctx, itemQuery, ids)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	for rows.Next() {
		var orderID string
		var it domain.OrderItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.FarmerAmount, &it.FacilitationAmount, &it.LineTotal); err != nil {
			rows.Close()
			return fmt.Errorf("scan order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}

	paymentQuery := `
SELECT id, order_id, stage, amount, status, COALESCE(reference, ''), paid_at
FROM payments
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, stage`
	if lockPayments {
		paymentQuery += ` FOR UPDATE`
	}
	rows, err = r.query(ctx, paymentQuery, ids)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.Payment
		var stage, status string
		if err := rows.Scan(&p.ID, &p.OrderID, &stage, &p.Amount, &status, &p.Reference, &p.PaidAt); err != nil {
			return fmt.Errorf("scan payment: %w", err)
		}
		p.Stage = domain.PaymentStage(stage)
		p.Status = domain.PaymentStatus(status)
		i := index[p.OrderID]
		orders[i].Payments = append(orders[i].Payments, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate payments: %w", err)
	}
	return nil
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, now time.Time) error {
	const stmt = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, string(status), now)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// MarkPaymentPaid records a pending payment as paid. A reference already
// used by another payment is rejected as ErrPaymentAlreadyRecorded.
func (r *OrderRepository) MarkPaymentPaid(ctx context.Context, paymentID, reference string, paidAt time.Time) error {
	const stmt = `
UPDATE payments
SET status = 'PAID', reference = $2, paid_at = $3
WHERE id = $1 AND status = 'PENDING'`

	tag, err := r.exec(ctx, stmt, paymentID, reference, paidAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPaymentAlreadyRecorded
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("mark payment paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentAlreadyRecorded
	}
	return nil
}
