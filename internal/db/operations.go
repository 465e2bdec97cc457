package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buildtall-systems/petstock/internal/apperr"
	"github.com/buildtall-systems/petstock/internal/order"
)

// ErrCustomerExists indicates a customer with the same email is already registered.
var ErrCustomerExists = errors.New("customer already exists")

// Customer represents a registered customer.
type Customer struct {
	ID        int64
	Name      string
	Email     sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is a catalogue entry. StockQuantity is only ever changed through the ledger.
type Product struct {
	ID            int64
	Name          string
	PriceCents    int64
	Active        bool
	StockQuantity int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateCustomer registers a new customer. email may be empty.
func (db *DB) CreateCustomer(ctx context.Context, name, email string) (*Customer, error) {
	emailVal := sql.NullString{String: email, Valid: email != ""}

	result, err := db.ExecContext(ctx, `
		INSERT INTO customers (name, email) VALUES (?, ?)
	`, name, emailVal)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCustomerExists
		}
		return nil, fmt.Errorf("creating customer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting customer id: %w", err)
	}
	return db.GetCustomerByID(ctx, id)
}

// GetCustomerByID returns a customer by their ID.
func (db *DB) GetCustomerByID(ctx context.Context, id int64) (*Customer, error) {
	return getCustomer(ctx, db, id)
}

// GetCustomerByID returns a customer by their ID.
func (tx *Tx) GetCustomerByID(ctx context.Context, id int64) (*Customer, error) {
	return getCustomer(ctx, tx, id)
}

func getCustomer(ctx context.Context, q querier, id int64) (*Customer, error) {
	var c Customer
	err := q.QueryRowContext(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM customers WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("customer", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying customer: %w", err)
	}
	return &c, nil
}

// ListCustomers returns all registered customers.
func (db *DB) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM customers ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating customers: %w", err)
	}
	return customers, nil
}

// CreateProduct adds an active product with an initial stock level.
func (db *DB) CreateProduct(ctx context.Context, name string, priceCents int64, stock int) (*Product, error) {
	if stock < 0 {
		return nil, fmt.Errorf("initial stock must be non-negative, got %d", stock)
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO products (name, price_cents, stock_quantity) VALUES (?, ?, ?)
	`, name, priceCents, stock)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting product id: %w", err)
	}
	return db.GetProduct(ctx, id)
}

// SetProductActive toggles whether a product may be added to orders.
func (db *DB) SetProductActive(ctx context.Context, id int64, active bool) error {
	result, err := db.ExecContext(ctx, `
		UPDATE products SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, active, id)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("product", id)
	}
	return nil
}

// GetProduct returns a product by ID.
func (db *DB) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return getProduct(ctx, db, id)
}

// GetProduct returns a product by ID.
func (tx *Tx) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return getProduct(ctx, tx, id)
}

func getProduct(ctx context.Context, q querier, id int64) (*Product, error) {
	var p Product
	err := q.QueryRowContext(ctx, `
		SELECT id, name, price_cents, active, stock_quantity, created_at, updated_at
		FROM products WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.PriceCents, &p.Active, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("product", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying product: %w", err)
	}
	return &p, nil
}

// ListProducts returns all products by ID.
func (db *DB) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, price_cents, active, stock_quantity, created_at, updated_at
		FROM products ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Active, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return products, nil
}

// InsertOrder stores a new order and its items, filling in ID, Version and timestamps.
func (tx *Tx) InsertOrder(ctx context.Context, o *order.Order) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO orders (customer_id, status) VALUES (?, ?)
	`, o.CustomerID, string(o.Status))
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}

	o.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting order id: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT version, created_at, updated_at FROM orders WHERE id = ?
	`, o.ID).Scan(&o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("querying order: %w", err)
	}
	return tx.syncItems(ctx, o)
}

// GetOrder loads an order with its items.
func (db *DB) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, db, id)
}

// GetOrder loads an order with its items.
func (tx *Tx) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, tx, id)
}

func getOrder(ctx context.Context, q querier, id int64) (*order.Order, error) {
	var o order.Order
	var status string
	err := q.QueryRowContext(ctx, `
		SELECT id, customer_id, status, version, created_at, updated_at
		FROM orders WHERE id = ?
	`, id).Scan(&o.ID, &o.CustomerID, &status, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying order: %w", err)
	}
	o.Status = order.Status(status)

	items, err := getOrderItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func getOrderItems(ctx context.Context, q querier, orderID int64) ([]order.LineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, quantity, unit_price_cents
		FROM order_items WHERE order_id = ? ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []order.LineItem
	for rows.Next() {
		var li order.LineItem
		if err := rows.Scan(&li.ID, &li.ProductID, &li.Quantity, &li.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order items: %w", err)
	}
	return items, nil
}

// GetCustomerOrders returns orders for a customer, most recent first.
func (db *DB) GetCustomerOrders(ctx context.Context, customerID int64, limit int) ([]*order.Order, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id FROM orders WHERE customer_id = ? ORDER BY id DESC LIMIT ?
	`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterating orders: %w", err)
	}
	_ = rows.Close()

	orders := make([]*order.Order, 0, len(ids))
	for _, id := range ids {
		o, err := db.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// SaveOrder writes status and items if the stored version still matches o.Version.
// Returns apperr.ErrConcurrentModification when another writer got there first.
func (tx *Tx) SaveOrder(ctx context.Context, o *order.Order) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`, string(o.Status), o.ID, o.Version)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}
	if err := tx.checkVersioned(ctx, result, o); err != nil {
		return err
	}
	o.Version++

	return tx.syncItems(ctx, o)
}

// DeleteOrder removes the order and, by cascade, its items.
func (tx *Tx) DeleteOrder(ctx context.Context, o *order.Order) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ? AND version = ?`, o.ID, o.Version)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}
	return tx.checkVersioned(ctx, result, o)
}

func (tx *Tx) checkVersioned(ctx context.Context, result sql.Result, o *order.Order) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = ?)`, o.ID).Scan(&exists); err != nil {
		return fmt.Errorf("checking order: %w", err)
	}
	if !exists {
		return apperr.NotFound("order", o.ID)
	}
	return fmt.Errorf("%w: order #%d changed since version %d", apperr.ErrConcurrentModification, o.ID, o.Version)
}

// syncItems deletes stored items no longer on the order and inserts new ones (ID == 0).
func (tx *Tx) syncItems(ctx context.Context, o *order.Order) error {
	stored, err := getOrderItems(ctx, tx, o.ID)
	if err != nil {
		return err
	}

	keep := make(map[int64]bool, len(o.Items))
	for _, item := range o.Items {
		if item.ID != 0 {
			keep[item.ID] = true
		}
	}

	for _, item := range stored {
		if keep[item.ID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE id = ?`, item.ID); err != nil {
			return fmt.Errorf("deleting order item: %w", err)
		}
	}

	for i := range o.Items {
		if o.Items[i].ID != 0 {
			continue
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents)
			VALUES (?, ?, ?, ?)
		`, o.ID, o.Items[i].ProductID, o.Items[i].Quantity, o.Items[i].UnitPriceCents)
		if err != nil {
			return fmt.Errorf("inserting order item: %w", err)
		}
		if o.Items[i].ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("getting order item id: %w", err)
		}
	}
	return nil
}

// isUniqueViolation checks if the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	// SQLite unique constraint error contains "UNIQUE constraint failed"
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
