// Package ledger keeps per-product stock bookkeeping. Every mutation is a single
// conditional UPDATE, so a reservation can never take stock below zero even when callers
// race; run ReserveAll inside a transaction to make a multi-product reservation
// all-or-nothing.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/buildtall-systems/petstock/internal/apperr"
)

// Querier is satisfied by *sql.DB, *sql.Tx and the db package wrappers around them.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Line is a quantity of one product.
type Line struct {
	ProductID int64
	Quantity  int
}

type Ledger struct {
	q Querier
}

func New(q Querier) *Ledger {
	return &Ledger{q: q}
}

// Available returns the current stock of a product.
func (l *Ledger) Available(ctx context.Context, productID int64) (int, error) {
	var qty int
	err := l.q.QueryRowContext(ctx, `SELECT stock_quantity FROM products WHERE id = ?`, productID).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFound("product", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("querying stock: %w", err)
	}
	return qty, nil
}

// HasStock reports whether current stock covers quantity.
func (l *Ledger) HasStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	available, err := l.Available(ctx, productID)
	if err != nil {
		return false, err
	}
	return available >= quantity, nil
}

// Reserve decrements stock by quantity. Returns *apperr.InsufficientStockError if stock
// does not cover it.
func (l *Ledger) Reserve(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}

	result, err := l.q.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock_quantity >= ?
	`, quantity, productID, quantity)
	if err != nil {
		return fmt.Errorf("reserving stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		available, err := l.Available(ctx, productID)
		if err != nil {
			return err
		}
		return &apperr.InsufficientStockError{ProductID: productID, Requested: quantity, Available: available}
	}
	return nil
}

// Release increments stock by quantity. It only ever reverses a prior reservation, so no
// upper bound applies.
func (l *Ledger) Release(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("release quantity must be positive, got %d", quantity)
	}
	return l.increment(ctx, productID, quantity, "releasing stock")
}

// Replenish adds newly received stock.
func (l *Ledger) Replenish(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("replenish quantity must be positive, got %d", quantity)
	}
	return l.increment(ctx, productID, quantity, "replenishing stock")
}

func (l *Ledger) increment(ctx context.Context, productID int64, quantity int, op string) error {
	result, err := l.q.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, quantity, productID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("product", productID)
	}
	return nil
}

// ReserveAll verifies every product covers its merged quantity before reserving any of
// them. Lines for the same product are summed first.
func (l *Ledger) ReserveAll(ctx context.Context, lines []Line) error {
	merged := Merge(lines)

	for _, line := range merged {
		available, err := l.Available(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if available < line.Quantity {
			return &apperr.InsufficientStockError{ProductID: line.ProductID, Requested: line.Quantity, Available: available}
		}
	}

	for _, line := range merged {
		if err := l.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseAll returns the merged quantities of lines to stock.
func (l *Ledger) ReleaseAll(ctx context.Context, lines []Line) error {
	for _, line := range Merge(lines) {
		if err := l.Release(ctx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Merge sums quantities per product and orders the result by product id.
func Merge(lines []Line) []Line {
	totals := make(map[int64]int, len(lines))
	for _, line := range lines {
		totals[line.ProductID] += line.Quantity
	}

	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged
}
