package commands

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/buildtall-systems/petstock/internal/apperr"
	"github.com/buildtall-systems/petstock/internal/db"
	"github.com/buildtall-systems/petstock/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCmdTestEnv(t *testing.T) Env {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "cmd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.Migrate())

	return Env{DB: database, Engine: lifecycle.New(database, nil, zap.NewNop())}
}

// run executes a line of input as id and fails the test on a command error.
func run(t *testing.T, env Env, id Identity, line string) string {
	t.Helper()
	res := Execute(context.Background(), env, Parse(line), id)
	require.NoError(t, res.Error, line)
	return res.Message
}

func runErr(t *testing.T, env Env, id Identity, line string) error {
	t.Helper()
	res := Execute(context.Background(), env, Parse(line), id)
	require.Error(t, res.Error, line)
	return res.Error
}

func TestCustomerOrderFlow(t *testing.T) {
	env := setupCmdTestEnv(t)
	admin := Admin()

	assert.Contains(t, run(t, env, admin, "addcustomer Alex Kennel alex@example.com"), "customer #1: Alex Kennel")
	assert.Contains(t, run(t, env, admin, "addproduct 123456 5 Deluxe Dog House"), "$1,234.56")
	alex := Customer(1)

	assert.Contains(t, run(t, env, alex, "new"), "Order #1 created")
	assert.Contains(t, run(t, env, alex, "add 1 1 3"), "3 units of product #1")
	assert.Contains(t, run(t, env, alex, "show 1"), "Deluxe Dog House x 3")

	assert.Contains(t, run(t, env, alex, "confirm 1"), "Total: $3,703.68")
	assert.Contains(t, run(t, env, alex, "stock 1"), "2 units available")

	assert.Contains(t, run(t, env, alex, "cancel 1"), "Reserved stock was returned")
	assert.Contains(t, run(t, env, alex, "stock 1"), "5 units available")

	assert.Contains(t, run(t, env, alex, "orders"), "CANCELLED")

	run(t, env, alex, "new")
	run(t, env, alex, "add 2 1 1")
	assert.Equal(t, "Order #2 cancelled.", run(t, env, alex, "cancel 2"), "pending orders hold no stock")
	assert.Contains(t, run(t, env, alex, "delete 1"), "deleted")
	assert.Contains(t, run(t, env, alex, "delete 2"), "deleted")
	assert.Equal(t, "No orders yet.", run(t, env, alex, "orders"))
}

func TestCommandErrorsCarryDetails(t *testing.T) {
	env := setupCmdTestEnv(t)
	admin := Admin()
	run(t, env, admin, "addcustomer Sam")
	run(t, env, admin, "addproduct 500 2 Fish Food")
	sam := Customer(1)
	run(t, env, sam, "new")

	err := runErr(t, env, sam, "confirm 1")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "no items")

	err = runErr(t, env, sam, "add 1 1 3")
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "requested 3, available 2")

	err = runErr(t, env, sam, "add 1 1 0")
	assert.Contains(t, err.Error(), "quantity must be positive")

	err = runErr(t, env, sam, "add 1 1 lots")
	assert.Contains(t, err.Error(), "quantity must be a number")

	err = runErr(t, env, sam, "remove 1 42")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = runErr(t, env, sam, "show 99")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = runErr(t, env, sam, "confirm")
	assert.Contains(t, err.Error(), "usage: confirm")
}

func TestCustomersOnlySeeTheirOwnOrders(t *testing.T) {
	env := setupCmdTestEnv(t)
	admin := Admin()
	run(t, env, admin, "addcustomer Owner")
	run(t, env, admin, "addcustomer Stranger")
	run(t, env, admin, "addproduct 100 10 Ball")
	owner, stranger := Customer(1), Customer(2)

	run(t, env, owner, "new")
	run(t, env, owner, "add 1 1 1")

	for _, line := range []string{"show 1", "add 1 1 1", "remove 1 1", "confirm 1", "cancel 1", "delete 1"} {
		err := runErr(t, env, stranger, line)
		assert.ErrorIs(t, err, apperr.ErrNotFound, line)
	}

	assert.Contains(t, run(t, env, admin, "show 1"), "Ball x 1")
}

func TestAdminCommands(t *testing.T) {
	env := setupCmdTestEnv(t)
	admin := Admin()
	run(t, env, admin, "addcustomer Robin robin@example.com")
	run(t, env, admin, "addproduct 2599 3 Cat Tree")

	err := runErr(t, env, Customer(1), "restock 1 5")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	assert.Contains(t, run(t, env, admin, "restock 1 5"), "Available: 8")
	assert.Contains(t, run(t, env, admin, "products"), "#1 Cat Tree: $25.99, 8 units in stock")
	assert.Contains(t, run(t, env, admin, "customers"), "#1 Robin <robin@example.com>")

	err = runErr(t, env, admin, "addcustomer Other robin@example.com")
	assert.Contains(t, err.Error(), "already exists")

	run(t, env, admin, "new 1")
	run(t, env, admin, "add 1 1 2")

	err = runErr(t, env, admin, "status 1 PROCESSING")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	run(t, env, admin, "confirm 1")
	err = runErr(t, env, admin, "status 1 delivered")
	assert.Contains(t, err.Error(), "not the next fulfilment step")

	for _, s := range []string{"processing", "SHIPPED", "Delivered"} {
		assert.Contains(t, run(t, env, admin, "status 1 "+s), "is now "+strings.ToUpper(s))
	}

	err = runErr(t, env, admin, "cancel 1")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Contains(t, run(t, env, admin, "stock 1"), "6 units available")

	err = runErr(t, env, admin, "status 1 ARCHIVED")
	assert.Contains(t, err.Error(), "unknown status")
}

func TestDeactivatedProductCannotBeAdded(t *testing.T) {
	env := setupCmdTestEnv(t)
	admin := Admin()
	run(t, env, admin, "addcustomer Lee")
	run(t, env, admin, "addproduct 999 4 Old Collar")
	lee := Customer(1)
	run(t, env, lee, "new")

	run(t, env, admin, "deactivate 1")
	assert.Contains(t, run(t, env, lee, "stock 1"), "not available for ordering")
	err := runErr(t, env, lee, "add 1 1 1")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	run(t, env, admin, "activate 1")
	run(t, env, lee, "add 1 1 1")
}

func TestHelp(t *testing.T) {
	env := setupCmdTestEnv(t)

	customerHelp := run(t, env, Customer(1), "help")
	assert.Contains(t, customerHelp, "Available commands")
	assert.NotContains(t, customerHelp, "Admin commands")

	assert.Contains(t, run(t, env, Admin(), "help"), "Admin commands")
	assert.Contains(t, run(t, env, Customer(1), "bogus"), "Available commands")
}

func TestMoney(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{1299, "$12.99"},
		{123456789, "$1,234,567.89"},
		{-250, "-$2.50"},
	}
	for _, tt := range tests {
		if got := money(tt.cents); got != tt.want {
			t.Errorf("money(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
