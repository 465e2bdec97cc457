package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/buildtall-systems/petstock/internal/apperr"
	"github.com/buildtall-systems/petstock/internal/db"
)

// ErrPermissionDenied is returned for admin commands issued by customers.
var ErrPermissionDenied = errors.New("admin command requires admin privileges")

// Identity is the already authenticated caller. Admins are not tied to a customer.
type Identity struct {
	CustomerID int64
	Admin      bool
}

// Admin returns the administrator identity.
func Admin() Identity {
	return Identity{Admin: true}
}

// Customer returns the identity of a customer.
func Customer(id int64) Identity {
	return Identity{CustomerID: id}
}

func (id Identity) String() string {
	if id.Admin {
		return "admin"
	}
	return fmt.Sprintf("customer #%d", id.CustomerID)
}

// Verify checks that a customer identity refers to a stored customer.
func Verify(ctx context.Context, database *db.DB, id Identity) error {
	if id.Admin {
		return nil
	}
	if _, err := database.GetCustomerByID(ctx, id.CustomerID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("you are not a registered customer")
		}
		return fmt.Errorf("checking customer: %w", err)
	}
	return nil
}

// CanExecute returns an error if the identity lacks permission to run the command.
// Admins can execute any command. Customers can only execute customer commands.
func CanExecute(cmd *Command, id Identity) error {
	if id.Admin {
		return nil
	}
	if cmd.IsAdminCommand() {
		return ErrPermissionDenied
	}
	return nil
}

// owns reports whether id may act on an order of customerID.
func (id Identity) owns(customerID int64) bool {
	return id.Admin || id.CustomerID == customerID
}
