package commands

import (
	"strings"
)

// Command represents a parsed user command.
type Command struct {
	Name string   // Command name (lowercase)
	Args []string // Arguments after the command name
}

// Known command names
const (
	// Customer commands
	CmdNew     = "new"
	CmdAdd     = "add"
	CmdRemove  = "remove"
	CmdConfirm = "confirm"
	CmdCancel  = "cancel"
	CmdDelete  = "delete"
	CmdShow    = "show"
	CmdOrders  = "orders"
	CmdStock   = "stock"
	CmdHelp    = "help"

	// Admin commands
	CmdStatus      = "status"
	CmdAddCustomer = "addcustomer"
	CmdCustomers   = "customers"
	CmdAddProduct  = "addproduct"
	CmdRestock     = "restock"
	CmdProducts    = "products"
	CmdActivate    = "activate"
	CmdDeactivate  = "deactivate"
)

// Parse extracts a command from a line of input.
// Returns nil if the line is empty or contains only whitespace.
func Parse(content string) *Command {
	parts := strings.Fields(content)
	if len(parts) == 0 {
		return nil
	}

	return &Command{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}

// IsCustomerCommand returns true if the command is available to customers.
func (c *Command) IsCustomerCommand() bool {
	switch c.Name {
	case CmdNew, CmdAdd, CmdRemove, CmdConfirm, CmdCancel, CmdDelete, CmdShow, CmdOrders, CmdStock, CmdHelp:
		return true
	default:
		return false
	}
}

// IsAdminCommand returns true if the command requires admin privileges.
func (c *Command) IsAdminCommand() bool {
	switch c.Name {
	case CmdStatus, CmdAddCustomer, CmdCustomers, CmdAddProduct, CmdRestock, CmdProducts, CmdActivate, CmdDeactivate:
		return true
	default:
		return false
	}
}

// IsValid returns true if the command name is recognized.
func (c *Command) IsValid() bool {
	return c.IsCustomerCommand() || c.IsAdminCommand()
}
