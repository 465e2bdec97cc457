package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/buildtall-systems/petstock/internal/apperr"
	"github.com/buildtall-systems/petstock/internal/ledger"
	"github.com/buildtall-systems/petstock/internal/order"
)

const ordersListLimit = 10

// NewOrderCmd opens an order. Customers open their own; admins name the customer.
// Args: [customer_id] (admin only)
func NewOrderCmd(ctx context.Context, env Env, id Identity, args []string) Result {
	customerID := id.CustomerID
	if id.Admin {
		if len(args) < 1 {
			return Result{Error: errors.New("usage: new <customer_id>")}
		}
		var err error
		if customerID, err = parseID(args[0], "customer_id"); err != nil {
			return Result{Error: err}
		}
	}

	o, err := env.Engine.Create(ctx, customerID)
	if err != nil {
		return Result{Error: err}
	}
	return Result{Message: fmt.Sprintf("Order #%d created. Add items with: add %d <product_id> <quantity>", o.ID, o.ID)}
}

// AddItemCmd adds a product to a pending order.
// Args: <order_id> <product_id> <quantity>
func AddItemCmd(ctx context.Context, env Env, id Identity, args []string) Result {
	if len(args) < 3 {
		return Result{Error: errors.New("usage: add <order_id> <product_id> <quantity>")}
	}
	orderID, err := parseID(args[0], "order_id")
	if err != nil {
		return Result{Error: err}
	}
	productID, err := parseID(args[1], "product_id")
	if err != nil {
		return Result{Error: err}
	}
	quantity, err := parseQuantity(args[2])
	if err != nil {
		return Result{Error: err}
	}

	if err := checkOwner(ctx, env, id, orderID); err != nil {
		return Result{Error: err}
	}

	o, err := env.Engine.AddItem(ctx, orderID, productID, quantity)
	if err != nil {
		return Result{Error: err}
	}
	item := o.Items[len(o.Items)-1]
	return Result{Message: fmt.Sprintf("Added %s of product #%d to order #%d (item %d). Total: %s",
		units(item.Quantity), productID, orderID, item.ID, money(o.TotalCents()))}
}

// RemoveItemCmd removes a line item from a pending order.
// Args: <order_id> <item_id>
func RemoveItemCmd(ctx context.Context, env Env, id Identity, args []string) Result {
	if len(args) < 2 {
		return Result{Error: errors.New("usage: remove <order_id> <item_id>")}
	}
	orderID, err := parseID(args[0], "order_id")
	if err != nil {
		return Result{Error: err}
	}
	itemID, err := parseID(args[1], "item_id")
	if err != nil {
		return Result{Error: err}
	}

	if err := checkOwner(ctx, env, id, orderID); err != nil {
		return Result{Error: err}
	}

	o, err := env.Engine.RemoveItem(ctx, orderID, itemID)
	if err != nil {
		return Result{Error: err}
	}
	return Result{Message: fmt.Sprintf("Removed item %d from order #%d. Total: %s", itemID, orderID, money(o.TotalCents()))}
}

// ConfirmCmd reserves stock for a pending order.
// Args: <order_id>
func ConfirmCmd(ctx context.Context, env Env, id Identity, args []string) Result {
	orderID, err := orderArg(args, "confirm")
	if err != nil {
		return Result{Error: err}
	}
	if err := checkOwner(ctx, env, id, orderID); err != nil {
		return Result{Error: err}
	}

	o, err := env.Engine.Confirm(ctx, orderID)
	if err != nil {
		return Result{Error: err}
	}
	return Result{Message: fmt.Sprintf("Order #%d confirmed. Total: %s", o.ID, money(o.TotalCents()))}
}

// CancelCmd cancels an order that has not been delivered.
// Args: <order_id>
func CancelCmd(ctx context.Context, env Env, id Identity, args []string) Result {
	orderID, err := orderArg(args, "cancel")
	if err != nil {
		return Result{Error: err}
	}
	if err := checkOwner(ctx, env, id, orderID); err != nil {
		return Result{Error: err}
	}

	_, released, err := env.Engine.Cancel(ctx, orderID)
	if err != nil {
		return Result{Error: err}
	}

	msg := fmt.Sprintf("Order #%d cancelled.", orderID)
	if len(released) > 0 {
		msg += " Reserved stock was returned."
	}
	return Result{Message: msg}
}

// DeleteCmd removes a pending or cancelled order.
// Args: <order_id>
func DeleteCmd(ctx context.Context, env Env, id Identity, args []string) Result {
	orderID, err := orderArg(args, "delete")
	if err != nil {
		return Result{Error: err}
	}
	if err := checkOwner(ctx, env, id, orderID); err != nil {
		return Result{Error: err}
	}

	if err := env.Engine.Delete(ctx, orderID); err != nil {
		return Result{Error: err}
	}
	return Result{Message: fmt.Sprintf("Order #%d deleted.", orderID)}
}

// ShowCmd displays an order with its items and total.
// Args: <order_id>
func ShowCmd(ctx context.Context, env Env, id Identity, args []string) Result {
	orderID, err := orderArg(args, "show")
	if err != nil {
		return Result{Error: err}
	}

	o, err := env.Engine.Get(ctx, orderID)
	if err != nil {
		return Result{Error: err}
	}
	if !id.owns(o.CustomerID) {
		return Result{Error: apperr.NotFound("order", orderID)}
	}

	return Result{Message: formatOrder(o, productNames(ctx, env, o))}
}

// OrdersCmd lists the caller's most recent orders. Admins name the customer.
// Args: [customer_id] (admin only)
func OrdersCmd(ctx context.Context, env Env, id Identity, args []string) Result {
	customerID := id.CustomerID
	if id.Admin {
		if len(args) < 1 {
			return Result{Error: errors.New("usage: orders <customer_id>")}
		}
		var err error
		if customerID, err = parseID(args[0], "customer_id"); err != nil {
			return Result{Error: err}
		}
	}

	orders, err := env.DB.GetCustomerOrders(ctx, customerID, ordersListLimit)
	if err != nil {
		return Result{Error: fmt.Errorf("loading orders: %w", err)}
	}
	if len(orders) == 0 {
		return Result{Message: "No orders yet."}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent orders (last %d):\n", ordersListLimit)
	for _, o := range orders {
		fmt.Fprintf(&b, "#%d %-10s %2d items  %10s  %s\n",
			o.ID, o.Status, len(o.Items), money(o.TotalCents()), ago(o.CreatedAt))
	}
	return Result{Message: strings.TrimRight(b.String(), "\n")}
}

// StockCmd shows how many units of a product are available.
// Args: <product_id>
func StockCmd(ctx context.Context, env Env, args []string) Result {
	if len(args) < 1 {
		return Result{Error: errors.New("usage: stock <product_id>")}
	}
	productID, err := parseID(args[0], "product_id")
	if err != nil {
		return Result{Error: err}
	}

	p, err := env.DB.GetProduct(ctx, productID)
	if err != nil {
		return Result{Error: err}
	}
	available, err := ledger.New(env.DB).Available(ctx, productID)
	if err != nil {
		return Result{Error: err}
	}

	if !p.Active {
		return Result{Message: fmt.Sprintf("%s is not available for ordering.", p.Name)}
	}
	if available == 0 {
		return Result{Message: fmt.Sprintf("%s is out of stock.", p.Name)}
	}
	return Result{Message: fmt.Sprintf("%s: %s available at %s.", p.Name, units(available), money(p.PriceCents))}
}

// HelpCmd returns available commands based on user role.
func HelpCmd(isAdmin bool) Result {
	msg := `Available commands:
  new                       - open a new order
  add <order> <product> <n> - add n units of a product
  remove <order> <item>     - remove a line item
  confirm <order>           - reserve stock and confirm
  cancel <order>            - cancel (returns reserved stock)
  delete <order>            - delete a pending or cancelled order
  show <order>              - show items and total
  orders                    - list your recent orders
  stock <product>           - check availability
  help                      - this message`

	if isAdmin {
		msg += `

Admin commands:
  new <customer>                       - open an order for a customer
  orders <customer>                    - list a customer's orders
  status <order> <STATUS>              - advance to PROCESSING, SHIPPED or DELIVERED
  addcustomer <name...> [email]        - register a customer
  customers                            - list customers
  addproduct <price_cents> <stock> <name...> - add a product
  restock <product> <n>                - add n units to stock
  activate <product>                   - allow ordering a product
  deactivate <product>                 - stop new orders of a product
  products                             - list products with stock`
	}

	return Result{Message: msg}
}

func orderArg(args []string, cmd string) (int64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("usage: %s <order_id>", cmd)
	}
	return parseID(args[0], "order_id")
}

// checkOwner hides orders of other customers behind a not-found error.
func checkOwner(ctx context.Context, env Env, id Identity, orderID int64) error {
	if id.Admin {
		return nil
	}
	o, err := env.Engine.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !id.owns(o.CustomerID) {
		return apperr.NotFound("order", orderID)
	}
	return nil
}

func productNames(ctx context.Context, env Env, o *order.Order) map[int64]string {
	names := make(map[int64]string, len(o.Items))
	for _, item := range o.Items {
		if _, ok := names[item.ProductID]; ok {
			continue
		}
		if p, err := env.DB.GetProduct(ctx, item.ProductID); err == nil {
			names[item.ProductID] = p.Name
		}
	}
	return names
}
