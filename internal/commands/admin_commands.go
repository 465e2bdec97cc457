package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/buildtall-systems/petstock/internal/db"
	"github.com/buildtall-systems/petstock/internal/ledger"
	"github.com/buildtall-systems/petstock/internal/order"
)

// StatusCmd advances a confirmed order one fulfilment step.
// Args: <order_id> <STATUS>
func StatusCmd(ctx context.Context, env Env, args []string) Result {
	if len(args) < 2 {
		return Result{Error: errors.New("usage: status <order_id> <PROCESSING|SHIPPED|DELIVERED>")}
	}
	orderID, err := parseID(args[0], "order_id")
	if err != nil {
		return Result{Error: err}
	}
	target, ok := order.ParseStatus(strings.ToUpper(args[1]))
	if !ok {
		return Result{Error: fmt.Errorf("unknown status %q", args[1])}
	}

	o, err := env.Engine.SetStatus(ctx, orderID, target)
	if err != nil {
		return Result{Error: err}
	}
	return Result{Message: fmt.Sprintf("Order #%d is now %s.", o.ID, o.Status)}
}

// AddCustomerCmd registers a customer. A trailing argument containing @ is taken as the
// email address.
// Args: <name...> [email]
func AddCustomerCmd(ctx context.Context, env Env, args []string) Result {
	if len(args) < 1 {
		return Result{Error: errors.New("usage: addcustomer <name...> [email]")}
	}

	var email string
	if last := args[len(args)-1]; strings.Contains(last, "@") {
		email = last
		args = args[:len(args)-1]
	}
	name := strings.Join(args, " ")
	if name == "" {
		return Result{Error: errors.New("customer name must not be empty")}
	}

	c, err := env.DB.CreateCustomer(ctx, name, email)
	if errors.Is(err, db.ErrCustomerExists) {
		return Result{Error: fmt.Errorf("a customer with email %s already exists", email)}
	}
	if err != nil {
		return Result{Error: fmt.Errorf("adding customer: %w", err)}
	}
	return Result{Message: fmt.Sprintf("Added customer #%d: %s", c.ID, c.Name)}
}

// CustomersCmd lists all customers.
func CustomersCmd(ctx context.Context, env Env) Result {
	customers, err := env.DB.ListCustomers(ctx)
	if err != nil {
		return Result{Error: fmt.Errorf("listing customers: %w", err)}
	}
	if len(customers) == 0 {
		return Result{Message: "No customers registered."}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Customers (%d):\n", len(customers))
	for _, c := range customers {
		fmt.Fprintf(&b, "#%d %s", c.ID, c.Name)
		if c.Email.Valid {
			fmt.Fprintf(&b, " <%s>", c.Email.String)
		}
		b.WriteString("\n")
	}
	return Result{Message: strings.TrimRight(b.String(), "\n")}
}

// AddProductCmd adds a product with initial stock.
// Args: <price_cents> <stock> <name...>
func AddProductCmd(ctx context.Context, env Env, args []string) Result {
	if len(args) < 3 {
		return Result{Error: errors.New("usage: addproduct <price_cents> <stock> <name...>")}
	}
	price, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || price < 0 {
		return Result{Error: errors.New("price_cents must be a non-negative number")}
	}
	stock, err := strconv.Atoi(args[1])
	if err != nil || stock < 0 {
		return Result{Error: errors.New("stock must be a non-negative number")}
	}
	name := strings.Join(args[2:], " ")

	p, err := env.DB.CreateProduct(ctx, name, price, stock)
	if err != nil {
		return Result{Error: fmt.Errorf("adding product: %w", err)}
	}
	return Result{Message: fmt.Sprintf("Added product #%d: %s at %s, %s in stock",
		p.ID, p.Name, money(p.PriceCents), units(p.StockQuantity))}
}

// RestockCmd adds units to a product's stock.
// Args: <product_id> <quantity>
func RestockCmd(ctx context.Context, env Env, args []string) Result {
	if len(args) < 2 {
		return Result{Error: errors.New("usage: restock <product_id> <quantity>")}
	}
	productID, err := parseID(args[0], "product_id")
	if err != nil {
		return Result{Error: err}
	}
	quantity, err := parseQuantity(args[1])
	if err != nil {
		return Result{Error: err}
	}

	l := ledger.New(env.DB)
	if err := l.Replenish(ctx, productID, quantity); err != nil {
		return Result{Error: err}
	}
	available, err := l.Available(ctx, productID)
	if err != nil {
		return Result{Message: fmt.Sprintf("Added %s to product #%d.", units(quantity), productID)}
	}
	return Result{Message: fmt.Sprintf("Added %s to product #%d. Available: %d", units(quantity), productID, available)}
}

// SetActiveCmd allows or stops new orders of a product. Existing orders are unaffected.
// Args: <product_id>
func SetActiveCmd(ctx context.Context, env Env, args []string, active bool) Result {
	verb := "deactivate"
	if active {
		verb = "activate"
	}
	if len(args) < 1 {
		return Result{Error: fmt.Errorf("usage: %s <product_id>", verb)}
	}
	productID, err := parseID(args[0], "product_id")
	if err != nil {
		return Result{Error: err}
	}

	if err := env.DB.SetProductActive(ctx, productID, active); err != nil {
		return Result{Error: err}
	}
	return Result{Message: fmt.Sprintf("Product #%d %sd.", productID, verb)}
}

// ProductsCmd lists all products with price and stock.
func ProductsCmd(ctx context.Context, env Env) Result {
	products, err := env.DB.ListProducts(ctx)
	if err != nil {
		return Result{Error: fmt.Errorf("listing products: %w", err)}
	}
	if len(products) == 0 {
		return Result{Message: "No products."}
	}

	var b strings.Builder
	for _, p := range products {
		status := ""
		if !p.Active {
			status = " (inactive)"
		}
		fmt.Fprintf(&b, "#%d %s%s: %s, %s in stock\n", p.ID, p.Name, status, money(p.PriceCents), units(p.StockQuantity))
	}
	return Result{Message: strings.TrimRight(b.String(), "\n")}
}
