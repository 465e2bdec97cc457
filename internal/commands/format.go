package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/buildtall-systems/petstock/internal/order"
	"github.com/dustin/go-humanize"
)

// money renders cents as dollars with thousands separators: 123456 -> $1,234.56.
func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}

func units(n int) string {
	if n == 1 {
		return "1 unit"
	}
	return humanize.Comma(int64(n)) + " units"
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// parseID parses a positive numeric id argument.
func parseID(s, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s must be a positive number", name)
	}
	return id, nil
}

// parseQuantity parses a quantity argument. Zero and negatives are left for the domain
// layer to reject so the error names the failing rule.
func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("quantity must be a number")
	}
	return n, nil
}

func formatOrder(o *order.Order, productNames map[int64]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%d [%s] for customer #%d, created %s\n", o.ID, o.Status, o.CustomerID, ago(o.CreatedAt))
	if len(o.Items) == 0 {
		b.WriteString("  (no items)\n")
	}
	for _, item := range o.Items {
		name := productNames[item.ProductID]
		if name == "" {
			name = fmt.Sprintf("product #%d", item.ProductID)
		}
		fmt.Fprintf(&b, "  item %d: %s x %d @ %s = %s\n",
			item.ID, name, item.Quantity, money(item.UnitPriceCents), money(item.SubtotalCents()))
	}
	fmt.Fprintf(&b, "Total: %s", money(o.TotalCents()))
	if ops := o.AvailableOperations(); len(ops) > 0 {
		fmt.Fprintf(&b, "\nNext: %s", strings.Join(ops, ", "))
	}
	return b.String()
}
