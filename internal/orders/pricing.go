package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TaxRate is expressed in basis points: 800 is 8%.
type TaxRate int64

// Apply rounds half up to the nearest cent using integer arithmetic only.
func (r TaxRate) Apply(subtotalCents int64) int64 {
	return (subtotalCents*int64(r) + 5000) / 10000
}

type Currencies struct {
	Base    string
	Allowed []string
}

// Normalize trims and upper-cases code, substituting the base currency when empty.
func (c Currencies) Normalize(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return c.Base, nil
	}
	for _, a := range c.Allowed {
		if a == code {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %q must be one of %s", ErrInvalidCurrency, code, strings.Join(c.Allowed, ", "))
}

// Pricer computes subtotal, tax and total for a list of lines.
type Pricer struct {
	TaxRate TaxRate
}

// Preview prices lines without locking or mutating stock. Every failing line is
// reported in the returned *ValidationErrors.
func (p Pricer) Preview(ctx context.Context, catalog Catalog, lines []Line) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, &ValidationErrors{Messages: []string{"No items in cart"}}
	}

	verrs := &ValidationErrors{}
	remaining := map[string]int{}
	priced := make([]PricedLine, 0, len(lines))
	for _, ln := range lines {
		if ln.Quantity < 1 {
			verrs.add("Quantity must be at least 1 for product %s", ln.ProductID)
			continue
		}
		prod, err := catalog.GetProduct(ctx, ln.ProductID)
		if errors.Is(err, ErrProductNotFound) {
			verrs.add("Product with ID %s not found", ln.ProductID)
			continue
		}
		if err != nil {
			return Quote{}, err
		}
		left, seen := remaining[prod.ID]
		if !seen {
			left = prod.Stock
		}
		if left < ln.Quantity {
			verrs.add("Insufficient stock for %s. Available: %d", prod.Name, left)
			continue
		}
		remaining[prod.ID] = left - ln.Quantity
		priced = append(priced, PricedLine{Product: prod, Quantity: ln.Quantity, LineTotalCents: prod.PriceCents * int64(ln.Quantity)})
	}
	if len(verrs.Messages) > 0 {
		return Quote{}, verrs
	}
	return p.total(priced), nil
}

// PriceLocked locks every distinct product in ascending id order, then checks
// the lines in request order and stops at the first one that cannot be served.
func (p Pricer) PriceLocked(ctx context.Context, tx Tx, lines []Line) (Quote, error) {
	locked := map[string]Product{}
	for _, id := range LockOrder(lines) {
		prod, err := tx.LockProduct(ctx, id)
		if err != nil {
			return Quote{}, err
		}
		locked[id] = prod
	}

	remaining := make(map[string]int, len(locked))
	for id, prod := range locked {
		remaining[id] = prod.Stock
	}
	priced := make([]PricedLine, 0, len(lines))
	for _, ln := range lines {
		prod := locked[ln.ProductID]
		if remaining[prod.ID] < ln.Quantity {
			return Quote{}, &StockShortage{ProductID: prod.ID, Name: prod.Name, Required: ln.Quantity, Available: remaining[prod.ID]}
		}
		remaining[prod.ID] -= ln.Quantity
		priced = append(priced, PricedLine{Product: prod, Quantity: ln.Quantity, LineTotalCents: prod.PriceCents * int64(ln.Quantity)})
	}
	return p.total(priced), nil
}

func (p Pricer) total(lines []PricedLine) Quote {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.LineTotalCents
	}
	tax := p.TaxRate.Apply(subtotal)
	return Quote{Lines: lines, SubtotalCents: subtotal, TaxCents: tax, TotalCents: subtotal + tax}
}

// LockOrder returns the distinct product ids of lines sorted ascending. Every
// transaction acquires product locks in this order so two checkouts sharing
// products can never wait on each other in a cycle.
func LockOrder(lines []Line) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, ln := range lines {
		if _, ok := seen[ln.ProductID]; ok {
			continue
		}
		seen[ln.ProductID] = struct{}{}
		ids = append(ids, ln.ProductID)
	}
	sort.Strings(ids)
	return ids
}

// FormatCents renders 129999 as "$1,299.99".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}
