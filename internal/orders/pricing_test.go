package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCatalog map[string]Product

func (c mapCatalog) GetProduct(_ context.Context, id string) (Product, error) {
	p, ok := c[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p, nil
}

func (c mapCatalog) ListAvailableProducts(context.Context) ([]Product, error) { return nil, nil }

// lockRecorder is a Tx that only records the order products are locked in.
type lockRecorder struct {
	catalog mapCatalog
	locked  []string
}

func (t *lockRecorder) LockProduct(ctx context.Context, id string) (Product, error) {
	t.locked = append(t.locked, id)
	return t.catalog.GetProduct(ctx, id)
}
func (t *lockRecorder) DecrementStock(context.Context, string, int) error { return nil }
func (t *lockRecorder) InsertOrder(context.Context, *Order) error         { return nil }
func (t *lockRecorder) InsertOrderItem(context.Context, *OrderItem) error { return nil }
func (t *lockRecorder) InsertPayment(context.Context, *Payment) error     { return nil }
func (t *lockRecorder) SetOrderStatus(context.Context, string, OrderStatus, time.Time) error {
	return nil
}
func (t *lockRecorder) ResolvePayment(context.Context, string, PaymentResult, time.Time) error {
	return nil
}

func TestTaxRateRoundsHalfUp(t *testing.T) {
	cases := []struct {
		rate     TaxRate
		subtotal int64
		want     int64
	}{
		{800, 3000, 240},
		{800, 0, 0},
		{800, 1, 0},     // 0.08
		{800, 7, 1},     // 0.56
		{800, 125, 10},  // 10.00
		{800, 1006, 80}, // 80.48
		{800, 1019, 82}, // 81.52
		{250, 20, 1},    // 0.5 rounds up
		{0, 129999, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.rate.Apply(c.subtotal), "rate=%d subtotal=%d", c.rate, c.subtotal)
	}
}

func TestCurrenciesNormalize(t *testing.T) {
	c := Currencies{Base: "USD", Allowed: []string{"USD", "EUR", "PKR"}}

	got, err := c.Normalize("")
	require.NoError(t, err)
	assert.Equal(t, "USD", got)

	got, err = c.Normalize(" eur ")
	require.NoError(t, err)
	assert.Equal(t, "EUR", got)

	_, err = c.Normalize("GBP")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestPreviewTotals(t *testing.T) {
	cat := mapCatalog{
		"a": {ID: "a", Name: "Alpha", PriceCents: 1000, Stock: 5},
		"b": {ID: "b", Name: "Beta", PriceCents: 2999, Stock: 10},
	}
	q, err := Pricer{TaxRate: 800}.Preview(context.Background(), cat, []Line{
		{ProductID: "a", Quantity: 3},
		{ProductID: "b", Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, q.Lines, 2)
	assert.Equal(t, int64(3000), q.Lines[0].LineTotalCents)
	assert.Equal(t, int64(5998), q.Lines[1].LineTotalCents)
	assert.Equal(t, int64(8998), q.SubtotalCents)
	assert.Equal(t, int64(720), q.TaxCents) // 719.84
	assert.Equal(t, int64(9718), q.TotalCents)
}

func TestPreviewCollectsEveryLineError(t *testing.T) {
	cat := mapCatalog{
		"a": {ID: "a", Name: "Alpha", PriceCents: 1000, Stock: 5},
		"b": {ID: "b", Name: "Beta", PriceCents: 500, Stock: 1},
	}
	_, err := Pricer{TaxRate: 800}.Preview(context.Background(), cat, []Line{
		{ProductID: "a", Quantity: 6},
		{ProductID: "missing", Quantity: 1},
		{ProductID: "b", Quantity: 0},
		{ProductID: "b", Quantity: 1},
	})
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{
		"Insufficient stock for Alpha. Available: 5",
		"Product with ID missing not found",
		"Quantity must be at least 1 for product b",
	}, verrs.Messages)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestPreviewEmptyCart(t *testing.T) {
	_, err := Pricer{TaxRate: 800}.Preview(context.Background(), mapCatalog{}, nil)
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"No items in cart"}, verrs.Messages)
}

func TestPreviewCountsRepeatedProductCumulatively(t *testing.T) {
	cat := mapCatalog{"a": {ID: "a", Name: "Alpha", PriceCents: 1000, Stock: 5}}
	_, err := Pricer{TaxRate: 800}.Preview(context.Background(), cat, []Line{
		{ProductID: "a", Quantity: 3},
		{ProductID: "a", Quantity: 3},
	})
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"Insufficient stock for Alpha. Available: 2"}, verrs.Messages)
}

func TestPriceLockedLocksInAscendingIDOrder(t *testing.T) {
	tx := &lockRecorder{catalog: mapCatalog{
		"p-1": {ID: "p-1", Name: "One", PriceCents: 100, Stock: 10},
		"p-2": {ID: "p-2", Name: "Two", PriceCents: 200, Stock: 10},
		"p-3": {ID: "p-3", Name: "Three", PriceCents: 300, Stock: 10},
	}}
	q, err := Pricer{TaxRate: 800}.PriceLocked(context.Background(), tx, []Line{
		{ProductID: "p-3", Quantity: 1},
		{ProductID: "p-1", Quantity: 1},
		{ProductID: "p-2", Quantity: 1},
		{ProductID: "p-3", Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2", "p-3"}, tx.locked)
	// priced lines keep request order
	require.Len(t, q.Lines, 4)
	assert.Equal(t, "p-3", q.Lines[0].Product.ID)
	assert.Equal(t, int64(1200), q.SubtotalCents)
}

func TestPriceLockedFailsFastOnFirstShortLine(t *testing.T) {
	tx := &lockRecorder{catalog: mapCatalog{
		"a": {ID: "a", Name: "Alpha", PriceCents: 100, Stock: 1},
		"b": {ID: "b", Name: "Beta", PriceCents: 100, Stock: 0},
	}}
	_, err := Pricer{TaxRate: 800}.PriceLocked(context.Background(), tx, []Line{
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 2},
	})
	var short *StockShortage
	require.True(t, errors.As(err, &short))
	assert.Equal(t, "b", short.ProductID)
	assert.Equal(t, 0, short.Available)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, KindInsufficientStock, KindOf(err))
}

func TestPriceLockedUnknownProduct(t *testing.T) {
	tx := &lockRecorder{catalog: mapCatalog{}}
	_, err := Pricer{}.PriceLocked(context.Background(), tx, []Line{{ProductID: "x", Quantity: 1}})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestLockOrder(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, LockOrder([]Line{{ProductID: "b"}, {ProductID: "a"}, {ProductID: "b"}}))
	assert.Equal(t, LockOrder([]Line{{ProductID: "a"}, {ProductID: "b"}}), LockOrder([]Line{{ProductID: "b"}, {ProductID: "a"}}))
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$1,299.99", FormatCents(129999))
	assert.Equal(t, "$0.05", FormatCents(5))
	assert.Equal(t, "$32.40", FormatCents(3240))
	assert.Equal(t, "$1,000,000.00", FormatCents(100000000))
	assert.Equal(t, "-$2.50", FormatCents(-250))
}
