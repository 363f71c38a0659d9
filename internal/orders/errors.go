package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart         = errors.New("no items in cart")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrForbidden         = errors.New("order belongs to another user")
	ErrAlreadyProcessed  = errors.New("payment already processed")
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindInsufficientStock Kind = "insufficient_stock"
	KindForbidden         Kind = "forbidden"
	KindAlreadyProcessed  Kind = "already_processed"
	KindNotFound          Kind = "not_found"
	KindInternal          Kind = "internal"
)

// KindOf classifies err for callers at the workflow boundary.
func KindOf(err error) Kind {
	var verrs *ValidationErrors
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verrs),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidCurrency),
		errors.Is(err, ErrProductNotFound):
		return KindValidation
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrAlreadyProcessed):
		return KindAlreadyProcessed
	case errors.Is(err, ErrOrderNotFound):
		return KindNotFound
	}
	return KindInternal
}

// StockShortage reports the first line of an order that cannot be served.
type StockShortage struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

func (s *StockShortage) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: required %d, available %d", s.ProductID, s.Required, s.Available)
}

func (s *StockShortage) Is(target error) bool { return target == ErrInsufficientStock }

// ValidationErrors carries every problem found while previewing a cart.
type ValidationErrors struct {
	Messages []string
}

func (v *ValidationErrors) Error() string { return strings.Join(v.Messages, ", ") }

func (v *ValidationErrors) add(format string, args ...any) {
	v.Messages = append(v.Messages, fmt.Sprintf(format, args...))
}
