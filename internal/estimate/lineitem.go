// Package estimate maintains the editable line-item list behind a bid and the
// room-geometry pricing helpers that feed it.
package estimate

import (
	"fmt"
	"strconv"
	"strings"
)

// LineItem is one priced row of an estimate. Total is always derived from
// quantity and unit price; it is never stored independently.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// NewLineItem builds a line item with its derived total.
func NewLineItem(description string, quantity, unitPrice float64) LineItem {
	return LineItem{
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Total:       quantity * unitPrice,
	}
}

// Normalize recomputes the derived total, discarding whatever was carried in.
func (li LineItem) Normalize() LineItem {
	li.Total = li.Quantity * li.UnitPrice
	return li
}

// Validate rejects items the store would refuse.
func (li LineItem) Validate() error {
	if strings.TrimSpace(li.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if li.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("must be positive, got %v", li.Quantity)}
	}
	if li.UnitPrice < 0 {
		return &ValidationError{Field: "unit_price", Reason: fmt.Sprintf("must not be negative, got %v", li.UnitPrice)}
	}
	return nil
}

// ParsePrice converts user-entered price text into a non-negative amount.
func ParsePrice(raw string) (float64, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if trimmed == "" {
		return 0, &ValidationError{Field: "unit_price", Reason: "must not be empty"}
	}
	price, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, &ValidationError{Field: "unit_price", Reason: fmt.Sprintf("%q is not a number", raw)}
	}
	if price < 0 {
		return 0, &ValidationError{Field: "unit_price", Reason: fmt.Sprintf("must not be negative, got %v", price)}
	}
	return price, nil
}

// ValidationError reports rejected manual input. The session and any pending
// persistence are unaffected by it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
