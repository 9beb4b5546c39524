package estimate

import "fmt"

// WallItemKey is the synthetic key for the recomputed wall-paint line item.
const WallItemKey = "wall-area"

// Dimensions holds room measurements in feet.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate rejects non-positive measurements.
func (d Dimensions) Validate() error {
	if d.Length <= 0 || d.Width <= 0 || d.Height <= 0 {
		return &ValidationError{Field: "dimensions", Reason: fmt.Sprintf("all measurements must be positive, got %vx%vx%v", d.Length, d.Width, d.Height)}
	}
	return nil
}

// WallArea returns paintable wall square footage: perimeter times height.
func (d Dimensions) WallArea() float64 {
	return 2 * (d.Length + d.Width) * d.Height
}

// WallItem prices the room's wall area at the given per-square-foot rate.
func WallItem(d Dimensions, rate float64) (LineItem, error) {
	if err := d.Validate(); err != nil {
		return LineItem{}, err
	}
	if rate < 0 {
		return LineItem{}, &ValidationError{Field: "rate", Reason: fmt.Sprintf("must not be negative, got %v", rate)}
	}
	return NewLineItem("Wall Painting (Standard)", d.WallArea(), rate), nil
}
