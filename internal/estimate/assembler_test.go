package estimate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddManualDefaultsQuantityToOne(t *testing.T) {
	a := NewAssembler()

	item, err := a.AddManual("Ceiling", "$75")
	require.NoError(t, err)
	require.Equal(t, "Ceiling", item.Description)
	require.Equal(t, 1.0, item.Quantity)
	require.Equal(t, 75.0, item.UnitPrice)
	require.Equal(t, 75.0, item.Total)
	require.Equal(t, 75.0, a.Total())
}

func TestAddManualRejectsBadInput(t *testing.T) {
	a := NewAssembler()

	_, err := a.AddManual("", "10")
	require.Error(t, err)

	_, err = a.AddManual("Trim", "abc")
	require.Error(t, err)

	_, err = a.AddManual("Trim", "-5")
	require.Error(t, err)

	require.Zero(t, a.Len())
}

func TestSuggestionsAreNotDeduplicated(t *testing.T) {
	a := NewAssembler()
	suggestion := []LineItem{NewLineItem("Patch drywall", 2, 45)}

	a.AddSuggested(suggestion)
	a.AddSuggested(suggestion)

	require.Equal(t, 2, a.Len())
	require.Equal(t, 180.0, a.Total())
}

func TestReplaceComputedKeepsSingleEntryPerKey(t *testing.T) {
	a := NewAssembler()
	_, err := a.AddManual("Ceiling", "75")
	require.NoError(t, err)

	first, err := WallItem(Dimensions{Length: 12, Width: 10, Height: 8}, 2.50)
	require.NoError(t, err)
	require.NoError(t, a.ReplaceComputed(WallItemKey, first))

	second, err := WallItem(Dimensions{Length: 20, Width: 15, Height: 9}, 2.50)
	require.NoError(t, err)
	require.NoError(t, a.ReplaceComputed(WallItemKey, second))

	items := a.Items()
	require.Len(t, items, 2)

	walls := 0
	for _, item := range items {
		if item.Description == "Wall Painting (Standard)" {
			walls++
			require.Equal(t, second.Quantity, item.Quantity)
		}
	}
	require.Equal(t, 1, walls)
	require.InDelta(t, 75+second.Total, a.Total(), 1e-9)
}

func TestRemoveIgnoresOutOfRange(t *testing.T) {
	a := NewAssembler()
	_, err := a.AddManual("Ceiling", "75")
	require.NoError(t, err)

	a.Remove(-1)
	a.Remove(5)
	require.Equal(t, 1, a.Len())

	a.Remove(0)
	require.Zero(t, a.Len())
	require.Zero(t, a.Total())
}

func TestWallItemGeometry(t *testing.T) {
	d := Dimensions{Length: 12, Width: 10, Height: 8}
	require.Equal(t, 352.0, d.WallArea())

	item, err := WallItem(d, 2.50)
	require.NoError(t, err)
	require.Equal(t, "Wall Painting (Standard)", item.Description)
	require.Equal(t, 352.0, item.Quantity)
	require.Equal(t, 880.0, item.Total)

	_, err = WallItem(Dimensions{Length: 0, Width: 10, Height: 8}, 2.50)
	require.Error(t, err)

	_, err = WallItem(d, -1)
	require.Error(t, err)
}

func TestParsePrice(t *testing.T) {
	price, err := ParsePrice(" $12.50 ")
	require.NoError(t, err)
	require.Equal(t, 12.50, price)

	price, err = ParsePrice("0")
	require.NoError(t, err)
	require.Zero(t, price)

	_, err = ParsePrice("")
	require.Error(t, err)

	_, err = ParsePrice("$-3")
	require.Error(t, err)
}

func TestValidationErrorMessage(t *testing.T) {
	err := (&ValidationError{Field: "quantity", Reason: "must be positive, got 0"}).Error()
	require.Equal(t, "invalid quantity: must be positive, got 0", err)
}
