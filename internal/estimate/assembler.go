package estimate

import "sync"

// entry pairs a line item with an optional synthetic key. Keyed entries are
// recomputable items that ReplaceComputed swaps in place; manual and suggested
// items carry no key.
type entry struct {
	key  string
	item LineItem
}

// Assembler owns the editable ordered list of line items and the derived total.
type Assembler struct {
	mu      sync.Mutex
	entries []entry
}

// NewAssembler returns an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// AddSuggested appends controller-suggested items. Suggestions are not
// deduplicated against existing descriptions; repeated scans append again.
func (a *Assembler) AddSuggested(items []LineItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, item := range items {
		a.entries = append(a.entries, entry{item: item.Normalize()})
	}
}

// AddManual validates and appends one manually entered item with quantity 1.
func (a *Assembler) AddManual(description, unitPrice string) (LineItem, error) {
	price, err := ParsePrice(unitPrice)
	if err != nil {
		return LineItem{}, err
	}
	item := NewLineItem(description, 1, price)
	if err := item.Validate(); err != nil {
		return LineItem{}, err
	}

	a.mu.Lock()
	a.entries = append(a.entries, entry{item: item})
	a.mu.Unlock()
	return item, nil
}

// ReplaceComputed installs a recomputable item under a stable synthetic key,
// replacing at most one prior item with the same key. The result never holds
// two entries with one key.
func (a *Assembler) ReplaceComputed(key string, item LineItem) error {
	item = item.Normalize()
	if err := item.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.entries {
		if a.entries[i].key == key && key != "" {
			a.entries[i].item = item
			return nil
		}
	}
	a.entries = append(a.entries, entry{key: key, item: item})
	return nil
}

// Remove deletes the item at index; out-of-range indexes are ignored.
func (a *Assembler) Remove(index int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.entries) {
		return
	}
	a.entries = append(a.entries[:index], a.entries[index+1:]...)
}

// Items returns a snapshot of the current ordered item list.
func (a *Assembler) Items() []LineItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	items := make([]LineItem, len(a.entries))
	for i, e := range a.entries {
		items[i] = e.item
	}
	return items
}

// Total folds the item totals. It is recomputed on every call so the running
// total can never drift from the list contents.
func (a *Assembler) Total() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var total float64
	for _, e := range a.entries {
		total += e.item.Total
	}
	return total
}

// Len reports the current number of items.
func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
