// Package bids persists bid headers and their line items atomically in SQLite.
package bids

import (
	"time"

	"github.com/paintbid/paintbid/internal/estimate"
)

// Status is the lifecycle state of a persisted bid.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusGenerated Status = "generated"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
)

// Valid reports whether the status is one of the known lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusGenerated, StatusSent, StatusAccepted:
		return true
	}
	return false
}

// Draft is the caller-supplied input to one atomic save.
type Draft struct {
	UserID      string               `json:"user_id"`
	ClientID    string               `json:"client_id,omitempty"`
	ProjectName string               `json:"project_name"`
	Address     string               `json:"address,omitempty"`
	Dimensions  *estimate.Dimensions `json:"dimensions,omitempty"`
	Items       []estimate.LineItem  `json:"items"`
	Status      Status               `json:"status,omitempty"`
}

// Bid is one persisted bid header with its line items.
type Bid struct {
	ID            string               `json:"id"`
	UserID        string               `json:"user_id"`
	ClientID      string               `json:"client_id,omitempty"`
	ProjectName   string               `json:"project_name"`
	Address       string               `json:"address,omitempty"`
	Dimensions    *estimate.Dimensions `json:"dimensions,omitempty"`
	TotalSqFt     float64              `json:"total_sq_ft"`
	EstimatedCost float64              `json:"estimated_cost"`
	Status        Status               `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	Items         []estimate.LineItem  `json:"items"`
}
