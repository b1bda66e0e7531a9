/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Reports are returned
  as the inventory package builds them; write-path records get DTOs so the
  wire names stay stable if the ledger types change.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Damages:
    DamageDTO, CreateDamageRequest, ResolveDamageRequest

  Balances:
    PersonBalanceResponse

  Documents:
    DocumentDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request structs carry validator tags; handlers validate before calling
  the domain.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/stock-ledger/inventory"
	"github.com/warp/stock-ledger/ledger"
)

// =============================================================================
// DAMAGES
// =============================================================================

// DamageDTO represents a damage report in API responses.
type DamageDTO struct {
	ID           string           `json:"id"`
	ProductID    string           `json:"product_id"`
	BatchCode    string           `json:"batch_code"`
	PersonID     string           `json:"person_id,omitempty"`
	Quantity     decimal.Decimal  `json:"quantity"`
	Status       string           `json:"status"`
	Resolution   *string          `json:"resolution"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`
	Note         string           `json:"note,omitempty"`
	Date         time.Time        `json:"date"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`
}

func toDamageDTO(d ledger.Damage) DamageDTO {
	dto := DamageDTO{
		ID:         d.ID,
		ProductID:  string(d.ProductID),
		BatchCode:  d.BatchCode,
		PersonID:   string(d.PersonID),
		Quantity:   d.Quantity,
		Status:     "pending",
		Note:       d.Note,
		Date:       d.At,
		ResolvedAt: d.ResolvedAt,
	}
	if !d.Pending() {
		r := string(d.Resolution)
		dto.Status = "resolved"
		dto.Resolution = &r
	}
	if !d.RefundAmount.IsZero() {
		amount := d.RefundAmount
		dto.RefundAmount = &amount
	}
	return dto
}

// CreateDamageRequest is the body of POST /api/damages.
type CreateDamageRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	BatchCode string          `json:"batch_code" validate:"required"`
	PersonID  string          `json:"person_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note"`
	Date      *time.Time      `json:"date"`
}

func (r CreateDamageRequest) input() inventory.CreateDamageInput {
	in := inventory.CreateDamageInput{
		ProductID: ledger.ProductID(r.ProductID),
		BatchCode: r.BatchCode,
		PersonID:  ledger.PersonID(r.PersonID),
		Quantity:  r.Quantity,
		Note:      r.Note,
	}
	if r.Date != nil {
		in.At = *r.Date
	}
	return in
}

// ResolveDamageRequest is the body of POST /api/damages/{id}/resolve.
type ResolveDamageRequest struct {
	Resolution   string          `json:"resolution" validate:"required"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	PersonID     string          `json:"person_id"`
	Date         *time.Time      `json:"date"`
}

func (r ResolveDamageRequest) input() inventory.ResolveDamageInput {
	in := inventory.ResolveDamageInput{
		Resolution:   ledger.Resolution(r.Resolution),
		RefundAmount: r.RefundAmount,
		PersonID:     ledger.PersonID(r.PersonID),
	}
	if r.Date != nil {
		in.At = *r.Date
	}
	return in
}

// =============================================================================
// BALANCES
// =============================================================================

// PersonBalanceResponse is one person's balance. PreviousBalance is set when
// the request names a bill.
type PersonBalanceResponse struct {
	inventory.PersonBalance
	Bill            string           `json:"bill,omitempty"`
	PreviousBalance *decimal.Decimal `json:"previous_balance,omitempty"`
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// DocumentDTO is a stored document with its raw body.
type DocumentDTO struct {
	ID        string          `json:"id"`
	UpdatedAt time.Time       `json:"updated_at"`
	Body      json.RawMessage `json:"body"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO describes a demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
