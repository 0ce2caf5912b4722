/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.
*/
package api

import (
	"time"

	"github.com/ledgerline/reconcile-engine/recon"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// PayerDTO is a directory record joined with its balance projection.
type PayerDTO struct {
	ID             string  `json:"payer_id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone,omitempty"`
	UPI            string  `json:"upi_id,omitempty"`
	Email          string  `json:"email,omitempty"`
	Address        string  `json:"address,omitempty"`
	ExpectedAmount float64 `json:"expected_amount"`
	EnrolledAt     string  `json:"enrollment_date"`
	TotalPaid      float64 `json:"total_paid"`
	DueAmount      float64 `json:"due_amount"`
	OverdueDays    int     `json:"overdue_days"`
	Settled        bool    `json:"settled"`
}

// BalanceDTO is the balance projection alone.
type BalanceDTO struct {
	PayerID        string  `json:"payer_id"`
	ExpectedAmount float64 `json:"expected_amount"`
	TotalPaid      float64 `json:"total_paid"`
	DueAmount      float64 `json:"due_amount"`
	OverdueDays    int     `json:"overdue_days"`
}

// PaymentDTO represents a ledger entry.
type PaymentDTO struct {
	ID            string  `json:"id"`
	PayerID       string  `json:"payer_id"`
	Amount        float64 `json:"amount"`
	ReferenceCode string  `json:"reference_code,omitempty"`
	Source        string  `json:"source"`
	RecordedAt    string  `json:"recorded_at"`
}

// ReconcileRequest carries one raw notification body.
type ReconcileRequest struct {
	Text string `json:"text"`
}

// CandidateDTO is the extracted-field view carried on outcomes.
type CandidateDTO struct {
	UPI           string  `json:"upi_handle,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	ReferenceCode string  `json:"reference_code,omitempty"`
	Raw           string  `json:"raw"`
}

// OutcomeDTO is the reconciliation result for one body.
type OutcomeDTO struct {
	Status       string       `json:"status"` // matched | unmatched
	PayerID      string       `json:"payer_id,omitempty"`
	RecordStatus string       `json:"record_status,omitempty"` // recorded | duplicate | rejected
	RejectReason string       `json:"reject_reason,omitempty"`
	Payment      *PaymentDTO  `json:"payment,omitempty"`
	Candidate    CandidateDTO `json:"candidate"`
}

// ManualPaymentRequest is the operator entry path.
type ManualPaymentRequest struct {
	PayerID       string  `json:"payer_id"`
	Amount        float64 `json:"amount"`
	ReferenceCode string  `json:"reference_code,omitempty"`
	Override      bool    `json:"override,omitempty"`
}

// ReloadResultDTO reports a directory reload.
type ReloadResultDTO struct {
	Loaded  int      `json:"loaded"`
	Skipped []string `json:"skipped,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPayerDTO(p recon.Payer, b recon.Balance) PayerDTO {
	expected, _ := p.ExpectedAmount.Float64()
	paid, _ := b.TotalPaid.Float64()
	due, _ := b.DueAmount.Float64()
	return PayerDTO{
		ID:             string(p.ID),
		Name:           p.Name,
		Phone:          p.Phone,
		UPI:            p.UPI,
		Email:          p.Email,
		Address:        p.Address,
		ExpectedAmount: expected,
		EnrolledAt:     p.EnrolledAt.Format("2006-01-02"),
		TotalPaid:      paid,
		DueAmount:      due,
		OverdueDays:    b.OverdueDays,
		Settled:        b.Settled(),
	}
}

func toBalanceDTO(b recon.Balance) BalanceDTO {
	expected, _ := b.ExpectedAmount.Float64()
	paid, _ := b.TotalPaid.Float64()
	due, _ := b.DueAmount.Float64()
	return BalanceDTO{
		PayerID:        string(b.PayerID),
		ExpectedAmount: expected,
		TotalPaid:      paid,
		DueAmount:      due,
		OverdueDays:    b.OverdueDays,
	}
}

func toPaymentDTO(p recon.Payment) PaymentDTO {
	amount, _ := p.Amount.Float64()
	return PaymentDTO{
		ID:            string(p.ID),
		PayerID:       string(p.PayerID),
		Amount:        amount,
		ReferenceCode: p.ReferenceCode,
		Source:        string(p.Source),
		RecordedAt:    p.RecordedAt.Format(time.RFC3339),
	}
}

func toPaymentDTOs(payments []recon.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

func toCandidateDTO(c recon.Candidate) CandidateDTO {
	amount, _ := c.Amount.Float64()
	return CandidateDTO{
		UPI:           c.UPI,
		Phone:         c.Phone,
		Amount:        amount,
		ReferenceCode: c.ReferenceCode,
		Raw:           c.Raw,
	}
}

func toOutcomeDTO(o recon.Outcome) OutcomeDTO {
	dto := OutcomeDTO{
		Status:    string(o.Status),
		Candidate: toCandidateDTO(o.Candidate),
	}
	if o.Status != recon.OutcomeMatched {
		return dto
	}

	dto.PayerID = string(o.PayerID)
	dto.RecordStatus = string(o.Result.Status)
	if o.Result.Payment != nil {
		p := toPaymentDTO(*o.Result.Payment)
		dto.Payment = &p
	}
	if o.Result.Reject != nil {
		dto.RejectReason = o.Result.Reject.Error()
	}
	return dto
}
