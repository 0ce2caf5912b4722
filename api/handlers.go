/*
handlers.go - HTTP API handlers for the reconciliation engine

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Reconciliation:
    POST   /api/reconcile             Reconcile one notification body
    POST   /api/ingest                Drain the feed source now

  Payers:
    GET    /api/payers                Directory joined with balances
    GET    /api/payers/{id}/balance   Single balance projection
    GET    /api/payers/{id}/payments  Payment history, newest first

  Payments:
    GET    /api/payments              All payments (admin view)
    POST   /api/payments/manual       Operator entry path

  Directory:
    POST   /api/directory/reload      Atomic snapshot swap from xlsx

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input
  - 404: Unknown payer
  - 422: Rejected payment (manual path)
  - 500: Storage failure
  A duplicate is NOT an error: it is reported with 200 and a
  "duplicate" record status so callers can suppress repeat
  notifications without losing the payment's existence.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background ingest loop
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ledgerline/reconcile-engine/directory"
	"github.com/ledgerline/reconcile-engine/recon"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// PayerWriter persists reloaded directory records. Implemented by the
// sqlite store; nil disables persistence on reload.
type PayerWriter interface {
	SavePayer(ctx context.Context, p recon.Payer) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Handle    *recon.DirectoryHandle
	Ledger    *recon.Ledger
	Driver    *recon.Driver
	Payments  recon.PaymentStore
	Scheduler *IngestScheduler // nil when no feed source is configured
	Payers    PayerWriter
	XLSXPath  string // directory workbook for reloads
	Log       *logrus.Logger
}

// NewHandler creates a handler with the given dependencies.
func NewHandler(handle *recon.DirectoryHandle, ledger *recon.Ledger, driver *recon.Driver, payments recon.PaymentStore, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Handle:   handle,
		Ledger:   ledger,
		Driver:   driver,
		Payments: payments,
		Log:      log,
	}
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// Reconcile processes one raw notification body.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required", nil)
		return
	}

	outcome, err := h.Driver.Reconcile(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Reconciliation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toOutcomeDTO(outcome))
}

// IngestNow drains the configured feed source immediately.
func (h *Handler) IngestNow(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "No feed source configured", nil)
		return
	}

	stats, err := h.Scheduler.RunOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Ingest cycle failed", err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// PAYER HANDLERS
// =============================================================================

// ListPayers returns every directory record joined with its balance.
func (h *Handler) ListPayers(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.Driver.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balances", err)
		return
	}

	dtos := make([]PayerDTO, len(statuses))
	for i, s := range statuses {
		dtos[i] = toPayerDTO(s.Payer, s.Balance)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBalance returns the balance projection for one payer.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	payerID := recon.PayerID(chi.URLParam(r, "id"))

	balance, err := h.Ledger.BalanceFor(r.Context(), payerID)
	if err != nil {
		if errors.Is(err, recon.ErrUnknownPayer) {
			writeError(w, http.StatusNotFound, "Payer not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// GetHistory returns a payer's payments, most recent first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	payerID := recon.PayerID(chi.URLParam(r, "id"))

	if _, ok := h.Handle.Payer(payerID); !ok {
		writeError(w, http.StatusNotFound, "Payer not found", nil)
		return
	}

	payments, err := h.Ledger.History(r.Context(), payerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns every ledger entry (admin view).
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Payments.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// RecordManual records an operator-entered payment.
func (h *Handler) RecordManual(w http.ResponseWriter, r *http.Request) {
	var req ManualPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PayerID == "" {
		writeError(w, http.StatusBadRequest, "payer_id is required", nil)
		return
	}

	result, err := h.Ledger.RecordPayment(r.Context(), recon.RecordRequest{
		PayerID:       recon.PayerID(req.PayerID),
		Amount:        decimal.NewFromFloat(req.Amount),
		ReferenceCode: req.ReferenceCode,
		Source:        recon.SourceManual,
		Override:      req.Override,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record payment", err)
		return
	}

	switch result.Status {
	case recon.StatusRejected:
		status := http.StatusUnprocessableEntity
		if errors.Is(result.Reject, recon.ErrUnknownPayer) {
			status = http.StatusNotFound
		}
		writeError(w, status, "Payment rejected", result.Reject)
	case recon.StatusDuplicate:
		writeJSON(w, http.StatusOK, map[string]string{"status": string(recon.StatusDuplicate)})
	default:
		writeJSON(w, http.StatusCreated, toPaymentDTO(*result.Payment))
	}
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ReloadDirectory rebuilds the directory snapshot from the configured
// workbook and swaps it in atomically. In-flight matches keep using
// the previous snapshot.
func (h *Handler) ReloadDirectory(w http.ResponseWriter, r *http.Request) {
	if h.XLSXPath == "" {
		writeError(w, http.StatusServiceUnavailable, "No directory workbook configured", nil)
		return
	}

	payers, skipped, err := directory.LoadXLSX(h.XLSXPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load directory", err)
		return
	}
	if err := h.Handle.Swap(payers); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to swap directory", err)
		return
	}

	if h.Payers != nil {
		for _, p := range payers {
			if err := h.Payers.SavePayer(r.Context(), p); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to persist payer", err)
				return
			}
		}
	}

	result := ReloadResultDTO{Loaded: len(payers)}
	for _, s := range skipped {
		result.Skipped = append(result.Skipped, s.Error())
	}
	h.Log.WithFields(logrus.Fields{"loaded": result.Loaded, "skipped": len(skipped)}).Info("directory reloaded")
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
