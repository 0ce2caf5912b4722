/*
Package directory loads payer records from an xlsx workbook.

PURPOSE:
  The payer directory is maintained externally as a spreadsheet. This
  package reads it, normalizes the identity fields the matcher relies
  on, validates each record, and produces the []recon.Payer that backs
  a directory snapshot.

NORMALIZATION:
  - UPI handles are lowercased
  - Phones are reduced to digits; when the number parses as a valid
    Indian number the national significant digits are kept, otherwise
    every non-digit is stripped as a fallback

VALIDATION:
  Struct-tag validation on the raw row, then recon.Payer.Validate on
  the built record. Invalid rows are reported per-row and skipped, not
  silently dropped and never fatal for the remaining rows.

EXPECTED COLUMNS (header row, any order):
  payer_id, name, phone, upi_id, email, address, expected_amount,
  enrollment_date
*/
package directory

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ledgerline/reconcile-engine/recon"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
	"github.com/xuri/excelize/v2"
)

// phoneRegion is the default region for parsing directory phone
// numbers without an explicit country code.
const phoneRegion = "IN"

var validate = validator.New()

// row is the raw shape of one spreadsheet row before normalization.
type row struct {
	PayerID        string `validate:"required"`
	Name           string `validate:"required"`
	Phone          string
	UPI            string
	Email          string `validate:"omitempty,email"`
	Address        string
	ExpectedAmount string `validate:"required"`
	EnrollmentDate string `validate:"required"`
}

// RowError reports one skipped spreadsheet row.
type RowError struct {
	Row int // 1-based worksheet row number
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// LoadXLSX reads payer records from the first sheet of the workbook at
// path. It returns the valid records and a per-row report of the
// invalid ones; the error is non-nil only when the workbook itself
// cannot be read.
func LoadXLSX(path string) ([]recon.Payer, []RowError, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	columns := headerIndex(rows[0])

	var (
		payers  []recon.Payer
		skipped []RowError
	)
	for i, cells := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header
		r := rowFromCells(cells, columns)

		payer, err := buildPayer(r)
		if err != nil {
			skipped = append(skipped, RowError{Row: rowNum, Err: err})
			continue
		}
		payers = append(payers, payer)
	}
	return payers, skipped, nil
}

// headerIndex maps normalized column names to their positions.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func rowFromCells(cells []string, columns map[string]int) row {
	cell := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}
	return row{
		PayerID:        cell("payer_id"),
		Name:           cell("name"),
		Phone:          cell("phone"),
		UPI:            cell("upi_id"),
		Email:          cell("email"),
		Address:        cell("address"),
		ExpectedAmount: cell("expected_amount"),
		EnrollmentDate: cell("enrollment_date"),
	}
}

// buildPayer validates and normalizes one raw row.
func buildPayer(r row) (recon.Payer, error) {
	if err := validate.Struct(r); err != nil {
		return recon.Payer{}, err
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(r.ExpectedAmount, ",", ""))
	if err != nil {
		return recon.Payer{}, fmt.Errorf("bad expected_amount %q: %w", r.ExpectedAmount, err)
	}

	enrolled, err := time.Parse("2006-01-02", r.EnrollmentDate)
	if err != nil {
		return recon.Payer{}, fmt.Errorf("bad enrollment_date %q: %w", r.EnrollmentDate, err)
	}

	payer := recon.Payer{
		ID:             recon.PayerID(r.PayerID),
		Name:           r.Name,
		Phone:          NormalizePhone(r.Phone),
		UPI:            strings.ToLower(r.UPI),
		Email:          r.Email,
		Address:        r.Address,
		ExpectedAmount: amount,
		EnrolledAt:     enrolled,
	}
	if err := payer.Validate(); err != nil {
		return recon.Payer{}, err
	}
	return payer, nil
}

// NormalizePhone reduces a stored phone to digits. Valid numbers keep
// only their national significant digits, which lets the matcher's
// substring lookup work regardless of how the spreadsheet recorded the
// country code.
func NormalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	if num, err := libphonenumber.Parse(raw, phoneRegion); err == nil && libphonenumber.IsValidNumber(num) {
		return libphonenumber.GetNationalSignificantNumber(num)
	}
	return stripNonDigits(raw)
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
