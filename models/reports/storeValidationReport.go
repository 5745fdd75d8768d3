package reports

import (
	"strings"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/subcon_backend/models"
)

// RowFilter narrows a reconciled set by exact key-field equality. Empty
// fields mean no constraint, never "exclude everything".
type RowFilter struct {
	RouteCard string
	Supplier  string
}

func (f RowFilter) matches(row models.ReconciledRow) bool {
	if rc := strings.TrimSpace(f.RouteCard); rc != "" && row.Key.RouteCardNo != rc {
		return false
	}
	if sup := strings.TrimSpace(f.Supplier); sup != "" && row.Key.SupplierName != sup {
		return false
	}
	return true
}

// Apply keeps only rows matching every supplied filter field. Measures are
// never altered; filtering is a pure narrowing.
func (f RowFilter) Apply(rows []models.ReconciledRow) []models.ReconciledRow {
	out := make([]models.ReconciledRow, 0, len(rows))
	for _, row := range rows {
		if f.matches(row) {
			out = append(out, row)
		}
	}
	return out
}

// MismatchRow is one quantity mismatch in the preview payload. Field names
// mirror the ledger column vocabulary the planners already know.
type MismatchRow struct {
	RouteCardNo  string          `json:"RouteCard No"`
	DCNo         string          `json:"DC No"`
	FGItemCode   string          `json:"FG Item Code"`
	SupplierName string          `json:"Supplier Name"`
	IssueQty     decimal.Decimal `json:"Issue_Qty"`
	ReceivedQty  decimal.Decimal `json:"Received_Qty"`
	Difference   decimal.Decimal `json:"Difference"`
}

// MismatchPreviewResponse is the /validate payload: a count over the whole
// filtered mismatch set plus a bounded row preview.
type MismatchPreviewResponse struct {
	MismatchCount   int           `json:"mismatch_count"`
	MismatchPreview []MismatchRow `json:"mismatch_preview"`
}

// BuildMismatchPreview filters the reconciled set, keeps rows whose issued
// and received quantities disagree, and previews at most limit rows. The
// count always covers the full filtered mismatch set, not the preview.
func BuildMismatchPreview(rows []models.ReconciledRow, filter RowFilter, limit int) *MismatchPreviewResponse {
	resp := &MismatchPreviewResponse{MismatchPreview: []MismatchRow{}}
	for _, row := range filter.Apply(rows) {
		if row.QtyDifference.IsZero() {
			continue
		}
		resp.MismatchCount++
		if limit <= 0 || len(resp.MismatchPreview) < limit {
			resp.MismatchPreview = append(resp.MismatchPreview, MismatchRow{
				RouteCardNo:  row.Key.RouteCardNo,
				DCNo:         row.Key.DCNo,
				FGItemCode:   row.Key.FGItemCode,
				SupplierName: row.Key.SupplierName,
				IssueQty:     row.IssueQty,
				ReceivedQty:  row.ReceivedQty,
				Difference:   row.QtyDifference,
			})
		}
	}
	return resp
}

// ValidationSummary carries the headline counters of a full validation run.
type ValidationSummary struct {
	TotalRecords       int `json:"total_records"`
	MatchedRecords     int `json:"matched_records"`
	MismatchRecords    int `json:"mismatch_records"`
	OverReceiptCases   int `json:"over_receipt_cases"`
	UnderReceiptCases  int `json:"under_receipt_cases"`
	PriceMismatchCases int `json:"price_mismatch_cases"`
}

// ValidationRow is one fully classified comparison row.
type ValidationRow struct {
	RouteCardNo     string          `json:"RouteCard No"`
	DCNo            string          `json:"DC No"`
	FGItemCode      string          `json:"FG Item Code"`
	IssueQty        decimal.Decimal `json:"Issue Qty"`
	ReceivedQty     decimal.Decimal `json:"Received Qty"`
	QtyDifference   decimal.Decimal `json:"Qty Difference"`
	IssuePrice      decimal.Decimal `json:"Issue Price"`
	ReceivedPrice   decimal.Decimal `json:"Received Price"`
	PriceDifference decimal.Decimal `json:"Price Difference"`
	ReceiptStatus   string          `json:"Receipt Status"`
	PriceStatus     string          `json:"Price Status"`
	OverallStatus   string          `json:"Overall Status"`
}

// StoreValidationResponse is the /v2/validate payload: summary counters over
// the filtered set, the complete comparison table and the mismatch-only table.
type StoreValidationResponse struct {
	Summary       ValidationSummary `json:"summary"`
	FullTable     []ValidationRow   `json:"full_table"`
	MismatchTable []ValidationRow   `json:"mismatch_table"`
}

// BuildStoreValidation shapes the extended validation payload from a
// reconciled set. All counters are computed over the filtered rows.
func BuildStoreValidation(rows []models.ReconciledRow, filter RowFilter) *StoreValidationResponse {
	resp := &StoreValidationResponse{
		FullTable:     []ValidationRow{},
		MismatchTable: []ValidationRow{},
	}
	for _, row := range filter.Apply(rows) {
		out := ValidationRow{
			RouteCardNo:     row.Key.RouteCardNo,
			DCNo:            row.Key.DCNo,
			FGItemCode:      row.Key.FGItemCode,
			IssueQty:        row.IssueQty,
			ReceivedQty:     row.ReceivedQty,
			QtyDifference:   row.QtyDifference,
			IssuePrice:      row.IssuePrice,
			ReceivedPrice:   row.ReceivedPrice,
			PriceDifference: row.PriceDifference,
			ReceiptStatus:   string(row.ReceiptStatus),
			PriceStatus:     string(row.PriceStatus),
			OverallStatus:   string(row.OverallStatus),
		}
		resp.FullTable = append(resp.FullTable, out)
		resp.Summary.TotalRecords++
		switch row.OverallStatus {
		case models.StatusMatched:
			resp.Summary.MatchedRecords++
		default:
			resp.Summary.MismatchRecords++
			resp.MismatchTable = append(resp.MismatchTable, out)
		}
		switch row.ReceiptStatus {
		case models.ReceiptOver:
			resp.Summary.OverReceiptCases++
		case models.ReceiptUnder:
			resp.Summary.UnderReceiptCases++
		}
		if row.PriceStatus == models.StatusMismatch {
			resp.Summary.PriceMismatchCases++
		}
	}
	return resp
}
