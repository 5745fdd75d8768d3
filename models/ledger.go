package models

import (
	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/subcon_backend/utils"
)

// Source column names. "GK DC No" and "Subcon DC No" refer to the same
// physical delivery challan and are aligned into one DC No field here.
const (
	ColRouteCardNo  = "RouteCard No"
	ColGKDCNo       = "GK DC No"
	ColSubconDCNo   = "Subcon DC No"
	ColFGItemCode   = "FG Item Code"
	ColSupplierName = "Supplier Name"
	ColTransferQty  = "Transfer Qty"
	ColRcvdQty      = "Rcvd. Qty"
	ColSpecialPrice = "Special Price"
)

// IssueRecord is one row of the issue ledger (goods sent to a subcontractor).
type IssueRecord struct {
	RouteCardNo  string
	DCNo         string
	FGItemCode   string
	SupplierName string
	TransferQty  decimal.Decimal
	SpecialPrice decimal.Decimal
}

// ReceivedRecord is one row of the received ledger (goods returned).
type ReceivedRecord struct {
	RouteCardNo  string
	DCNo         string
	FGItemCode   string
	SupplierName string
	RcvdQty      decimal.Decimal
	SpecialPrice decimal.Decimal
}

func (r IssueRecord) Line(withSupplier bool) LedgerLine {
	key := GroupKey{RouteCardNo: r.RouteCardNo, DCNo: r.DCNo, FGItemCode: r.FGItemCode}
	if withSupplier {
		key.SupplierName = r.SupplierName
	}
	return LedgerLine{Key: key, Qty: r.TransferQty, Price: r.SpecialPrice}
}

func (r ReceivedRecord) Line(withSupplier bool) LedgerLine {
	key := GroupKey{RouteCardNo: r.RouteCardNo, DCNo: r.DCNo, FGItemCode: r.FGItemCode}
	if withSupplier {
		key.SupplierName = r.SupplierName
	}
	return LedgerLine{Key: key, Qty: r.RcvdQty, Price: r.SpecialPrice}
}

// ParseIssueSheet validates the issue ledger schema and normalizes every row:
// key cells cast to trimmed text, quantity/price cells coerced to decimal with
// unparsable or missing cells becoming zero. Coercion to zero is deliberate;
// a stray text cell must not drop the row from reconciliation.
func ParseIssueSheet(sheet Sheet) ([]IssueRecord, error) {
	idx := columnIndex(sheet.Header)
	for _, col := range []string{ColRouteCardNo, ColGKDCNo, ColFGItemCode, ColSupplierName, ColTransferQty} {
		if _, ok := idx[col]; !ok {
			return nil, &SchemaError{Side: SideIssue, Column: col}
		}
	}

	// Special Price is optional and defaults to zero per cell.
	priceCol, hasPrice := idx[ColSpecialPrice]

	records := make([]IssueRecord, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rec := IssueRecord{
			RouteCardNo:  cellAt(row, idx[ColRouteCardNo]),
			DCNo:         cellAt(row, idx[ColGKDCNo]),
			FGItemCode:   cellAt(row, idx[ColFGItemCode]),
			SupplierName: cellAt(row, idx[ColSupplierName]),
			TransferQty:  utils.DecimalOrZero(cellAt(row, idx[ColTransferQty])),
		}
		if hasPrice {
			rec.SpecialPrice = utils.DecimalOrZero(cellAt(row, priceCol))
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseReceivedSheet is the received-side counterpart of ParseIssueSheet.
// The "Subcon DC No" column lands in DCNo so both sides key identically.
func ParseReceivedSheet(sheet Sheet) ([]ReceivedRecord, error) {
	idx := columnIndex(sheet.Header)
	for _, col := range []string{ColRouteCardNo, ColSubconDCNo, ColFGItemCode, ColSupplierName, ColRcvdQty} {
		if _, ok := idx[col]; !ok {
			return nil, &SchemaError{Side: SideReceived, Column: col}
		}
	}

	priceCol, hasPrice := idx[ColSpecialPrice]

	records := make([]ReceivedRecord, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rec := ReceivedRecord{
			RouteCardNo:  cellAt(row, idx[ColRouteCardNo]),
			DCNo:         cellAt(row, idx[ColSubconDCNo]),
			FGItemCode:   cellAt(row, idx[ColFGItemCode]),
			SupplierName: cellAt(row, idx[ColSupplierName]),
			RcvdQty:      utils.DecimalOrZero(cellAt(row, idx[ColRcvdQty])),
		}
		if hasPrice {
			rec.SpecialPrice = utils.DecimalOrZero(cellAt(row, priceCol))
		}
		records = append(records, rec)
	}
	return records, nil
}

// IssueLines converts parsed issue records for aggregation.
func IssueLines(records []IssueRecord, withSupplier bool) []LedgerLine {
	lines := make([]LedgerLine, 0, len(records))
	for _, r := range records {
		lines = append(lines, r.Line(withSupplier))
	}
	return lines
}

// ReceivedLines converts parsed received records for aggregation.
func ReceivedLines(records []ReceivedRecord, withSupplier bool) []LedgerLine {
	lines := make([]LedgerLine, 0, len(records))
	for _, r := range records {
		lines = append(lines, r.Line(withSupplier))
	}
	return lines
}
