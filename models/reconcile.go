package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ReceiptStatus classifies the quantity difference of a reconciled row.
type ReceiptStatus string

// MatchStatus classifies price and overall agreement of a reconciled row.
type MatchStatus string

const (
	ReceiptMatched ReceiptStatus = "Matched"
	// Sign convention: QtyDifference = issue - received. A negative
	// difference means the subcontractor returned more than was issued.
	ReceiptOver  ReceiptStatus = "Over Receipt"
	ReceiptUnder ReceiptStatus = "Under Receipt"

	StatusMatched  MatchStatus = "Matched"
	StatusMismatch MatchStatus = "Mismatch"
)

// Options tunes reconciliation. PriceTolerance widens the price comparison:
// zero (the default) demands exact decimal equality, which is safe here
// because all arithmetic is decimal, not binary floating point.
type Options struct {
	PriceTolerance decimal.Decimal
}

// ReconciledRow is the outer-join result for one key. Measures from an absent
// side are zero, never null; that distinction drives classification.
type ReconciledRow struct {
	Key             GroupKey
	IssueQty        decimal.Decimal
	ReceivedQty     decimal.Decimal
	QtyDifference   decimal.Decimal
	IssuePrice      decimal.Decimal
	ReceivedPrice   decimal.Decimal
	PriceDifference decimal.Decimal
	ReceiptStatus   ReceiptStatus
	PriceStatus     MatchStatus
	OverallStatus   MatchStatus
}

// Reconcile performs a full outer join of the two aggregated ledgers on
// GroupKey and classifies every row. It is a pure function of its inputs:
// every key present on either side appears exactly once in the result, and
// the result is sorted by key.
func Reconcile(issue, received []AggregatedLine, opts Options) []ReconciledRow {
	issueByKey := make(map[GroupKey]AggregatedLine, len(issue))
	for _, line := range issue {
		issueByKey[line.Key] = line
	}
	receivedByKey := make(map[GroupKey]AggregatedLine, len(received))
	for _, line := range received {
		receivedByKey[line.Key] = line
	}

	keys := make([]GroupKey, 0, len(issueByKey)+len(receivedByKey))
	for key := range issueByKey {
		keys = append(keys, key)
	}
	for key := range receivedByKey {
		if _, ok := issueByKey[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	rows := make([]ReconciledRow, 0, len(keys))
	for _, key := range keys {
		row := ReconciledRow{Key: key}
		if line, ok := issueByKey[key]; ok {
			row.IssueQty = line.Qty
			row.IssuePrice = line.MeanPrice
		}
		if line, ok := receivedByKey[key]; ok {
			row.ReceivedQty = line.Qty
			row.ReceivedPrice = line.MeanPrice
		}
		row.QtyDifference = row.IssueQty.Sub(row.ReceivedQty)
		row.PriceDifference = row.IssuePrice.Sub(row.ReceivedPrice)
		row.ReceiptStatus = classifyReceipt(row.QtyDifference)
		row.PriceStatus = classifyPrice(row.PriceDifference, opts.PriceTolerance)
		if row.ReceiptStatus == ReceiptMatched && row.PriceStatus == StatusMatched {
			row.OverallStatus = StatusMatched
		} else {
			row.OverallStatus = StatusMismatch
		}
		rows = append(rows, row)
	}
	return rows
}

func classifyReceipt(qtyDiff decimal.Decimal) ReceiptStatus {
	switch {
	case qtyDiff.IsZero():
		return ReceiptMatched
	case qtyDiff.IsNegative():
		return ReceiptOver
	default:
		return ReceiptUnder
	}
}

func classifyPrice(priceDiff, tolerance decimal.Decimal) MatchStatus {
	if priceDiff.Abs().LessThanOrEqual(tolerance.Abs()) {
		return StatusMatched
	}
	return StatusMismatch
}
