package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// GroupKey is the reconciliation key: one key per (route card, delivery
// challan, item). SupplierName participates only when the caller groups with
// supplier (the mismatch-preview variant); it stays empty otherwise.
type GroupKey struct {
	RouteCardNo  string
	DCNo         string
	FGItemCode   string
	SupplierName string
}

func (k GroupKey) less(o GroupKey) bool {
	if k.RouteCardNo != o.RouteCardNo {
		return k.RouteCardNo < o.RouteCardNo
	}
	if k.DCNo != o.DCNo {
		return k.DCNo < o.DCNo
	}
	if k.FGItemCode != o.FGItemCode {
		return k.FGItemCode < o.FGItemCode
	}
	return k.SupplierName < o.SupplierName
}

// LedgerLine is one normalized ledger row reduced to its key and measures.
type LedgerLine struct {
	Key   GroupKey
	Qty   decimal.Decimal
	Price decimal.Decimal
}

// AggregatedLine is one row per distinct GroupKey: quantity summed and price
// averaged across the grouped lines.
type AggregatedLine struct {
	Key       GroupKey
	Qty       decimal.Decimal
	MeanPrice decimal.Decimal
}

// meanPriceScale bounds non-terminating divisions (e.g. averaging thirds).
const meanPriceScale = 8

// AggregateLines groups lines by key, summing Qty and averaging Price.
// Keys that never occur in the input never occur in the output; synthesizing
// missing keys is the reconciler's job. Empty key fields group like any other
// value. Output is sorted by key so runs are reproducible.
func AggregateLines(lines []LedgerLine) []AggregatedLine {
	type acc struct {
		qty      decimal.Decimal
		priceSum decimal.Decimal
		count    int64
	}
	groups := make(map[GroupKey]*acc)
	for _, line := range lines {
		g, ok := groups[line.Key]
		if !ok {
			g = &acc{}
			groups[line.Key] = g
		}
		g.qty = g.qty.Add(line.Qty)
		g.priceSum = g.priceSum.Add(line.Price)
		g.count++
	}

	out := make([]AggregatedLine, 0, len(groups))
	for key, g := range groups {
		out = append(out, AggregatedLine{
			Key:       key,
			Qty:       g.qty,
			MeanPrice: g.priceSum.DivRound(decimal.NewFromInt(g.count), meanPriceScale),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.less(out[j].Key) })
	return out
}
