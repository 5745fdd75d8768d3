package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var exportHeadings = []string{
	"RouteCard No", "DC No", "FG Item Code",
	"Issue Qty", "Received Qty", "Qty Difference",
	"Issue Price", "Received Price", "Price Difference",
	"Receipt Status", "Price Status", "Overall Status",
}

// WriteStoreValidationXlsx writes the full comparison table to w as an xlsx
// workbook, with the summary counters on a second sheet.
func WriteStoreValidationXlsx(report *StoreValidationResponse, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Validation"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	// Add headers
	for i, h := range exportHeadings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	// Add data
	for rowNo, d := range report.FullTable {
		values := []interface{}{
			d.RouteCardNo, d.DCNo, d.FGItemCode,
			d.IssueQty.String(), d.ReceivedQty.String(), d.QtyDifference.String(),
			d.IssuePrice.String(), d.ReceivedPrice.String(), d.PriceDifference.String(),
			d.ReceiptStatus, d.PriceStatus, d.OverallStatus,
		}
		for i, value := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNo+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}

	summarySheet := "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	summaryRows := []struct {
		label string
		value int
	}{
		{"Total Records", report.Summary.TotalRecords},
		{"Matched Records", report.Summary.MatchedRecords},
		{"Mismatch Records", report.Summary.MismatchRecords},
		{"Over Receipt Cases", report.Summary.OverReceiptCases},
		{"Under Receipt Cases", report.Summary.UnderReceiptCases},
		{"Price Mismatch Cases", report.Summary.PriceMismatchCases},
	}
	for i, row := range summaryRows {
		if err := f.SetCellValue(summarySheet, "A"+fmt.Sprint(i+1), row.label); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, "B"+fmt.Sprint(i+1), row.value); err != nil {
			return err
		}
	}

	return f.Write(w)
}
