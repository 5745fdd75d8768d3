package models

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadLedgerWorkbook reads the first worksheet of an xlsx workbook into a
// Sheet. The first row is the header; everything below is data.
func ReadLedgerWorkbook(r io.Reader) (Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return Sheet{}, errors.New("workbook has no worksheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return Sheet{}, fmt.Errorf("unable to read sheet %q: %v", sheetName, err)
	}
	if len(rows) == 0 {
		return Sheet{}, errors.New("worksheet is empty")
	}

	return Sheet{Header: rows[0], Rows: rows[1:]}, nil
}
