package sheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// monthSheets maps month number (1-12) to the sheet name the billing
// spreadsheet uses for that month.
var monthSheets = [12]string{
	"JANEIRO", "FEVEREIRO", "MARÇO", "ABRIL", "MAIO", "JUNHO",
	"JULHO", "AGOSTO", "SETEMBRO", "OUTUBRO", "NOVEMBRO", "DEZEMBRO",
}

// MonthSheetName returns the expected sheet name for a month, or "" if the
// month is out of range.
func MonthSheetName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthSheets[month-1]
}

// SheetNotFoundError reports that the workbook has no sheet for the
// requested month. Available carries the sheet names that do exist so the
// operator can see what was uploaded.
type SheetNotFoundError struct {
	Month     int
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("no sheet named %q for month %d (available: %s)",
		MonthSheetName(e.Month), e.Month, strings.Join(e.Available, ", "))
}

// Workbook wraps an open spreadsheet file.
type Workbook struct {
	f *excelize.File
}

// OpenWorkbook opens a spreadsheet from disk.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &Workbook{f: f}, nil
}

// OpenWorkbookReader opens a spreadsheet from a reader (e.g. an upload body).
func OpenWorkbookReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &Workbook{f: f}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Rows returns an iterator over the data rows of the sheet for the given
// month. The sheet is resolved by case-insensitive match against the fixed
// month names; the header row (index 0) is skipped. The iterator is lazy and
// cannot be restarted.
func (w *Workbook) Rows(month int) (*RowIter, error) {
	want := MonthSheetName(month)
	if want == "" {
		return nil, fmt.Errorf("month out of range: %d", month)
	}

	available := w.f.GetSheetList()
	var sheetName string
	for _, name := range available {
		if strings.EqualFold(strings.TrimSpace(name), want) {
			sheetName = name
			break
		}
	}
	if sheetName == "" {
		return nil, &SheetNotFoundError{Month: month, Available: available}
	}

	rows, err := w.f.Rows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	return &RowIter{rows: rows}, nil
}

// RowIter yields raw cell rows from one sheet, skipping the header row.
type RowIter struct {
	rows   *excelize.Rows
	cur    []string
	line   int // 0-based row index in the sheet
	err    error
	closed bool
}

// Next advances to the next data row. It returns false at the end of the
// sheet or on error; check Err afterwards.
func (it *RowIter) Next() bool {
	for it.rows.Next() {
		cols, err := it.rows.Columns()
		if err != nil {
			it.err = err
			return false
		}
		it.line++
		if it.line == 1 {
			continue // header
		}
		it.cur = cols
		return true
	}
	it.err = it.rows.Error()
	return false
}

// Row returns the current raw row.
func (it *RowIter) Row() []string { return it.cur }

// Line returns the 1-based sheet row number of the current row.
func (it *RowIter) Line() int { return it.line }

// Err returns the first error encountered while iterating.
func (it *RowIter) Err() error { return it.err }

// Close releases the iterator's stream.
func (it *RowIter) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.rows.Close()
}
