package ftsload

import (
	"bufio"
	"bytes"
	"io"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"gitlab.com/osaki-lab/iowrapper"
	"golang.org/x/xerrors"
)

// Workbook iterates the data rows of the first sheet of a spreadsheet.
// The header row is consumed at open time and exposed separately.
type Workbook interface {
	Header() []string
	Next() bool
	Row() ([]Cell, error)
	Close() error
}

var (
	zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}
	oleMagic = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
)

// OpenWorkbook sniffs the workbook format from its leading bytes and opens
// it: OOXML (.xlsx) or the legacy BIFF format (.xls). Anything else is
// reported as a corrupt workbook.
func OpenWorkbook(r io.Reader) (Workbook, error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(8)
	if err != nil {
		return nil, xerrors.Errorf("failed to read workbook magic: %w", err)
	}

	switch {
	case bytes.HasPrefix(magic, zipMagic):
		return openXLSX(br)
	case bytes.HasPrefix(magic, oleMagic):
		return openXLS(br)
	default:
		return nil, xerrors.New("not a recognized spreadsheet format")
	}
}

type xlsxWorkbook struct {
	file   *excelize.File
	rows   *excelize.Rows
	header []string
}

func openXLSX(r io.Reader) (Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, xerrors.Errorf("failed to open xlsx workbook: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, xerrors.New("workbook has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, xerrors.Errorf("failed to iterate sheet %q: %w", sheets[0], err)
	}

	if !rows.Next() {
		rows.Close()
		f.Close()
		return nil, xerrors.New("workbook has no header row")
	}
	header, err := rows.Columns()
	if err != nil {
		rows.Close()
		f.Close()
		return nil, xerrors.Errorf("failed to read header row: %w", err)
	}

	return &xlsxWorkbook{file: f, rows: rows, header: header}, nil
}

func (w *xlsxWorkbook) Header() []string { return w.header }

func (w *xlsxWorkbook) Next() bool { return w.rows.Next() }

func (w *xlsxWorkbook) Row() ([]Cell, error) {
	// Raw values keep numbers unformatted and dates as Excel serials; the
	// normalizer interprets them against the column schema.
	cols, err := w.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, xerrors.Errorf("failed to read row: %w", err)
	}

	cells := make([]Cell, len(cols))
	for i, c := range cols {
		cells[i] = classifyCell(c)
	}

	return cells, nil
}

func (w *xlsxWorkbook) Close() error {
	w.rows.Close()
	return w.file.Close()
}

type xlsWorkbook struct {
	sheet  *xls.WorkSheet
	header []string
	cur    int
}

func openXLS(r io.Reader) (Workbook, error) {
	wb, err := xls.OpenReader(iowrapper.NewSeeker(r), "utf-8")
	if err != nil {
		return nil, xerrors.Errorf("failed to open xls workbook: %w", err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, xerrors.New("workbook has no sheets")
	}

	header, err := xlsRow(sheet, 0)
	if err != nil || len(header) == 0 {
		return nil, xerrors.New("workbook has no header row")
	}
	texts := make([]string, len(header))
	for i, c := range header {
		texts[i] = c.Text
	}

	return &xlsWorkbook{sheet: sheet, header: texts, cur: 0}, nil
}

func (w *xlsWorkbook) Header() []string { return w.header }

func (w *xlsWorkbook) Next() bool {
	if w.cur >= int(w.sheet.MaxRow) {
		return false
	}
	w.cur++
	return true
}

func (w *xlsWorkbook) Row() ([]Cell, error) {
	return xlsRow(w.sheet, w.cur)
}

func (w *xlsWorkbook) Close() error { return nil }

// xlsRow reads one row of an xls sheet. The xls library panics on some
// malformed rows, so the access is fenced with recover and surfaced as a
// row error.
func xlsRow(sheet *xls.WorkSheet, i int) (cells []Cell, err error) {
	defer func() {
		if r := recover(); r != nil {
			cells = nil
			err = xerrors.Errorf("failed to read row %d: %v", i, r)
		}
	}()

	row := sheet.Row(i)
	if row == nil {
		return nil, nil
	}

	cells = make([]Cell, 0, row.LastCol())
	for j := 0; j < row.LastCol(); j++ {
		cells = append(cells, classifyCell(row.Col(j)))
	}

	return cells, nil
}
