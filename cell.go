package ftsload

import (
	"strconv"
	"strings"
	"time"
)

// CellKind discriminates the variants of a Cell.
type CellKind int

// Cell variants, roughly the value classes a spreadsheet can hold.
const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellBool
	CellDate
)

// Cell is one spreadsheet cell as read from a workbook, before any
// schema-aware normalization. Exactly one field besides Kind is meaningful.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Bool   bool
	Date   time.Time
}

func textCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

func numberCell(f float64) Cell { return Cell{Kind: CellNumber, Number: f} }

// classifyCell turns a raw cell string into a Cell. Workbook readers hand
// back strings; anything that parses as a number is a number, everything
// else is text. Empty after trimming means the cell is blank.
//
// Number cells keep the raw string in Text: digit-only text fields
// (postal codes, reference numbers) must not round-trip through float64.
func classifyCell(s string) Cell {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Cell{Kind: CellEmpty}
	}

	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Cell{Kind: CellNumber, Number: f, Text: s}
	}

	return textCell(s)
}
