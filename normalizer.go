package ftsload

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/xerrors"
)

// Record holds the normalized values of one row, aligned with the columns
// of the Projection that produced it. Nil marks a null field.
type Record []any

// ValidationError reports that one row could not be normalized. The caller
// skips the row and continues.
type ValidationError struct {
	Row int
	Err error
}

func (e *ValidationError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }
func (e *ValidationError) Unwrap() error { return e.Err }

// Normalize converts one raw row into a Record following the projected
// column types. A row shorter than the projection gets trailing nulls;
// excess cells are ignored. Unparseable booleans, dates and numbers become
// null, never an error; only a structurally invalid cell fails the row.
func Normalize(p *Projection, row []Cell) (Record, error) {
	rec := make(Record, len(p.Columns))
	for i, col := range p.Columns {
		idx := p.cells[i]
		if idx >= len(row) {
			continue
		}

		v, err := convertCell(row[idx], col.Type)
		if err != nil {
			return nil, xerrors.Errorf("column %s: %w", col.Name, err)
		}
		rec[i] = v
	}

	return rec, nil
}

func convertCell(c Cell, t ColumnType) (any, error) {
	if c.Kind == CellEmpty {
		return nil, nil
	}

	switch t {
	case TypeBoolean:
		return convertBool(c), nil
	case TypeDate:
		return convertDate(c), nil
	case TypeNumeric:
		return convertNumber(c), nil
	case TypeInteger:
		return convertInteger(c), nil
	case TypeText:
		return convertText(c), nil
	default:
		return nil, xerrors.Errorf("unknown column type %q", string(t))
	}
}

func convertBool(c Cell) any {
	if c.Kind == CellBool {
		return c.Bool
	}
	if c.Kind != CellText {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(c.Text)) {
	case "yes", "y", "true":
		return true
	case "no", "n", "false":
		return false
	default:
		return nil
	}
}

// dateLayouts are tried in order against textual date cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
}

func convertDate(c Cell) any {
	switch c.Kind {
	case CellDate:
		return c.Date
	case CellNumber:
		// Dates in raw xlsx cells arrive as Excel serial numbers.
		t, err := excelize.ExcelDateToTime(c.Number, false)
		if err != nil {
			return nil
		}
		return t
	case CellText:
		s := strings.TrimSpace(c.Text)
		if s == "" || s == "-" {
			return nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return nil
	default:
		return nil
	}
}

// numberScrubber drops formatting noise from numeric cells: thousands
// separators, currency markers, and spaces of any flavor.
var numberScrubber = strings.NewReplacer(
	",", "",
	"€", "",
	"$", "",
	"%", "",
	" ", "",
	" ", "",
)

func parseNumber(c Cell) (float64, bool) {
	switch c.Kind {
	case CellNumber:
		return c.Number, true
	case CellText:
		f, err := strconv.ParseFloat(numberScrubber.Replace(strings.TrimSpace(c.Text)), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func convertNumber(c Cell) any {
	f, ok := parseNumber(c)
	if !ok {
		return nil
	}
	return f
}

func convertInteger(c Cell) any {
	f, ok := parseNumber(c)
	if !ok {
		return nil
	}
	return int64(f)
}

// textCleaner removes control runes and maps exotic spaces (non-breaking
// spaces show up in beneficiary names) to plain ones before trimming.
var textCleaner = transform.Chain(
	runes.Remove(runes.In(unicode.Cc)),
	runes.Map(func(r rune) rune {
		if unicode.Is(unicode.Zs, r) {
			return ' '
		}
		return r
	}),
)

func convertText(c Cell) any {
	var s string
	switch c.Kind {
	case CellText:
		s = c.Text
	case CellNumber:
		// Prefer the raw string when the reader kept it; re-rendering the
		// float would drop leading zeros and round long references.
		s = c.Text
		if s == "" {
			s = strconv.FormatFloat(c.Number, 'f', -1, 64)
		}
	case CellBool:
		s = strconv.FormatBool(c.Bool)
	case CellDate:
		s = c.Date.Format("2006-01-02")
	default:
		return nil
	}

	cleaned, _, err := transform.String(textCleaner, s)
	if err != nil {
		cleaned = s
	}

	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}

	return cleaned
}
