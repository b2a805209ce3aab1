package ftsload

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

//go:embed columns.yaml
var columnsYAML []byte

// ColumnType is the canonical type of a destination column.
type ColumnType string

// Column types recognized by the catalog.
const (
	TypeText    ColumnType = "text"
	TypeNumeric ColumnType = "numeric"
	TypeInteger ColumnType = "integer"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
)

func (t ColumnType) sqlType() (string, error) {
	switch t {
	case TypeText:
		return "TEXT", nil
	case TypeNumeric:
		return "NUMERIC", nil
	case TypeInteger:
		return "INTEGER", nil
	case TypeBoolean:
		return "BOOLEAN", nil
	case TypeDate:
		return "DATE", nil
	default:
		return "", xerrors.Errorf("unknown column type %q", string(t))
	}
}

// Column describes one destination column and the spreadsheet header it is
// populated from.
type Column struct {
	Name   string     `yaml:"name"`
	Header string     `yaml:"header"`
	Type   ColumnType `yaml:"type"`
}

// Schema is the catalog of destination columns, the single source of truth
// for both table DDL and row normalization.
type Schema struct {
	Table   string   `yaml:"table"`
	Columns []Column `yaml:"columns"`

	byHeader map[string]Column
}

// LoadSchema parses the embedded column catalog.
func LoadSchema() (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(columnsYAML, &s); err != nil {
		return nil, xerrors.Errorf("failed to parse column catalog: %w", err)
	}
	if s.Table == "" || len(s.Columns) == 0 {
		return nil, xerrors.New("column catalog is empty")
	}

	s.byHeader = make(map[string]Column, len(s.Columns))
	for _, c := range s.Columns {
		if _, err := c.Type.sqlType(); err != nil {
			return nil, xerrors.Errorf("column %s: %w", c.Name, err)
		}
		s.byHeader[normalizeHeader(c.Header)] = c
	}

	return &s, nil
}

// normalizeHeader collapses internal whitespace runs and trims. Header
// spelling drifts across dataset years ("Commitment  total amount" carries
// a double space in some files).
func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(h), " ")
}

// DDL renders the idempotent CREATE TABLE statement for the catalog.
func (s *Schema) DDL() (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.Table)
	b.WriteString("\tid SERIAL PRIMARY KEY")

	for _, c := range s.Columns {
		t, err := c.Type.sqlType()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, ",\n\t%s %s", c.Name, t)
	}
	b.WriteString("\n)")

	return b.String(), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SchemaError reports that the destination table could not be ensured.
// Fatal: nothing is loaded after it.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("ensure schema: %v", e.Err) }
func (e *SchemaError) Unwrap() error { return e.Err }

// EnsureSchema creates the destination table if it does not exist. It never
// alters an existing table; an existing table is assumed compatible.
func EnsureSchema(ctx context.Context, db execer, s *Schema) error {
	ddl, err := s.DDL()
	if err != nil {
		return &SchemaError{Err: err}
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return &SchemaError{Err: xerrors.Errorf("failed to create table %s: %w", s.Table, err)}
	}

	log.Ctx(ctx).Info().Str("table", s.Table).Int("columns", len(s.Columns)).Msg("schema ensured")

	return nil
}

// Projection maps the columns found in one workbook's header row onto
// catalog columns. Column selection is per workbook: unknown headers are
// ignored and absent catalog columns are left out of the insert list.
type Projection struct {
	Columns []Column
	cells   []int // raw-row cell index per projected column
}

// Project matches a workbook header row against the catalog.
func (s *Schema) Project(header []string) (*Projection, error) {
	p := &Projection{}
	for idx, h := range header {
		c, ok := s.byHeader[normalizeHeader(h)]
		if !ok {
			continue
		}
		p.Columns = append(p.Columns, c)
		p.cells = append(p.cells, idx)
	}

	if len(p.Columns) == 0 {
		return nil, xerrors.New("header row matches no catalog columns")
	}

	return p, nil
}

func (p *Projection) columnNames() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	return names
}
