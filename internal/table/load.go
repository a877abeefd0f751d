package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Schema names the columns a dataset must carry.
type Schema struct {
	// Timestamp is the observation time column.
	Timestamp string
	// Flag is the binary cleaning-event column.
	Flag string
	// Numeric lists the measurement columns that must parse as numbers.
	Numeric []string
}

// Required returns every column name the schema demands, in declaration order.
func (s Schema) Required() []string {
	var out []string
	if s.Timestamp != "" {
		out = append(out, s.Timestamp)
	}
	out = append(out, s.Numeric...)
	if s.Flag != "" {
		out = append(out, s.Flag)
	}
	return out
}

// Options controls how input files are read.
type Options struct {
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// DecimalSeparator for numbers; 0 auto-detects per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Sheet selects an XLSX sheet by name; SheetIndex (1-based) is used when Sheet is empty.
	Sheet      string
	SheetIndex int
}

// DefaultOptions returns the options used for plain dot-decimal CSV exports.
func DefaultOptions() Options {
	return Options{DecimalSeparator: '.', SheetIndex: 1}
}

// Load reads a CSV/TSV or XLSX file into a Table and checks it against schema.
func Load(path string, schema Schema, opt Options) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadXLSX(path, schema, opt)
	}
	return loadCSV(path, schema, opt)
}

func loadCSV(path string, schema Schema, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = SniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyTable)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return FromRecords(filepath.Base(path), header, records, schema, opt)
}

func loadXLSX(path string, schema Schema, opt Options) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	sheet := ""
	if opt.Sheet != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				opt.Sheet, filepath.Base(path), strings.Join(sheets, ", "))
		}
	} else {
		idx := opt.SheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return nil, fmt.Errorf("sheet index %d out of range: workbook '%s' has %d sheets", idx, filepath.Base(path), len(sheets))
		}
		sheet = sheets[idx-1]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyTable)
	}
	return FromRecords(filepath.Base(path), rows[0], rows[1:], schema, opt)
}

// FromRecords builds a Table from a header and raw records. Required columns
// are checked before any cell is parsed; short records are padded with
// missing cells.
func FromRecords(name string, header []string, records [][]string, schema Schema, opt Options) (*Table, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTable)
	}
	ncol := len(header)
	t := &Table{Name: name, rows: len(records), Columns: make([]*Column, ncol)}
	seen := make(map[string]struct{}, ncol)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		key := strings.ToLower(h)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%s: duplicate column %q", name, h)
		}
		seen[key] = struct{}{}
		t.Columns[i] = &Column{Name: h, Kind: KindText, Cells: make([]Cell, len(records))}
	}

	var missing []string
	for _, req := range schema.Required() {
		if !t.Has(req) {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{File: name, Missing: missing}
	}

	for i, rec := range records {
		if len(rec) > ncol {
			return nil, fmt.Errorf("%s: row %d has %d fields, header has %d", name, i+1, len(rec), ncol)
		}
		for j := range t.Columns {
			raw := ""
			if j < len(rec) {
				raw = rec[j]
			}
			t.Columns[j].Cells[i] = Cell{Raw: raw, Missing: IsMissing(raw)}
		}
	}

	declared := map[string]Kind{}
	if schema.Timestamp != "" {
		c, _ := t.Column(schema.Timestamp)
		declared[c.Name] = KindTimestamp
	}
	if schema.Flag != "" {
		c, _ := t.Column(schema.Flag)
		declared[c.Name] = KindFlag
	}
	for _, n := range schema.Numeric {
		c, _ := t.Column(n)
		declared[c.Name] = KindNumeric
	}

	for _, c := range t.Columns {
		kind, ok := declared[c.Name]
		switch {
		case ok && kind == KindTimestamp:
			c.Kind = KindTimestamp
		case ok:
			if err := parseColumn(c, opt); err != nil {
				return nil, err
			}
			c.Kind = kind
		default:
			inferKind(c, opt)
		}
	}
	return t, nil
}

func parseColumn(c *Column, opt Options) error {
	for i := range c.Cells {
		cell := &c.Cells[i]
		if cell.Missing {
			continue
		}
		v, ok := ParseNumber(cell.Raw, opt.DecimalSeparator, opt.ThousandsSeparator)
		if !ok {
			return &ValueError{Row: i + 1, Column: c.Name, Value: cell.Raw}
		}
		cell.Num = v
	}
	return nil
}

// inferKind marks a column numeric when it has at least one value and every
// non-missing value parses; otherwise it stays text.
func inferKind(c *Column, opt Options) {
	vals := make([]float64, len(c.Cells))
	present := 0
	for i, cell := range c.Cells {
		if cell.Missing {
			continue
		}
		v, ok := ParseNumber(cell.Raw, opt.DecimalSeparator, opt.ThousandsSeparator)
		if !ok {
			return
		}
		vals[i] = v
		present++
	}
	if present == 0 {
		return
	}
	for i := range c.Cells {
		c.Cells[i].Num = vals[i]
	}
	c.Kind = KindNumeric
}

// SniffDelimiter picks a delimiter from the file extension.
func SniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}
