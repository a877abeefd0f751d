package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/irradiance-cli/internal/utils"
)

// SaveOptions controls how a Table is written.
type SaveOptions struct {
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// Sheet names the XLSX sheet; defaults to "Data".
	Sheet string
}

// Save writes t to path, replacing any existing file. The data goes to a
// temporary sibling first and is renamed into place.
func Save(t *Table, path string, opt SaveOptions) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return saveXLSX(t, path, opt)
	}
	b, err := EncodeCSV(t, opt.Delimiter, path)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}

// EncodeCSV renders t as delimited text with a header row.
func EncodeCSV(t *Table, delim rune, path string) ([]byte, error) {
	if delim == 0 {
		delim = SniffDelimiter(path)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delim
	if err := w.Write(t.Names()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < t.Len(); i++ {
		if err := w.Write(t.Row(i)); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func saveXLSX(t *Table, path string, opt SaveOptions) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := opt.Sheet
	if sheet == "" {
		sheet = "Data"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	header := make([]any, len(t.Columns))
	for j, c := range t.Columns {
		header[j] = c.Name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < t.Len(); i++ {
		row := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			cell := c.Cells[i]
			switch {
			case cell.Missing:
				row[j] = nil
			case c.Numeric():
				row[j] = cell.Num
			default:
				row[j] = cell.Raw
			}
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	tmp := path + ".tmp.xlsx"
	if err := f.SaveAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write xlsx: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// SameFile reports whether in and out name the same file on disk.
func SameFile(in, out string) bool {
	ai, err1 := filepath.Abs(in)
	ao, err2 := filepath.Abs(out)
	if err1 == nil && err2 == nil && ai == ao {
		return true
	}
	si, err := os.Stat(in)
	if err != nil {
		return false
	}
	so, err := os.Stat(out)
	if err != nil {
		return false
	}
	return os.SameFile(si, so)
}
