package provision

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WorkbookOptions selects the composer mode. With TemplatePath unset
// a fresh summary sheet is built; otherwise records are merged into
// the named sheet of the template workbook.
type WorkbookOptions struct {
	TemplatePath  string
	TemplateSheet string
}

type WorkbookRow struct {
	Record   Record
	Password string
}

const (
	summarySheet = "Rollemapping"

	// Template geometry: the rows above hold instructions and import
	// metadata maintained by the telephony vendor.
	templateStartRow = 11
)

// templatePresets are constant per-row values the downstream importer
// requires verbatim on every device row.
var templatePresets = map[string]any{
	"timezone": "W. Europe Standard Time",
	"status":   "Active",
	"enabled":  true,
}

var (
	summaryColumns = map[string]string{
		"name":     "A",
		"group":    "B",
		"number":   "C",
		"password": "D",
	}
	templateColumns = map[string]string{
		"number":   "A",
		"name":     "B",
		"password": "C",
		"timezone": "D",
		"status":   "E",
		"enabled":  "F",
	}
)

// ComposeWorkbook projects rows into a spreadsheet, one row per
// record in sequence order. The caller owns the returned file.
func ComposeWorkbook(opts WorkbookOptions, rows []WorkbookRow) (*excelize.File, error) {
	if opts.TemplatePath != "" {
		return composeTemplate(opts, rows)
	}
	return composeSummary(rows)
}

func composeSummary(rows []WorkbookRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := map[string]any{
		"name":     "Rollenavn",
		"group":    "HL-kode",
		"number":   "Nummer",
		"password": "Passord",
	}
	w := &sheetWriter{file: f, sheet: summarySheet, columns: summaryColumns, next: 1}
	if err := w.writeRow(headers); err != nil {
		_ = f.Close()
		return nil, err
	}
	for _, row := range rows {
		fields := map[string]any{
			"name":     row.Record.Name,
			"group":    "HL " + strings.ToUpper(row.Record.GroupCode),
			"number":   row.Record.Number,
			"password": row.Password,
		}
		if err := w.writeRow(fields); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

func composeTemplate(opts WorkbookOptions, rows []WorkbookRow) (*excelize.File, error) {
	f, err := excelize.OpenFile(opts.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("Kunne ikke åpne malfilen: %w", err)
	}
	idx, err := f.GetSheetIndex(opts.TemplateSheet)
	if err != nil || idx < 0 {
		_ = f.Close()
		return nil, fmt.Errorf("Arket %q mangler i malfilen.", opts.TemplateSheet)
	}

	w := &sheetWriter{
		file:    f,
		sheet:   opts.TemplateSheet,
		columns: templateColumns,
		presets: templatePresets,
		next:    templateStartRow,
	}
	for _, row := range rows {
		fields := map[string]any{
			"number":   row.Record.Number,
			"name":     row.Record.Name,
			"password": row.Password,
		}
		if err := w.writeRow(fields); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

// sheetWriter writes logical field maps as consecutive sheet rows,
// keeping cell coordinates out of the composers. Presets are merged
// into every row.
type sheetWriter struct {
	file    *excelize.File
	sheet   string
	columns map[string]string
	presets map[string]any
	next    int
}

func (w *sheetWriter) writeRow(fields map[string]any) error {
	row := w.next
	w.next++

	write := func(field string, value any) error {
		column, ok := w.columns[field]
		if !ok {
			return fmt.Errorf("no column mapped for field %q", field)
		}
		cell := column + strconv.Itoa(row)
		if err := w.file.SetCellValue(w.sheet, cell, value); err != nil {
			return fmt.Errorf("set %s: %w", cell, err)
		}
		return nil
	}

	for field, value := range fields {
		if err := write(field, value); err != nil {
			return err
		}
	}
	for field, value := range w.presets {
		if _, overridden := fields[field]; overridden {
			continue
		}
		if err := write(field, value); err != nil {
			return err
		}
	}
	return nil
}
