// Package export writes batch reports as CSV, XLSX or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. An empty name falls back to the
// extension of path, then to CSV.
func ParseFormat(name, path string) (Format, error) {
	if name == "" {
		name = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if name == "" {
			return FormatCSV, nil
		}
	}
	switch f := Format(strings.ToLower(name)); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	default:
		return "", eris.Errorf("export: unsupported format %q", name)
	}
}

// Row is one exported line. The first four columns are the required
// input, resolved_category, status, message.
type Row struct {
	Input            string `csv:"input" json:"input"`
	ResolvedCategory string `csv:"resolved_category" json:"resolved_category"`
	Status           string `csv:"status" json:"status"`
	Message          string `csv:"message" json:"message"`
	URL              string `csv:"url" json:"url"`
	Reason           string `csv:"reason" json:"reason"`
	ContactEmail     string `csv:"contact_email" json:"contact_email"`
	Signals          string `csv:"signals" json:"signals"`
	MessageSource    string `csv:"message_source" json:"message_source"`
}

// Rows flattens a report into rows, one per item, in report order.
func Rows(report *model.BatchReport) []Row {
	rows := make([]Row, 0, len(report.Items))
	for _, it := range report.Items {
		row := Row{
			Input:            it.Input,
			ResolvedCategory: string(it.Category()),
			Status:           string(it.Status),
			Message:          it.MessageBody(),
			URL:              it.URL,
			Reason:           it.Reason,
			ContactEmail:     it.ContactEmail,
		}
		if it.Context != nil {
			row.Signals = strings.Join(it.Context.ConfidenceSignals, "; ")
		}
		if it.Message != nil {
			row.MessageSource = string(it.Message.Source)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteFile writes report to path in format.
func WriteFile(path string, format Format, report *model.BatchReport) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}

	switch format {
	case FormatXLSX:
		err = WriteXLSX(f, report)
	case FormatJSON:
		err = WriteJSON(f, report)
	default:
		err = WriteCSV(f, report)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = eris.Wrap(cerr, "export: close file")
	}
	return err
}

// WriteCSV writes a header and one record per item.
func WriteCSV(w io.Writer, report *model.BatchReport) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false

	if err := enc.EncodeHeader(Row{}); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, row := range Rows(report) {
		if err := enc.Encode(row); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// ReadCSV decodes rows written by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if eris.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "export: read csv header")
	}

	var rows []Row
	if err := dec.Decode(&rows); err != nil && !eris.Is(err, io.EOF) {
		return nil, eris.Wrap(err, "export: decode csv")
	}
	return rows, nil
}

// columns returns the csv header names of Row in order.
func columns() []string {
	header, err := csvutil.Header(Row{}, "csv")
	if err != nil {
		panic(err)
	}
	return header
}

// WriteXLSX writes a single "Outreach" sheet with the same columns as CSV.
func WriteXLSX(w io.Writer, report *model.BatchReport) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Outreach")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	addRow(sheet, columns())
	for _, r := range Rows(report) {
		addRow(sheet, []string{
			r.Input, r.ResolvedCategory, r.Status, r.Message,
			r.URL, r.Reason, r.ContactEmail, r.Signals, r.MessageSource,
		})
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// jsonReport is the JSON document layout: the full report plus flat rows.
type jsonReport struct {
	*model.BatchReport
	Summary model.BatchSummary `json:"summary"`
	Rows    []Row              `json:"rows"`
}

// WriteJSON writes the full report, its summary and the flat rows.
func WriteJSON(w io.Writer, report *model.BatchReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{BatchReport: report, Summary: report.Summary(), Rows: Rows(report)}); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}
