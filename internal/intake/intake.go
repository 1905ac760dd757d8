// Package intake reads company references for a batch from CSV, XLSX or
// plain-text files, or from a comma-separated list.
package intake

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// urlColumns and nameColumns are matched case-insensitively against the
// header row. URL columns win over name columns within a row.
var (
	urlColumns  = []string{"url", "website", "domain", "site", "homepage", "company url", "company website"}
	nameColumns = []string{"company", "name", "company name", "organization"}
)

// ReadFile reads references from path, choosing the parser by extension:
// .csv, .tsv, .xlsx, anything else is read as one reference per line.
func ReadFile(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err := readXLSX(path)
		if err != nil {
			return nil, err
		}
		return FromRows(rows), nil
	case ".csv", ".tsv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "intake: open file")
		}
		defer func() { _ = f.Close() }()
		comma := ','
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			comma = '\t'
		}
		return ReadCSV(f, comma)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "intake: open file")
		}
		defer func() { _ = f.Close() }()
		return ReadLines(f)
	}
}

// ReadCSV reads references from delimited text with an optional header row.
func ReadCSV(r io.Reader, comma rune) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "intake: read csv")
	}
	return FromRows(rows), nil
}

// ReadLines reads one reference per line, skipping blank and # comment lines.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\uFEFF"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "intake: read lines")
	}
	return out, nil
}

// ParseList splits a comma- or newline-separated list.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FromRows picks one reference per row. When the first row names a known
// column it is treated as a header; otherwise the first column of every row
// is used. Rows without a value are skipped.
func FromRows(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}

	urlIdx, nameIdx := headerColumns(rows[0])
	if len(urlIdx) == 0 && len(nameIdx) == 0 {
		urlIdx = []int{0}
	} else {
		rows = rows[1:]
	}
	cols := append(urlIdx, nameIdx...)

	var out []string
	for _, row := range rows {
		for _, i := range cols {
			if v := cell(row, i); v != "" {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

func headerColumns(header []string) (urlIdx, nameIdx []int) {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		switch {
		case contains(urlColumns, h):
			urlIdx = append(urlIdx, i)
		case contains(nameColumns, h):
			nameIdx = append(nameIdx, i)
		}
	}
	return urlIdx, nameIdx
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(row[i], "\uFEFF"))
}

// Dedupe drops case-insensitive repeats, keeping the first occurrence.
func Dedupe(refs []string) []string {
	seen := make(map[string]bool, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		key := strings.ToLower(strings.TrimSpace(r))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// readXLSX returns the rows of the first sheet.
func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "intake: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("intake: xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = c.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
