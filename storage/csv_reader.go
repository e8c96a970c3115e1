package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"networth-analyzer/models"
	"networth-analyzer/utils"
)

// Column names expected in the second header row.
const (
	ColumnName     = "Name"
	ColumnEmail    = "Email"
	ColumnPhone    = "Phone Number"
	ColumnNetWorth = "Net Worth"
)

var requiredColumns = []string{ColumnName, ColumnEmail, ColumnPhone, ColumnNetWorth}

// ErrSourceNotFound is returned when the input source cannot be located.
var ErrSourceNotFound = errors.New("source not found")

// SchemaMismatchError reports required columns absent from the header row.
type SchemaMismatchError struct {
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	quoted := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		quoted[i] = "'" + m + "'"
	}
	return "missing expected column " + strings.Join(quoted, ", ")
}

// OpenFile opens a local source. A non-existent path yields ErrSourceNotFound.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("csv: open %q: %w", path, ErrSourceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	return f, nil
}

type columnIndex struct {
	name, email, phone, netWorth int
	highest                      int
}

// PersonReader streams RawPersons out of a two-header-row CSV source.
// Rows too short to hold every required column, and blank lines between
// rows, are skipped with a warning.
type PersonReader struct {
	csv      *csv.Reader
	cols     columnIndex
	logger   *utils.Logger
	skipped  int
	lastLine int // line on which the previous record ended
}

// NewPersonReader consumes both header rows and locates the required columns
// by name. The first header row is a generic label row and is ignored.
func NewPersonReader(r io.Reader, logger *utils.Logger) (*PersonReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("csv: read label row: %w", err)
	}
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header row: %w", err)
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	return &PersonReader{csv: cr, cols: cols, logger: logger, lastLine: endLine(cr, header)}, nil
}

// endLine returns the line on which the record just read by cr ends.
// Quoted fields may span lines.
func endLine(cr *csv.Reader, row []string) int {
	last := len(row) - 1
	line, _ := cr.FieldPos(last)
	return line + strings.Count(row[last], "\n")
}

func locateColumns(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := pos[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, &SchemaMismatchError{Missing: missing}
	}

	cols := columnIndex{
		name:     pos[ColumnName],
		email:    pos[ColumnEmail],
		phone:    pos[ColumnPhone],
		netWorth: pos[ColumnNetWorth],
	}
	cols.highest = max(cols.name, cols.email, cols.phone, cols.netWorth)
	return cols, nil
}

// Next returns the next well-formed row, or io.EOF once the source is exhausted.
func (pr *PersonReader) Next() (*models.RawPerson, error) {
	for {
		row, err := pr.csv.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read row: %w", err)
		}

		line, _ := pr.csv.FieldPos(0)
		// encoding/csv drops blank lines; recover them from the line gap
		if blank := line - pr.lastLine - 1; blank > 0 {
			pr.skipped += blank
			pr.logger.Warn("[csv] Skipping %d blank row(s) before line %d", blank, line)
		}
		pr.lastLine = endLine(pr.csv, row)

		if len(row) <= pr.cols.highest {
			pr.skipped++
			pr.logger.Warn("[csv] Skipping malformed row at line %d: %q", line, row)
			continue
		}

		return &models.RawPerson{
			Name:     row[pr.cols.name],
			Email:    row[pr.cols.email],
			Phone:    row[pr.cols.phone],
			NetWorth: row[pr.cols.netWorth],
			Line:     line,
		}, nil
	}
}

// Skipped returns the number of malformed rows dropped so far.
func (pr *PersonReader) Skipped() int {
	return pr.skipped
}
