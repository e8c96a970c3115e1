package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth-analyzer/models"
	"networth-analyzer/utils"
)

const sampleCSV = `Column1,Column2,Column3,Column4
Name,Email,Phone Number,Net Worth
Alice,a@x.com,555-1111,$50 billion
Bob,,,$120 billion
Cara,,555-2222,invalid
`

func readAll(t *testing.T, pr *PersonReader) []*models.RawPerson {
	t.Helper()
	var out []*models.RawPerson
	for {
		p, err := pr.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, p)
	}
}

func TestPersonReaderReadsRows(t *testing.T) {
	pr, err := NewPersonReader(strings.NewReader(sampleCSV), utils.Discard())
	require.NoError(t, err)

	rows := readAll(t, pr)
	require.Len(t, rows, 3)
	assert.Equal(t, "Alice", rows[0].Name)
	assert.Equal(t, "a@x.com", rows[0].Email)
	assert.Equal(t, "555-1111", rows[0].Phone)
	assert.Equal(t, "$50 billion", rows[0].NetWorth)
	assert.Equal(t, 3, rows[0].Line)
	assert.Empty(t, rows[1].Email)
	assert.Equal(t, "invalid", rows[2].NetWorth)
	assert.Zero(t, pr.Skipped())
}

func TestPersonReaderLocatesColumnsByName(t *testing.T) {
	src := "a,b,c,d,e\nNet Worth,Extra,Phone Number,Name,Email\n$3 billion,x,555,Dee,d@x.com\n"
	pr, err := NewPersonReader(strings.NewReader(src), utils.Discard())
	require.NoError(t, err)

	rows := readAll(t, pr)
	require.Len(t, rows, 1)
	assert.Equal(t, models.RawPerson{Name: "Dee", Email: "d@x.com", Phone: "555", NetWorth: "$3 billion", Line: 3}, *rows[0])
}

func TestPersonReaderSkipsShortRows(t *testing.T) {
	src := sampleCSV + "Truncated,t@x.com\nEve,e@x.com,555-3333,$1 billion\n"
	pr, err := NewPersonReader(strings.NewReader(src), utils.Discard())
	require.NoError(t, err)

	rows := readAll(t, pr)
	require.Len(t, rows, 4)
	assert.Equal(t, "Eve", rows[3].Name)
	assert.Equal(t, 1, pr.Skipped())
}

func TestPersonReaderCountsBlankLines(t *testing.T) {
	src := "c1,c2,c3,c4\nName,Email,Phone Number,Net Worth\n" +
		"Alice,a@x.com,555-1111,$50 billion\n" +
		"\n" +
		"\n" +
		"\"Bob\nJr\",,,$120 billion\n" +
		"\n" +
		"Cara,,555-2222,invalid\n"
	pr, err := NewPersonReader(strings.NewReader(src), utils.Discard())
	require.NoError(t, err)

	rows := readAll(t, pr)
	require.Len(t, rows, 3)
	assert.Equal(t, "Bob\nJr", rows[1].Name)
	assert.Equal(t, 6, rows[1].Line)
	assert.Equal(t, 9, rows[2].Line)
	assert.Equal(t, 3, pr.Skipped())
}

func TestPersonReaderSchemaMismatch(t *testing.T) {
	src := "c1,c2,c3\nName,Email,Net Worth\nAlice,a@x.com,$1 billion\n"
	_, err := NewPersonReader(strings.NewReader(src), utils.Discard())

	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{ColumnPhone}, mismatch.Missing)
	assert.Contains(t, err.Error(), "'Phone Number'")
}

func TestPersonReaderEmptySource(t *testing.T) {
	_, err := NewPersonReader(strings.NewReader(""), utils.Discard())

	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenFileNotFound(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.csv"))

	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	rc, err := OpenFile(path)
	require.NoError(t, err)
	defer rc.Close()

	pr, err := NewPersonReader(rc, utils.Discard())
	require.NoError(t, err)
	assert.Len(t, readAll(t, pr), 3)
}
