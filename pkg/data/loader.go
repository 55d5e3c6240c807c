package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one raw observation keyed by column name.
type Record map[string]string

// Get returns the trimmed value of a column and whether it is present and non-empty.
func (r Record) Get(name string) (string, bool) {
	v, ok := r[name]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

var (
	ErrNoHeader = errors.New("csv has no header row")
	ErrNoRows   = errors.New("csv has no data rows")
)

// ReadCSV reads a header row followed by data rows. Every row must have the
// same number of columns as the header.
func ReadCSV(r io.Reader) (header []string, records []Record, err error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true

	header, err = reader.Read()
	if err == io.EOF {
		return nil, nil, ErrNoHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", line, err)
		}
		row := make(Record, len(header))
		for i, h := range header {
			row[h] = rec[i]
		}
		records = append(records, row)
	}
	if len(records) == 0 {
		return header, nil, ErrNoRows
	}
	return header, records, nil
}

// LoadFile opens path and reads it with ReadCSV.
func LoadFile(path string) ([]string, []Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
