package gemana

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type ScanDate struct {
	Chamber  string
	ScanDate string
}

// ParseListOfScanDatesFile reads a tab delimited list of chamber name and
// scandate pairs. An optional ChamberName/scandate header, blank lines and
// lines starting with '#' are skipped.
func ParseListOfScanDatesFile(filename string) ([]ScanDate, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()

	return ParseListOfScanDates(file)
}

func ParseListOfScanDates(r io.Reader) ([]ScanDate, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var pairs []ScanDate
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading list of scandates: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if len(record) != 2 {
			return nil, fmt.Errorf("line %d: expected chamber name and scandate, got %d fields", line, len(record))
		}
		chamber := strings.TrimSpace(record[0])
		scandate := strings.TrimSpace(record[1])
		if first && strings.EqualFold(chamber, "ChamberName") && strings.EqualFold(scandate, "scandate") {
			first = false
			continue
		}
		first = false
		if chamber == "" || scandate == "" {
			return nil, fmt.Errorf("line %d: empty chamber name or scandate", line)
		}
		pairs = append(pairs, ScanDate{Chamber: chamber, ScanDate: scandate})
	}
	return pairs, nil
}
