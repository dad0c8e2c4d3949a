// Package staging implements the CSV handoff format between the ingestion
// gateway and the reconciliation worker. The column order and date layout are
// part of the wire contract; existing staged objects depend on them.
package staging

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// DateLayout is the calendar-date format used in staged files and API payloads.
const DateLayout = "2006-01-02"

// Headers is the fixed column order of a staged batch.
var Headers = []string{
	"mrn",
	"first_name",
	"last_name",
	"birth_date",
	"visit_account_number",
	"visit_date",
	"reason",
}

// VisitRecord is one flat row of a staged batch. Dates are kept as
// DateLayout strings until the row reconciler parses them, so that a
// malformed date in a staged file surfaces as a row-level error rather than
// a decode failure for the whole batch.
type VisitRecord struct {
	MRN           string
	FirstName     string
	LastName      string
	BirthDate     string
	AccountNumber string
	VisitDate     string
	Reason        string
}

func (r VisitRecord) fields() []string {
	return []string{r.MRN, r.FirstName, r.LastName, r.BirthDate, r.AccountNumber, r.VisitDate, r.Reason}
}

func fromFields(fields []string) VisitRecord {
	return VisitRecord{
		MRN:           fields[0],
		FirstName:     fields[1],
		LastName:      fields[2],
		BirthDate:     fields[3],
		AccountNumber: fields[4],
		VisitDate:     fields[5],
		Reason:        fields[6],
	}
}

// Encode serializes records into a staged CSV document with the fixed header.
func Encode(records []VisitRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Headers); err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := w.Write(rec.fields()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Reader streams records out of a staged CSV document.
type Reader struct {
	cr *csv.Reader
}

// NewReader wraps r and consumes its header line, verifying the column order.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Headers)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading staged file header: %w", err)
	}
	for i, col := range Headers {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected staged file header %v", header)
		}
	}

	return &Reader{cr: cr}, nil
}

// Read returns the next record, or io.EOF when the document is exhausted.
func (r *Reader) Read() (VisitRecord, error) {
	fields, err := r.cr.Read()
	if err != nil {
		return VisitRecord{}, err
	}
	return fromFields(fields), nil
}

// Count returns the number of data rows in a staged document.
func Count(r io.Reader) (int, error) {
	sr, err := NewReader(r)
	if err != nil {
		return 0, err
	}

	n := 0
	for {
		if _, err := sr.Read(); err == io.EOF {
			return n, nil
		} else if err != nil {
			return 0, err
		}
		n++
	}
}

// ReadWindow returns up to limit records starting at the 0-based row offset,
// skipping the preceding rows without materializing them.
func ReadWindow(r io.Reader, offset, limit int) ([]VisitRecord, error) {
	sr, err := NewReader(r)
	if err != nil {
		return nil, err
	}

	for i := 0; i < offset; i++ {
		if _, err := sr.cr.Read(); err == io.EOF {
			return nil, nil
		} else if err != nil {
			return nil, err
		}
	}

	records := make([]VisitRecord, 0, limit)
	for len(records) < limit {
		rec, err := sr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}
