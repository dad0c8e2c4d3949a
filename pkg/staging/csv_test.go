package staging

import (
	"bytes"
	"io"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []VisitRecord {
	return []VisitRecord{
		{MRN: "M1", FirstName: "Jane", LastName: "Doe", BirthDate: "1980-01-01", AccountNumber: "V1", VisitDate: "2024-03-01", Reason: "checkup"},
		{MRN: "M2", FirstName: "John", LastName: "Smith", BirthDate: "1975-06-15", AccountNumber: "V2", VisitDate: "2024-03-02", Reason: "follow-up"},
		{MRN: "M3", FirstName: "Ann", LastName: "Lee", BirthDate: "1990-12-31", AccountNumber: "V3", VisitDate: "2024-03-03", Reason: "lab work"},
	}
}

func TestEncode_HeaderOrder(t *testing.T) {
	c := qt.New(t)

	content, err := Encode(sampleRecords())
	c.Assert(err, qt.IsNil)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	c.Assert(lines, qt.HasLen, 4)
	// The column order is a wire contract with already-staged files.
	c.Assert(lines[0], qt.Equals, "mrn,first_name,last_name,birth_date,visit_account_number,visit_date,reason")
	c.Assert(lines[1], qt.Equals, "M1,Jane,Doe,1980-01-01,V1,2024-03-01,checkup")
}

func TestReader_Roundtrip(t *testing.T) {
	c := qt.New(t)

	records := sampleRecords()
	content, err := Encode(records)
	c.Assert(err, qt.IsNil)

	r, err := NewReader(bytes.NewReader(content))
	c.Assert(err, qt.IsNil)

	for _, want := range records {
		got, err := r.Read()
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, want)
	}
	_, err = r.Read()
	c.Assert(err, qt.Equals, io.EOF)
}

func TestNewReader_RejectsUnknownHeader(t *testing.T) {
	c := qt.New(t)

	_, err := NewReader(strings.NewReader("a,b,c,d,e,f,g\n"))
	c.Assert(err, qt.ErrorMatches, "unexpected staged file header.*")
}

func TestCount(t *testing.T) {
	c := qt.New(t)

	content, err := Encode(sampleRecords())
	c.Assert(err, qt.IsNil)

	n, err := Count(bytes.NewReader(content))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 3)

	empty, err := Encode(nil)
	c.Assert(err, qt.IsNil)
	n, err = Count(bytes.NewReader(empty))
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 0)
}

func TestReadWindow(t *testing.T) {
	content, err := Encode(sampleRecords())
	require.NoError(t, err)

	tests := []struct {
		name    string
		offset  int
		limit   int
		mrns    []string
	}{
		{name: "first chunk", offset: 0, limit: 2, mrns: []string{"M1", "M2"}},
		{name: "tail chunk", offset: 2, limit: 2, mrns: []string{"M3"}},
		{name: "offset beyond end", offset: 5, limit: 2, mrns: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ReadWindow(bytes.NewReader(content), tt.offset, tt.limit)
			require.NoError(t, err)
			require.Len(t, records, len(tt.mrns))
			for i, mrn := range tt.mrns {
				require.Equal(t, mrn, records[i].MRN)
			}
		})
	}
}
