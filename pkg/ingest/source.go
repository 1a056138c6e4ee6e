package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// RowSource yields the denormalized rows of a run. Scan always starts
// from the beginning of the source, so every stage sees the full set.
// Structurally malformed records are logged and counted, not passed to
// fn; fn returning an error stops the scan.
type RowSource interface {
	Scan(ctx context.Context, fn func(Row) error) (dropped int, err error)
}

const (
	colSchoolName    = "SchoolName"
	colSchoolAddress = "SchoolAddress"
	colOrgName       = "OrganizationName"
	colUserEmail     = "UserEmail"
	colUserPhone     = "UserPhone"
	colUserHash      = "UserHash"
	colPostContent   = "PostContent"
	colTimestamp     = "Timestamp"
	colTag           = "Tag"
)

var requiredColumns = []string{
	colSchoolName,
	colOrgName,
	colUserEmail,
	colPostContent,
	colTimestamp,
}

// CSVSource reads rows from a CSV file. Cells equal to NullToken are
// treated as absent. Unknown columns are ignored; the export carries
// engagement columns the pipeline has no use for.
type CSVSource struct {
	Path      string
	NullToken string
	Log       *logrus.Logger
}

func NewCSVSource(path, nullToken string, log *logrus.Logger) *CSVSource {
	return &CSVSource{Path: path, NullToken: nullToken, Log: log}
}

func (s *CSVSource) Scan(ctx context.Context, fn func(Row) error) (int, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	br := stripUTF8BOM(bufio.NewReader(f))
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = false

	header, err := readHeader(r)
	if err != nil {
		return 0, err
	}
	idx := headerIndex(header)
	for _, req := range requiredColumns {
		if _, ok := idx[req]; !ok {
			return 0, fmt.Errorf("missing required header column: %s", req)
		}
	}

	dropped := 0
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return dropped, err
		}
		record, err := r.Read()
		if err == io.EOF {
			return dropped, nil
		}
		line++
		if err != nil {
			dropped++
			if s.Log != nil {
				s.Log.WithField("line", line).WithError(err).Warn("dropping malformed record")
			}
			continue
		}
		if !recordValidUTF8(record) {
			dropped++
			if s.Log != nil {
				s.Log.WithField("line", line).Warn("dropping record with invalid encoding")
			}
			continue
		}
		if err := fn(s.row(line, record, idx)); err != nil {
			return dropped, err
		}
	}
}

func (s *CSVSource) row(line int, record []string, idx map[string]int) Row {
	cell := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		v := strings.TrimSpace(record[i])
		if v == s.NullToken {
			return ""
		}
		return v
	}
	return Row{
		Line:          line,
		SchoolName:    cell(colSchoolName),
		SchoolAddress: cell(colSchoolAddress),
		OrgName:       cell(colOrgName),
		UserEmail:     cell(colUserEmail),
		UserPhone:     cell(colUserPhone),
		UserHash:      cell(colUserHash),
		PostContent:   cell(colPostContent),
		PostedAt:      cell(colTimestamp),
		Tag:           cell(colTag),
	}
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func readHeader(r *csv.Reader) ([]string, error) {
	h, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}
	for i := range h {
		h[i] = strings.TrimSpace(h[i])
		if !utf8.ValidString(h[i]) {
			return nil, fmt.Errorf("invalid header encoding")
		}
	}
	return h, nil
}

func headerIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, name := range header {
		m[name] = i
	}
	return m
}

func recordValidUTF8(record []string) bool {
	for _, cell := range record {
		if !utf8.ValidString(cell) {
			return false
		}
	}
	return true
}
