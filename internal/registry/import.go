package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vigilpt/vigil/internal/model"
)

// Recognized import columns. Unrecognized columns are ignored.
const (
	colPersonName        = "personname"
	colPoliticalPosition = "politicalposition"
	colParty             = "party"
	colOfficeEntity      = "officeentity"
	colCompanyName       = "companyname"
	colCompanyTaxID      = "companytaxid"
	colRelationType      = "relationtype"
	colPercentage        = "percentage"
	colSource            = "source"
)

// RowError reports one rejected import row; the batch continues past it
type RowError struct {
	Row int // 1-based data row index
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

type importEntry struct {
	person  model.Person
	company model.Company
	assoc   model.Association
}

// ImportCSV reads tabular associations. The header row is required; each
// data row becomes one association. Rows are validated independently — a bad
// row is reported with its index and never fails the batch. Valid rows are
// applied under a single write lock, so a concurrent search never observes a
// partially applied import.
func (r *Registry) ImportCSV(reader io.Reader) (int, []RowError, error) {
	cr := csv.NewReader(reader)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return 0, nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[normalizeHeader(name)] = i
	}
	for _, required := range []string{colPersonName, colCompanyName, colRelationType} {
		if _, ok := cols[required]; !ok {
			return 0, nil, fmt.Errorf("header: missing required column %q", required)
		}
	}

	var entries []importEntry
	var rowErrs []RowError

	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: row, Err: err})
			continue
		}

		entry, err := parseRow(record, cols)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: row, Err: err})
			continue
		}
		entries = append(entries, entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	for _, e := range entries {
		r.upsertPersonLocked(e.person)
		r.upsertCompanyLocked(e.company)
		e.assoc.PersonName = e.person.Name
		e.assoc.CompanyName = e.company.Name
		e.assoc.AddedAt = now
		r.associations = append(r.associations, e.assoc)
	}
	if len(entries) > 0 {
		r.version++
	}

	return len(entries), rowErrs, nil
}

func parseRow(record []string, cols map[string]int) (importEntry, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	personName := field(colPersonName)
	if personName == "" {
		return importEntry{}, &ValidationError{Field: "personName", Reason: "required"}
	}
	companyName := field(colCompanyName)
	if companyName == "" {
		return importEntry{}, &ValidationError{Field: "companyName", Reason: "required"}
	}
	rawRelation := field(colRelationType)
	relation, ok := model.ParseRelation(rawRelation)
	if !ok {
		return importEntry{}, &ValidationError{Field: "relationType", Reason: fmt.Sprintf("unknown relation %q", rawRelation)}
	}

	percentage := 0.0
	if raw := field(colPercentage); raw != "" {
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return importEntry{}, &ValidationError{Field: "percentage", Reason: fmt.Sprintf("not a number: %q", raw)}
		}
		if parsed < 0 || parsed > 100 {
			return importEntry{}, &ValidationError{Field: "percentage", Reason: "must be within [0,100]"}
		}
		percentage = parsed
	}

	return importEntry{
		person: model.Person{
			Name:              personName,
			PoliticalPosition: field(colPoliticalPosition),
			Party:             field(colParty),
			OfficeEntity:      field(colOfficeEntity),
		},
		company: model.Company{
			Name:  companyName,
			TaxID: field(colCompanyTaxID),
		},
		assoc: model.Association{
			Relation:   relation,
			Percentage: percentage,
			Source:     field(colSource),
		},
	}, nil
}

// normalizeHeader canonicalizes a header cell: lowercase with separators
// stripped, so "person_name", "Person Name" and "personName" all match
func normalizeHeader(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}
