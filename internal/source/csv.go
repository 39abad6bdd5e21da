package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vigilpt/vigil/internal/model"
)

// Header aliases seen across open-data dataset vintages. First alias
// with a non-empty cell wins.
var csvAliases = map[string][]string{
	"id":            {"idcontrato", "id"},
	"authority":     {"nomeentidadeadjudicante", "adjudicante"},
	"authorityNIF":  {"nifentidadeadjudicante", "adjudicante_nif"},
	"contractor":    {"nomeentidadeadjudicataria", "adjudicataria"},
	"contractorNIF": {"nifentidadeadjudicataria", "adjudicataria_nif"},
	"value":         {"precocontratual", "valor"},
	"published":     {"datapublicacao", "datacelebracaocontrato", "data_contrato"},
	"procedure":     {"tipoprocedimento", "tipo_procedimento"},
	"contractType":  {"tipocontrato", "tipo_contrato"},
	"description":   {"descricao", "objectocontrato", "objeto_contrato"},
	"district":      {"distrito"},
	"county":        {"concelho"},
	"cpv":           {"cpv"},
	"termDays":      {"prazoexecucao", "prazo_execucao"},
}

// ParseCSV reads a contracts export. The delimiter is sniffed from the
// first chunk because the portal ships both semicolon and comma
// variants. Rows without a contract id are counted and skipped, never
// fatal.
func ParseCSV(ctx context.Context, r io.Reader) ([]model.Contract, LoadStats, error) {
	br := bufio.NewReader(r)
	sample, _ := br.Peek(4096)

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(sample)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("read header: %w", err)
	}

	columns := resolveColumns(header)
	if _, ok := columns["id"]; !ok {
		return nil, LoadStats{}, fmt.Errorf("no contract id column among %v", header)
	}

	var (
		contracts []model.Contract
		stats     LoadStats
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("row %d: %w", stats.Rows+2, err)
		}
		stats.Rows++

		c, ok := rowToContract(row, columns)
		if !ok {
			stats.Skipped++
			continue
		}
		contracts = append(contracts, c)
		stats.Loaded++
	}

	return contracts, stats, nil
}

func sniffDelimiter(sample []byte) rune {
	s := string(sample)
	if strings.Count(s, ";") > strings.Count(s, ",") {
		return ';'
	}
	return ','
}

// resolveColumns maps logical field names to column indexes via aliases
func resolveColumns(header []string) map[string]int {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[normalizeHeader(h)] = i
	}

	columns := make(map[string]int)
	for field, aliases := range csvAliases {
		for _, alias := range aliases {
			if idx, ok := byName[alias]; ok {
				columns[field] = idx
				break
			}
		}
	}
	return columns
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	h = strings.TrimPrefix(h, "\ufeff") // Excel exports carry a BOM
	return h
}

func rowToContract(row []string, columns map[string]int) (model.Contract, bool) {
	cell := func(field string) string {
		idx, ok := columns[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	id := cell("id")
	if id == "" {
		return model.Contract{}, false
	}

	c := model.Contract{
		ID:           id,
		Authority:    model.Party{Name: cell("authority"), TaxID: cell("authorityNIF")},
		Contractor:   model.Party{Name: cell("contractor"), TaxID: cell("contractorNIF")},
		Value:        parseMoney(cell("value")),
		Procedure:    model.ParseProcedureType(cell("procedure")),
		ContractType: cell("contractType"),
		Description:  cell("description"),
		District:     cell("district"),
		County:       cell("county"),
		CPVCode:      cell("cpv"),
	}
	if t, ok := parseDate(cell("published")); ok {
		c.PublicationDate = t
	}
	if days, err := strconv.Atoi(cell("termDays")); err == nil {
		c.ExecutionTermDays = days
	}
	return c, true
}

// parseMoney handles the portal's Portuguese formatting: thousands
// separated by dots, decimal comma, optional € and spaces.
// "1.234,56 €" → 1234.56. Unparseable values become zero and the
// contract is later skipped by value-dependent detectors.
func parseMoney(s string) decimal.Decimal {
	s = strings.NewReplacer(" ", "", "\u00a0", "", "€", "", "eur", "", "EUR", "").Replace(s)
	if s == "" {
		return decimal.Zero
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"20060102",
}

// WriteCSV writes contracts in the semicolon-delimited portal column
// layout, so a fetched dataset can be fed straight back into ParseCSV.
func WriteCSV(w io.Writer, contracts []model.Contract) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	header := []string{
		"idContrato", "nomeEntidadeAdjudicante", "nifEntidadeAdjudicante",
		"nomeEntidadeAdjudicataria", "nifEntidadeAdjudicataria",
		"precoContratual", "dataPublicacao", "tipoProcedimento",
		"tipoContrato", "objectoContrato", "distrito", "concelho",
		"cpv", "prazoExecucao",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, c := range contracts {
		published := ""
		if c.HasDate() {
			published = c.PublicationDate.Format("2006-01-02")
		}
		termDays := ""
		if c.ExecutionTermDays > 0 {
			termDays = strconv.Itoa(c.ExecutionTermDays)
		}
		row := []string{
			c.ID, c.Authority.Name, c.Authority.TaxID,
			c.Contractor.Name, c.Contractor.TaxID,
			c.Value.String(), published, string(c.Procedure),
			c.ContractType, c.Description, c.District, c.County,
			c.CPVCode, termDays,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write contract %s: %w", c.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
