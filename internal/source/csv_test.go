package source

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vigilpt/vigil/internal/model"
)

func TestParseCSV_SemicolonExport(t *testing.T) {
	input := strings.Join([]string{
		"idContrato;nomeEntidadeAdjudicante;nifEntidadeAdjudicante;nomeEntidadeAdjudicataria;nifEntidadeAdjudicataria;precoContratual;dataPublicacao;tipoProcedimento;objectoContrato",
		"1001;Câmara Municipal de Braga;501000000;Obras Norte;501000111;74.999,00 €;2024-03-01;Ajuste Direto;Pavimentação",
		"1002;Câmara Municipal de Braga;501000000;Beta Lda;509888777;12.500,50 €;15-04-2024;Concurso Público;Limpeza urbana",
	}, "\n")

	contracts, stats, err := ParseCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if stats.Loaded != 2 || stats.Skipped != 0 {
		t.Errorf("expected 2 loaded, got %+v", stats)
	}

	c := contracts[0]
	if c.ID != "1001" {
		t.Errorf("expected id 1001, got %q", c.ID)
	}
	if !c.Value.Equal(decimal.RequireFromString("74999")) {
		t.Errorf("expected 74999, got %s", c.Value)
	}
	if c.Authority.TaxID != "501000000" || c.Contractor.TaxID != "501000111" {
		t.Errorf("tax ids lost: %+v", c)
	}
	if c.Procedure != model.ProcedureDirectAward {
		t.Errorf("expected direct_award, got %s", c.Procedure)
	}

	// Day-first date variant
	d := contracts[1].PublicationDate
	if d.Year() != 2024 || d.Month() != 4 || d.Day() != 15 {
		t.Errorf("expected 2024-04-15, got %s", d)
	}
}

func TestParseCSV_LegacyColumnNames(t *testing.T) {
	input := "id,adjudicante,adjudicataria,valor,data_contrato\n7,Junta de Freguesia,Alfa Lda,1500,2023-01-10\n"

	contracts, _, err := ParseCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(contracts) != 1 || contracts[0].Contractor.Name != "Alfa Lda" {
		t.Errorf("legacy aliases not resolved: %+v", contracts)
	}
	if !contracts[0].Value.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("expected 1500, got %s", contracts[0].Value)
	}
}

func TestParseCSV_RowsWithoutIDAreSkipped(t *testing.T) {
	input := "idContrato,adjudicante,valor\n1,A,100\n,B,200\n3,C,300\n"

	contracts, stats, err := ParseCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(contracts) != 2 {
		t.Errorf("expected 2 contracts, got %d", len(contracts))
	}
	if stats.Rows != 3 || stats.Loaded != 2 || stats.Skipped != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestParseCSV_NoIDColumnFails(t *testing.T) {
	_, _, err := ParseCSV(context.Background(), strings.NewReader("foo,bar\n1,2\n"))
	if err == nil {
		t.Error("expected error for export without a contract id column")
	}
}

func TestParseCSV_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ParseCSV(ctx, strings.NewReader("idContrato\n1\n"))
	if err == nil {
		t.Error("expected context error")
	}
}

func TestWriteCSV_ReadableByParseCSV(t *testing.T) {
	in := []model.Contract{
		{
			ID:              "42",
			Authority:       model.Party{Name: "Município de Faro", TaxID: "506000000"},
			Contractor:      model.Party{Name: "Construções Sul", TaxID: "509111222"},
			Value:           decimal.RequireFromString("74999.5"),
			PublicationDate: mustDate(t, "2024-06-30"),
			Procedure:       model.ProcedureDirectAward,
			District:        "Faro",
		},
	}

	var buf strings.Builder
	if err := WriteCSV(&buf, in); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	out, _, err := ParseCSV(context.Background(), strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 contract back, got %d", len(out))
	}
	got := out[0]
	if got.ID != "42" || got.Contractor.TaxID != "509111222" || got.District != "Faro" {
		t.Errorf("fields lost in round trip: %+v", got)
	}
	if !got.Value.Equal(in[0].Value) {
		t.Errorf("expected value %s, got %s", in[0].Value, got.Value)
	}
	if got.Procedure != model.ProcedureDirectAward {
		t.Errorf("expected direct_award, got %s", got.Procedure)
	}
	if !got.PublicationDate.Equal(in[0].PublicationDate) {
		t.Errorf("expected date %s, got %s", in[0].PublicationDate, got.PublicationDate)
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestParseMoney(t *testing.T) {
	cases := map[string]string{
		"1.234,56 €": "1234.56",
		"75000":      "75000",
		"74999.50":   "74999.5",
		"12 500,00":  "12500",
		"":           "0",
		"n/a":        "0",
	}
	for in, want := range cases {
		if got := parseMoney(in); !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("parseMoney(%q) = %s, want %s", in, got, want)
		}
	}
}
