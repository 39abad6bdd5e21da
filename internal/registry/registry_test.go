package registry

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vigilpt/vigil/internal/model"
)

func eur(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func contractFor(id, contractor, taxID string, value int64) model.Contract {
	return model.Contract{
		ID:              id,
		Authority:       model.Party{Name: "Câmara Municipal de Braga"},
		Contractor:      model.Party{Name: contractor, TaxID: taxID},
		Value:           eur(value),
		PublicationDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Procedure:       model.ProcedureDirectAward,
	}
}

func TestAddAssociation_RoundTrip(t *testing.T) {
	r := New()

	err := r.AddAssociation(
		model.Person{Name: "X"},
		model.Company{Name: "Y"},
		model.Association{Relation: model.RelationOwner},
	)
	if err != nil {
		t.Fatalf("AddAssociation: %v", err)
	}

	// Case-insensitive search must find X
	matches := r.FindByPerson("x")
	if len(matches) != 1 {
		t.Fatalf("expected one match for %q, got %d", "x", len(matches))
	}
	if matches[0].Person.Name != "X" {
		t.Errorf("expected person X, got %q", matches[0].Person.Name)
	}
	if len(matches[0].Companies) != 1 || matches[0].Companies[0].Company.Name != "Y" {
		t.Errorf("expected company Y listed, got %+v", matches[0].Companies)
	}
	if matches[0].Companies[0].Relation != model.RelationOwner {
		t.Errorf("expected owner relation, got %s", matches[0].Companies[0].Relation)
	}
}

func TestAddAssociation_Validation(t *testing.T) {
	r := New()

	var vErr *ValidationError

	err := r.AddAssociation(model.Person{}, model.Company{Name: "Y"}, model.Association{Relation: model.RelationOwner})
	if !errors.As(err, &vErr) {
		t.Errorf("expected ValidationError for missing person name, got %v", err)
	}

	err = r.AddAssociation(model.Person{Name: "X"}, model.Company{Name: "Y"}, model.Association{Relation: "cousin"})
	if !errors.As(err, &vErr) {
		t.Errorf("expected ValidationError for unknown relation, got %v", err)
	}

	err = r.AddAssociation(model.Person{Name: "X"}, model.Company{Name: "Y"},
		model.Association{Relation: model.RelationOwner, Percentage: 120})
	if !errors.As(err, &vErr) {
		t.Errorf("expected ValidationError for percentage out of range, got %v", err)
	}
}

func TestAddAssociation_StubEnrichment(t *testing.T) {
	r := New()

	// First reference creates a stub without position
	if err := r.AddAssociation(model.Person{Name: "Ana Melo"}, model.Company{Name: "Alfa"},
		model.Association{Relation: model.RelationPartner}); err != nil {
		t.Fatal(err)
	}
	// Second reference carries the position; the stub gains it
	if err := r.AddAssociation(model.Person{Name: "Ana Melo", PoliticalPosition: "Vereadora"},
		model.Company{Name: "Beta"}, model.Association{Relation: model.RelationOwner}); err != nil {
		t.Fatal(err)
	}

	matches := r.FindByPerson("ana melo")
	if len(matches) != 1 {
		t.Fatalf("expected one person, got %d", len(matches))
	}
	if matches[0].Person.PoliticalPosition != "Vereadora" {
		t.Errorf("expected enriched position, got %q", matches[0].Person.PoliticalPosition)
	}
	if len(matches[0].Companies) != 2 {
		t.Errorf("expected two associated companies, got %d", len(matches[0].Companies))
	}
}

func TestContractsForPerson_DirectAndAssociated(t *testing.T) {
	r := New()
	if err := r.AddAssociation(
		model.Person{Name: "João Silva"},
		model.Company{Name: "Obras Norte", TaxID: "501000111"},
		model.Association{Relation: model.RelationOwner, Percentage: 60},
	); err != nil {
		t.Fatal(err)
	}

	contracts := []model.Contract{
		contractFor("c1", "João Silva", "", 5000),           // Direct
		contractFor("c2", "Obras Norte", "501000111", 40000), // Associated by tax id
		contractFor("c3", "Terceiros Lda", "509", 9999),      // Unrelated
	}

	got, err := r.ContractsForPerson("João Silva", contracts)
	if err != nil {
		t.Fatalf("ContractsForPerson: %v", err)
	}

	if len(got.Direct) != 1 || got.Direct[0].ID != "c1" {
		t.Errorf("expected direct contract c1, got %+v", got.Direct)
	}
	if len(got.Associated) != 1 {
		t.Fatalf("expected one associated company, got %d", len(got.Associated))
	}
	assoc := got.Associated[0]
	if len(assoc.Contracts) != 1 || assoc.Contracts[0].ID != "c2" {
		t.Errorf("expected associated contract c2, got %+v", assoc.Contracts)
	}
	if assoc.Relation != model.RelationOwner || assoc.Percentage != 60 {
		t.Errorf("expected owner/60%% tagging, got %s/%v", assoc.Relation, assoc.Percentage)
	}
	if !got.TotalValue.Equal(eur(45000)) {
		t.Errorf("expected total 45000, got %s", got.TotalValue)
	}
}

func TestContractsForPerson_Idempotent(t *testing.T) {
	r := New()
	if err := r.AddAssociation(model.Person{Name: "P"}, model.Company{Name: "C"},
		model.Association{Relation: model.RelationPartner}); err != nil {
		t.Fatal(err)
	}

	contracts := []model.Contract{
		contractFor("c1", "C", "", 1000),
		contractFor("c2", "C", "", 2000),
	}

	first, err := r.ContractsForPerson("P", contracts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.ContractsForPerson("P", contracts)
	if err != nil {
		t.Fatal(err)
	}

	if first.Total != second.Total || !first.TotalValue.Equal(second.TotalValue) {
		t.Errorf("aggregates changed between identical calls: %d/%s vs %d/%s",
			first.Total, first.TotalValue, second.Total, second.TotalValue)
	}
	for i := range first.Associated[0].Contracts {
		if first.Associated[0].Contracts[i].ID != second.Associated[0].Contracts[i].ID {
			t.Error("contract ids changed between identical calls")
		}
	}
}

func TestContractsForPerson_AmbiguousTaxIDs(t *testing.T) {
	r := New()
	// Company recorded without a tax id
	if err := r.AddAssociation(model.Person{Name: "P"}, model.Company{Name: "Gémeos Lda"},
		model.Association{Relation: model.RelationOwner}); err != nil {
		t.Fatal(err)
	}

	contracts := []model.Contract{
		contractFor("c1", "Gémeos Lda", "501111222", 1000),
		contractFor("c2", "Gémeos Lda", "509333444", 2000), // Same display name, different NIF
	}

	got, err := r.ContractsForPerson("P", contracts)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Associated) != 1 {
		t.Fatalf("expected one associated company, got %d", len(got.Associated))
	}
	if !got.Associated[0].Ambiguous {
		t.Error("expected ambiguous marker for distinct tax ids sharing a name")
	}
	if len(got.Associated[0].ConflictingTaxIDs) != 2 {
		t.Errorf("expected both conflicting tax ids surfaced, got %v", got.Associated[0].ConflictingTaxIDs)
	}
}

func TestContractsForPerson_UnknownPerson(t *testing.T) {
	r := New()
	_, err := r.ContractsForPerson("ninguém", nil)
	if !errors.Is(err, ErrPersonNotFound) {
		t.Errorf("expected ErrPersonNotFound, got %v", err)
	}
}

func TestImportCSV_BadRowsDoNotFailBatch(t *testing.T) {
	r := New()

	input := `personName,politicalPosition,party,companyName,relationType,percentage,source,ignoredColumn
João Silva,Presidente da Câmara,PP,Obras Norte,owner,60,registo comercial,x
,Vereador,PP,Sem Pessoa,owner,10,fonte,x
Maria Costa,,,Beta Lda,partner,,jornal,x
Rui Gomes,,,Gama Lda,cousin,5,fonte,x
`

	imported, rowErrs, err := r.ImportCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if imported != 2 {
		t.Errorf("expected 2 imported rows, got %d", imported)
	}
	if len(rowErrs) != 2 {
		t.Fatalf("expected 2 row errors, got %d: %v", len(rowErrs), rowErrs)
	}
	if rowErrs[0].Row != 2 || rowErrs[1].Row != 4 {
		t.Errorf("expected errors on rows 2 and 4, got %d and %d", rowErrs[0].Row, rowErrs[1].Row)
	}

	if got := r.FindByPerson("joão silva"); len(got) != 1 {
		t.Errorf("expected imported person searchable, got %d matches", len(got))
	}
}

func TestImportCSV_MissingHeaderColumn(t *testing.T) {
	r := New()

	_, _, err := r.ImportCSV(strings.NewReader("personName,party\nJoão,PP\n"))
	if err == nil {
		t.Error("expected error for missing required columns")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	r := New()
	if err := r.AddAssociation(
		model.Person{Name: "João Silva", PoliticalPosition: "Presidente", OfficeEntity: "Câmara de Braga"},
		model.Company{Name: "Obras Norte", TaxID: "501000111"},
		model.Association{Relation: model.RelationOwner, Percentage: 60, Source: "registo"},
	); err != nil {
		t.Fatal(err)
	}
	if err := r.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := New()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	matches := loaded.FindByPerson("silva")
	if len(matches) != 1 {
		t.Fatalf("expected one person after reload, got %d", len(matches))
	}
	if matches[0].Person.OfficeEntity != "Câmara de Braga" {
		t.Errorf("office entity lost in round trip: %q", matches[0].Person.OfficeEntity)
	}
	if len(matches[0].Companies) != 1 || matches[0].Companies[0].Company.TaxID != "501000111" {
		t.Errorf("company data lost in round trip: %+v", matches[0].Companies)
	}
}

func TestLoad_MissingFileStartsEmpty(t *testing.T) {
	r := New()
	if err := r.Load(filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Errorf("missing snapshot must not be an error, got %v", err)
	}
	if len(r.Persons()) != 0 {
		t.Error("expected empty registry")
	}
}
