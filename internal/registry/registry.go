package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vigilpt/vigil/internal/match"
	"github.com/vigilpt/vigil/internal/model"
)

// ValidationError reports a rejected association or import row
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("association: %s: %s", e.Field, e.Reason)
}

// ErrPersonNotFound is returned by contract lookups for unknown persons
var ErrPersonNotFound = fmt.Errorf("person not found")

// Registry owns the person–company association graph. It is the only shared
// mutable state in the analysis core: writes are serialized against reads,
// and a read in progress never observes a partially applied batch import.
type Registry struct {
	mu           sync.RWMutex
	persons      map[string]model.Person  // Keyed by normalized name
	companies    map[string]model.Company // Keyed by normalized name
	associations []model.Association
	version      uint64
	matcher      match.Strategy
	now          func() time.Time
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		persons:   make(map[string]model.Person),
		companies: make(map[string]model.Company),
		matcher:   match.NewStrategy(),
		now:       time.Now,
	}
}

// Version increments on every successful write. Lookup caches key on it to
// stay consistent with the graph.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// AddAssociation upserts the person and company by canonical name and
// appends the directional association. Referenced entities are auto-created
// as stubs when missing; existing entries keep their data and gain any new
// non-empty fields.
func (r *Registry) AddAssociation(person model.Person, company model.Company, assoc model.Association) error {
	if person.Name == "" {
		return &ValidationError{Field: "person_name", Reason: "required"}
	}
	if company.Name == "" {
		return &ValidationError{Field: "company_name", Reason: "required"}
	}
	if !model.ValidRelation(assoc.Relation) {
		return &ValidationError{Field: "relation", Reason: fmt.Sprintf("unknown relation %q", assoc.Relation)}
	}
	if assoc.Percentage < 0 || assoc.Percentage > 100 {
		return &ValidationError{Field: "percentage", Reason: "must be within [0,100]"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsertPersonLocked(person)
	r.upsertCompanyLocked(company)

	assoc.PersonName = person.Name
	assoc.CompanyName = company.Name
	if assoc.AddedAt.IsZero() {
		assoc.AddedAt = r.now().UTC()
	}
	r.associations = append(r.associations, assoc)
	r.version++
	return nil
}

func (r *Registry) upsertPersonLocked(p model.Person) {
	key := match.Normalize(p.Name)
	existing, ok := r.persons[key]
	if !ok {
		r.persons[key] = p
		return
	}
	if existing.PoliticalPosition == "" {
		existing.PoliticalPosition = p.PoliticalPosition
	}
	if existing.Party == "" {
		existing.Party = p.Party
	}
	if existing.OfficeEntity == "" {
		existing.OfficeEntity = p.OfficeEntity
	}
	r.persons[key] = existing
}

func (r *Registry) upsertCompanyLocked(c model.Company) {
	key := match.Normalize(c.Name)
	existing, ok := r.companies[key]
	if !ok {
		r.companies[key] = c
		return
	}
	if existing.TaxID == "" {
		existing.TaxID = c.TaxID
	}
	r.companies[key] = existing
}

// AssociatedCompany pairs a company with the relation that links it
type AssociatedCompany struct {
	Company    model.Company
	Relation   model.RelationType
	Percentage float64
	Source     string
}

// PersonMatch is one search hit with the person's associated companies
type PersonMatch struct {
	Person    model.Person
	Companies []AssociatedCompany
}

// FindByPerson searches persons by case-insensitive partial name match
func (r *Registry) FindByPerson(query string) []PersonMatch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []PersonMatch
	for _, p := range r.persons {
		if !match.Contains(p.Name, query) {
			continue
		}
		matches = append(matches, PersonMatch{
			Person:    p,
			Companies: r.companiesForLocked(p.Name),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Person.Name < matches[j].Person.Name
	})
	return matches
}

// Persons returns every person that holds a political position
func (r *Registry) Persons() []model.Person {
	r.mu.RLock()
	defer r.mu.RUnlock()

	persons := make([]model.Person, 0, len(r.persons))
	for _, p := range r.persons {
		persons = append(persons, p)
	}
	sort.Slice(persons, func(i, j int) bool { return persons[i].Name < persons[j].Name })
	return persons
}

func (r *Registry) companiesForLocked(personName string) []AssociatedCompany {
	key := match.Normalize(personName)

	var companies []AssociatedCompany
	for _, a := range r.associations {
		if match.Normalize(a.PersonName) != key {
			continue
		}
		companies = append(companies, AssociatedCompany{
			Company:    r.companies[match.Normalize(a.CompanyName)],
			Relation:   a.Relation,
			Percentage: a.Percentage,
			Source:     a.Source,
		})
	}

	sort.Slice(companies, func(i, j int) bool {
		return companies[i].Company.Name < companies[j].Company.Name
	})
	return companies
}

// CompanyContracts lists a linked company's contracts, tagged with the
// relation that reaches it. When the company has no tax id and its display
// name maps to more than one distinct contractor tax id, Ambiguous is set
// instead of silently merging the entities.
type CompanyContracts struct {
	Company           model.Company
	Relation          model.RelationType
	Percentage        float64
	Contracts         []model.Contract
	TotalValue        decimal.Decimal
	Ambiguous         bool
	ConflictingTaxIDs []string
}

// PersonContracts aggregates every contract reachable from a person
type PersonContracts struct {
	Person     model.Person
	Direct     []model.Contract // Contractor matches the person's own name
	Associated []CompanyContracts
	TotalValue decimal.Decimal
	Total      int
}

// ContractsForPerson resolves the person's direct and associated contracts
// against a contract snapshot. Repeated calls over unchanged inputs return
// identical aggregates.
func (r *Registry) ContractsForPerson(personName string, contracts []model.Contract) (PersonContracts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	person, ok := r.persons[match.Normalize(personName)]
	if !ok {
		return PersonContracts{}, fmt.Errorf("%w: %q", ErrPersonNotFound, personName)
	}

	result := PersonContracts{Person: person, TotalValue: decimal.Zero}

	for _, c := range contracts {
		if r.matcher.Matches(c.Contractor, person.Name, "") {
			result.Direct = append(result.Direct, c)
			result.TotalValue = result.TotalValue.Add(c.Value)
			result.Total++
		}
	}

	for _, linked := range r.companiesForLocked(person.Name) {
		cc := CompanyContracts{
			Company:    linked.Company,
			Relation:   linked.Relation,
			Percentage: linked.Percentage,
			TotalValue: decimal.Zero,
		}

		taxIDs := make(map[string]struct{})
		for _, c := range contracts {
			if !r.matcher.Matches(c.Contractor, linked.Company.Name, linked.Company.TaxID) {
				continue
			}
			cc.Contracts = append(cc.Contracts, c)
			cc.TotalValue = cc.TotalValue.Add(c.Value)
			if linked.Company.TaxID == "" && c.Contractor.TaxID != "" {
				taxIDs[c.Contractor.TaxID] = struct{}{}
			}
		}

		if len(taxIDs) > 1 {
			cc.Ambiguous = true
			for id := range taxIDs {
				cc.ConflictingTaxIDs = append(cc.ConflictingTaxIDs, id)
			}
			sort.Strings(cc.ConflictingTaxIDs)
		}

		result.Associated = append(result.Associated, cc)
		result.TotalValue = result.TotalValue.Add(cc.TotalValue)
		result.Total += len(cc.Contracts)
	}

	return result, nil
}

// Associations returns a snapshot copy of every association
func (r *Registry) Associations() []model.Association {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Association, len(r.associations))
	copy(out, r.associations)
	return out
}
