package conflict

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/vigilpt/vigil/internal/match"
	"github.com/vigilpt/vigil/internal/model"
	"github.com/vigilpt/vigil/internal/registry"
)

// Analyzer composes registry lookups with a public-entity classifier to
// surface conflicts of interest: political officeholders whose associated
// companies win public contracts.
type Analyzer struct {
	registry   *registry.Registry
	classifier PublicEntityClassifier
	lookups    *gocache.Cache // Memoized person→contracts aggregates
	now        func() time.Time
}

// NewAnalyzer creates a conflict analyzer over the given registry
func NewAnalyzer(reg *registry.Registry, classifier PublicEntityClassifier) *Analyzer {
	return &Analyzer{
		registry:   reg,
		classifier: classifier,
		lookups:    gocache.New(10*time.Minute, 30*time.Minute),
		now:        time.Now,
	}
}

// Analyze walks every officeholder in the registry and inspects the
// contracts reachable through their associated companies. snapshotID
// identifies the contract snapshot for lookup memoization; pass "" to
// bypass the cache.
func (a *Analyzer) Analyze(ctx context.Context, snapshotID string, contracts []model.Contract) ([]model.ConflictFinding, error) {
	var findings []model.ConflictFinding
	generatedAt := a.now().UTC()

	for _, person := range a.registry.Persons() {
		if person.PoliticalPosition == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		aggregate, err := a.contractsFor(person.Name, snapshotID, contracts)
		if err != nil {
			continue // Person disappeared between listing and lookup
		}

		for _, company := range aggregate.Associated {
			for _, contract := range company.Contracts {
				if f, ok := a.evaluate(person, company.Company, contract); ok {
					f.GeneratedAt = generatedAt
					findings = append(findings, f)
				}
			}
		}
	}

	return findings, nil
}

// evaluate applies the conflict rules to one contract reached via an
// associated company
func (a *Analyzer) evaluate(person model.Person, company model.Company, contract model.Contract) (model.ConflictFinding, bool) {
	finding := model.ConflictFinding{
		PersonName:  person.Name,
		Position:    person.PoliticalPosition,
		CompanyName: company.Name,
		ContractID:  contract.ID,
		Authority:   contract.Authority.Name,
	}

	if a.sameEntity(person, contract.Authority) {
		finding.Severity = model.SeverityCritical
		finding.Rationale = model.RationaleSameEntitySelfAward
		finding.Description = fmt.Sprintf(
			"%s (%s) is linked to %q, awarded contract %s by the very entity of their office (%s)",
			person.Name, person.PoliticalPosition, company.Name, contract.ID, contract.Authority.Name)
		return finding, true
	}

	if a.classifier.IsPublic(contract.Authority) {
		finding.Severity = model.SeverityHigh
		finding.Rationale = model.RationalePoliticalOfficeHolderBeneficiary
		finding.Description = fmt.Sprintf(
			"%s (%s) is linked to %q, awarded contract %s by public entity %s",
			person.Name, person.PoliticalPosition, company.Name, contract.ID, contract.Authority.Name)
		return finding, true
	}

	// Non-public counterparties are out of scope
	return model.ConflictFinding{}, false
}

// sameEntity reports whether the contracting authority is the entity bound
// to the person's office: explicit binding first, then a name-overlap
// heuristic in either direction.
func (a *Analyzer) sameEntity(person model.Person, authority model.Party) bool {
	if person.OfficeEntity == "" {
		return false
	}
	if match.Normalize(person.OfficeEntity) == match.Normalize(authority.Name) {
		return true
	}
	return match.Contains(authority.Name, person.OfficeEntity) ||
		match.Contains(person.OfficeEntity, authority.Name)
}

// contractsFor memoizes registry lookups per (person, registry version,
// snapshot). Registry writes bump the version, invalidating stale entries
// naturally.
func (a *Analyzer) contractsFor(personName, snapshotID string, contracts []model.Contract) (registry.PersonContracts, error) {
	if snapshotID == "" {
		return a.registry.ContractsForPerson(personName, contracts)
	}

	key := fmt.Sprintf("%s|v%d|%s", match.Normalize(personName), a.registry.Version(), snapshotID)
	if cached, ok := a.lookups.Get(key); ok {
		return cached.(registry.PersonContracts), nil
	}

	aggregate, err := a.registry.ContractsForPerson(personName, contracts)
	if err != nil {
		return registry.PersonContracts{}, err
	}
	a.lookups.Set(key, aggregate, gocache.DefaultExpiration)
	return aggregate, nil
}
