package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vigilpt/vigil/internal/model"
	"github.com/vigilpt/vigil/internal/registry"
	"github.com/vigilpt/vigil/internal/source"
)

var (
	assocPosition   string
	assocOffice     string
	assocParty      string
	assocTaxID      string
	assocRelation   string
	assocPercentage float64
	assocSource     string
)

// assocCmd groups association-registry management
var assocCmd = &cobra.Command{
	Use:   "assoc",
	Short: "Manage the person-company association registry",
	Long: `The association registry records links between political
officeholders and companies. The conflicts analyzer reads it to flag
contracts awarded to companies tied to people in public office.`,
}

var assocAddCmd = &cobra.Command{
	Use:   "add <person> <company>",
	Short: "Record an association between a person and a company",
	Long: `Add records one person-company link.

Example:
  vigil assoc add "João Silva" "Obras Norte" --relation owner --percentage 60 \
      --position "Presidente da Câmara" --office "Câmara Municipal de Braga"`,
	Args: cobra.ExactArgs(2),
	RunE: runAssocAdd,
}

var assocSearchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Search people in the registry by partial name",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssocSearch,
}

var assocContractsCmd = &cobra.Command{
	Use:   "contracts <person> <contracts.csv>",
	Short: "List contracts reachable from a person",
	Long: `Contracts shows everything a person touches in a contracts
export: contracts they won directly and contracts won by companies
they are associated with.`,
	Args: cobra.ExactArgs(2),
	RunE: runAssocContracts,
}

var assocImportCmd = &cobra.Command{
	Use:   "import <associations.csv>",
	Short: "Bulk-import associations from a CSV file",
	Long: `Import reads association rows from a CSV file. Rows that fail
validation are reported and skipped; valid rows are applied as one
batch.

Required columns: personName, companyName, relationType.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssocImport,
}

func init() {
	rootCmd.AddCommand(assocCmd)
	assocCmd.AddCommand(assocAddCmd)
	assocCmd.AddCommand(assocSearchCmd)
	assocCmd.AddCommand(assocContractsCmd)
	assocCmd.AddCommand(assocImportCmd)

	assocCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "association registry file (default: $HOME/.vigil/registry.json)")

	assocAddCmd.Flags().StringVar(&assocPosition, "position", "", "person's political position")
	assocAddCmd.Flags().StringVar(&assocOffice, "office", "", "entity where the person holds office")
	assocAddCmd.Flags().StringVar(&assocParty, "party", "", "person's political party")
	assocAddCmd.Flags().StringVar(&assocTaxID, "tax-id", "", "company tax id (NIF)")
	assocAddCmd.Flags().StringVar(&assocRelation, "relation", "other", "relation type (owner, partner, employee, other)")
	assocAddCmd.Flags().Float64Var(&assocPercentage, "percentage", 0, "ownership percentage")
	assocAddCmd.Flags().StringVar(&assocSource, "source", "", "where this association was documented")
}

// openRegistry loads the registry from disk
func openRegistry() (*registry.Registry, string, error) {
	path := registryPath
	if path == "" {
		path = defaultRegistryPath()
	}
	reg := registry.New()
	if err := reg.Load(path); err != nil {
		return nil, "", fmt.Errorf("load registry: %w", err)
	}
	return reg, path, nil
}

func runAssocAdd(cmd *cobra.Command, args []string) error {
	reg, path, err := openRegistry()
	if err != nil {
		return err
	}

	relation, ok := model.ParseRelation(assocRelation)
	if !ok {
		return fmt.Errorf("unknown relation type %q (owner, partner, employee, other)", assocRelation)
	}

	err = reg.AddAssociation(
		model.Person{
			Name:              args[0],
			PoliticalPosition: assocPosition,
			Party:             assocParty,
			OfficeEntity:      assocOffice,
		},
		model.Company{Name: args[1], TaxID: assocTaxID},
		model.Association{
			Relation:   relation,
			Percentage: assocPercentage,
			Source:     assocSource,
		},
	)
	if err != nil {
		return err
	}

	if err := reg.Save(path); err != nil {
		return err
	}
	fmt.Printf("✓ Recorded %s → %s (%s)\n", args[0], args[1], relation)
	return nil
}

func runAssocSearch(cmd *cobra.Command, args []string) error {
	reg, _, err := openRegistry()
	if err != nil {
		return err
	}

	matches := reg.FindByPerson(args[0])
	if len(matches) == 0 {
		fmt.Printf("No people matching %q\n", args[0])
		return nil
	}

	for _, m := range matches {
		fmt.Printf("%s", m.Person.Name)
		if m.Person.PoliticalPosition != "" {
			fmt.Printf(" — %s", m.Person.PoliticalPosition)
			if m.Person.OfficeEntity != "" {
				fmt.Printf(" (%s)", m.Person.OfficeEntity)
			}
		}
		fmt.Println()
		for _, c := range m.Companies {
			fmt.Printf("  %s", c.Company.Name)
			if c.Company.TaxID != "" {
				fmt.Printf(" [NIF %s]", c.Company.TaxID)
			}
			fmt.Printf(" — %s", c.Relation)
			if c.Percentage > 0 {
				fmt.Printf(" %.0f%%", c.Percentage)
			}
			fmt.Println()
		}
	}
	return nil
}

func runAssocContracts(cmd *cobra.Command, args []string) error {
	reg, _, err := openRegistry()
	if err != nil {
		return err
	}

	contracts, err := source.NewCSVProvider(args[1]).Contracts(context.Background())
	if err != nil {
		return err
	}

	result, err := reg.ContractsForPerson(args[0], contracts)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d contracts, total %s EUR\n\n", result.Person.Name, result.Total, result.TotalValue)

	if len(result.Direct) > 0 {
		fmt.Println("Direct:")
		for _, c := range result.Direct {
			fmt.Printf("  %s  %s ← %s  %s EUR\n", c.ID, c.Contractor.Name, c.Authority.Name, c.Value)
		}
	}
	for _, company := range result.Associated {
		if len(company.Contracts) == 0 {
			continue
		}
		fmt.Printf("Via %s (%s", company.Company.Name, company.Relation)
		if company.Percentage > 0 {
			fmt.Printf(" %.0f%%", company.Percentage)
		}
		fmt.Println("):")
		if company.Ambiguous {
			fmt.Printf("  ! multiple tax ids share this name: %v\n", company.ConflictingTaxIDs)
		}
		for _, c := range company.Contracts {
			fmt.Printf("  %s  %s  %s EUR\n", c.ID, c.Authority.Name, c.Value)
		}
	}
	return nil
}

func runAssocImport(cmd *cobra.Command, args []string) error {
	reg, path, err := openRegistry()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	imported, rowErrs, err := reg.ImportCSV(f)
	if err != nil {
		return err
	}

	for _, re := range rowErrs {
		fmt.Fprintf(os.Stderr, "✗ row %d: %v\n", re.Row, re.Err)
	}

	if imported > 0 {
		if err := reg.Save(path); err != nil {
			return err
		}
	}
	fmt.Printf("✓ Imported %d associations (%d rows rejected)\n", imported, len(rowErrs))
	return nil
}
