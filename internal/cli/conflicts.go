package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigilpt/vigil/internal/pipeline"
	"github.com/vigilpt/vigil/internal/source"
)

var conflictsTimeout time.Duration

// conflictsCmd represents the conflicts command
var conflictsCmd = &cobra.Command{
	Use:   "conflicts <contracts.csv>",
	Short: "Report conflicts of interest only",
	Long: `Conflicts cross-references the association registry against a
contracts export, skipping the pattern detectors. Useful when the
registry changed but the contracts did not.

Example:
  vigil conflicts contratos_2024.csv
  vigil conflicts contratos_2024.csv --registry ./registry.json`,
	Args: cobra.ExactArgs(1),
	RunE: runConflicts,
}

func init() {
	rootCmd.AddCommand(conflictsCmd)

	conflictsCmd.Flags().DurationVar(&conflictsTimeout, "timeout", time.Minute, "analysis timeout")
	conflictsCmd.Flags().StringVar(&registryPath, "registry", "", "association registry file (default: $HOME/.vigil/registry.json)")
}

func runConflicts(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), conflictsTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	// Pattern detectors are off for this command
	for name := range cfg.Detector.Enabled {
		cfg.Detector.Enabled[name] = false
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	contracts, err := source.NewCSVProvider(args[0]).Contracts(ctx)
	if err != nil {
		return err
	}

	rep, err := p.Analyze(ctx, args[0], contracts)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if len(rep.Conflicts) == 0 {
		fmt.Println("No conflicts of interest found.")
		return nil
	}

	fmt.Printf("Found %d potential conflicts:\n\n", len(rep.Conflicts))
	for _, c := range rep.Conflicts {
		fmt.Printf("[%s] %s\n", c.Severity, c.Description)
		fmt.Printf("  person: %s (%s)\n", c.PersonName, c.Position)
		fmt.Printf("  company: %s, contract: %s, authority: %s\n\n",
			c.CompanyName, c.ContractID, c.Authority)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Checked %d contracts\n", rep.Contracts)
	}
	return nil
}
