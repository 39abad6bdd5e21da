package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigilpt/vigil/internal/cache"
	"github.com/vigilpt/vigil/internal/model"
	"github.com/vigilpt/vigil/internal/source"
)

var (
	fetchDistrict string
	fetchYear     int
	fetchMaxPages int
	fetchOut      string
	fetchJSON     bool
	fetchTimeout  time.Duration
	fetchNoCache  bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download contracts from the BASE portal",
	Long: `Fetch pages through the public contracts API and writes the
result as a CSV export that analyze and batch accept. Responses are
cached on disk, so refetching a district is cheap.

Example:
  vigil fetch --district Braga --year 2024 -o contratos_braga_2024.csv
  vigil fetch --district Faro --year 2023 --max-pages 5 --format-json -o faro.json`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchDistrict, "district", "", "district to fetch (e.g. Braga)")
	fetchCmd.Flags().IntVar(&fetchYear, "year", 0, "publication year to fetch")
	fetchCmd.Flags().IntVar(&fetchMaxPages, "max-pages", 0, "page limit (0 = all pages)")
	fetchCmd.Flags().StringVarP(&fetchOut, "output", "o", "", "output file (default: stdout)")
	fetchCmd.Flags().BoolVar(&fetchJSON, "format-json", false, "write JSON instead of CSV")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 5*time.Minute, "total fetch timeout")
	fetchCmd.Flags().BoolVar(&fetchNoCache, "no-cache", false, "disable the response cache (force fresh fetch)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = !fetchNoCache

	var opts []source.PortalOption
	if key := os.Getenv("VIGIL_PORTAL_API_KEY"); key != "" {
		opts = append(opts, source.WithAPIKey(key))
	}
	if cfg.Cache.Enabled {
		opts = append(opts, source.WithResponseCache(
			cache.NewLayeredCache(cfg.Cache.TTL, cacheDir(cfg), cfg.Cache.TTL)))
	}

	client := source.NewPortalClient(cfg.HTTP, opts...)

	if verbose {
		fmt.Fprintf(os.Stderr, "Fetching district=%q year=%d max-pages=%d\n",
			fetchDistrict, fetchYear, fetchMaxPages)
	}

	contracts, err := client.Search(ctx, source.Query{
		District: fetchDistrict,
		Year:     fetchYear,
		MaxPages: fetchMaxPages,
	})
	if err != nil {
		return fmt.Errorf("portal search: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Fetched %d contracts\n", len(contracts))

	out := os.Stdout
	if fetchOut != "" {
		f, err := os.Create(fetchOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if fetchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(contracts); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
	} else if err := source.WriteCSV(out, contracts); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}

	if fetchOut != "" {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", fetchOut)
	}
	return nil
}

// cacheDir resolves the disk cache location, defaulting under ~/.vigil
func cacheDir(cfg *model.Config) string {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vigil-cache"
	}
	return filepath.Join(home, ".vigil", "cache")
}
