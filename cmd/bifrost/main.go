// Package main provides the bifrost CLI entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orneryd/bifrost/pkg/config"
	"github.com/orneryd/bifrost/pkg/create"
	"github.com/orneryd/bifrost/pkg/storage"
)

var (
	version   = "0.1.0"
	commit    = "dev"
	buildTime = "unknown" // Set via ldflags: -X main.buildTime=$(date +%Y%m%d-%H%M%S)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bifrost",
		Short: "Bifrost - Graph Pattern Creation Engine",
		Long: `Bifrost materializes graph creation patterns into a property-graph store.

Patterns are described in YAML: alternating vertex and edge elements,
optional variables, optional bound path values. See docs/patterns.md.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bifrost %s (commit %s, built %s, %s/%s)\n",
				version, commit, buildTime, runtime.GOOS, runtime.GOARCH)
		},
	})

	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a creation pattern to the store",
		RunE:  runApply,
	}
	applyCmd.Flags().StringP("file", "f", "", "pattern file to apply (required)")
	applyCmd.Flags().IntP("rows", "n", 1, "number of times to apply the pattern")
	applyCmd.Flags().String("engine", "", "storage engine: memory or badger")
	applyCmd.Flags().String("data", "", "data directory for the badger engine")
	applyCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(applyCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entity counts for a store",
		RunE:  runStats,
	}
	statsCmd.Flags().String("engine", "", "storage engine: memory or badger")
	statsCmd.Flags().String("data", "", "data directory for the badger engine")
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFromFile(config.FindConfigFile())
	if err != nil {
		return nil, err
	}
	if engine, _ := cmd.Flags().GetString("engine"); engine != "" {
		cfg.Storage.Engine = engine
	}
	if data, _ := cmd.Flags().GetString("data"); data != "" {
		cfg.Storage.DataDir = data
	}
	return cfg, cfg.Validate()
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Engine {
	case "badger":
		if cfg.Storage.InMemory {
			return storage.NewInMemoryBadgerStore()
		}
		return storage.NewBadgerStore(cfg.Storage.DataDir)
	default:
		return storage.NewMemoryStore(), nil
	}
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("file")
	rows, _ := cmd.Flags().GetInt("rows")
	if rows < 1 {
		return fmt.Errorf("--rows must be at least 1")
	}

	pattern, numSlots, err := create.LoadPatternFile(file)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	binding := create.NewBinding(numSlots)
	var source create.RowSource = create.NewSingleRow()
	if rows > 1 {
		source = create.NewSliceSource(binding, make([]map[int]create.Value, rows))
	}

	exec, err := create.NewExecutor(store, pattern, source, binding, storage.NewCommandCounter())
	if err != nil {
		return err
	}
	if err := exec.Open(ctx); err != nil {
		return err
	}
	defer exec.Close()

	if err := exec.DrainAll(ctx); err != nil {
		return err
	}

	stats := exec.Stats()
	log.Printf("statement %s: %d rows, %d vertices, %d edges",
		exec.StatementID(), stats.RowsProcessed, stats.VerticesCreated, stats.EdgesCreated)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	vertices, err := store.VertexCount()
	if err != nil {
		return err
	}
	edges, err := store.EdgeCount()
	if err != nil {
		return err
	}

	fmt.Printf("Vertices: %d\n", vertices)
	fmt.Printf("Edges:    %d\n", edges)
	fmt.Println("Labels:")
	for _, ref := range store.Catalog().Labels() {
		fmt.Printf("  %-4d %-8s %s\n", ref.ID, ref.Kind, ref.Name)
	}
	return nil
}
