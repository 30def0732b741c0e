package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/clvscore/internal/config"
	"github.com/TobiSchelling/clvscore/internal/database"
	"github.com/TobiSchelling/clvscore/internal/dataset"
	"github.com/TobiSchelling/clvscore/internal/pipeline"
	"github.com/TobiSchelling/clvscore/internal/report"
	"github.com/TobiSchelling/clvscore/internal/server"
	"github.com/TobiSchelling/clvscore/internal/source"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "clvscore",
	Short:   "Customer lifetime value scoring",
	Long:    "clvscore fits BG/NBD and Gamma-Gamma models to transaction history, projects discounted customer lifetime value and segments customers by it.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(segmentsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("clvscore", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/clvscore/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the transaction source and model settings.")
		return nil
	},
}

// --- status command ---

var checkSource bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local store status and optionally check the configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Store: %s\n\n", db.Path())
		fmt.Println("Transactions:")
		fmt.Printf("  Lines: %d\n", stats.Transactions)
		fmt.Printf("  Customers: %d\n", stats.Customers)
		if stats.FirstDate != nil {
			fmt.Printf("  Range: %s to %s\n", *stats.FirstDate, *stats.LastDate)
		}
		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		if stats.LastRunAt != nil {
			fmt.Printf("  Last: %s\n", *stats.LastRunAt)
		}

		if !checkSource {
			return nil
		}

		src, err := source.New(cfg.Source, cfg.Columns, db)
		if err != nil {
			return err
		}
		f, err := src.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading %s: %w", src.Name(), err)
		}
		fmt.Printf("\nSource %s:\n", src.Name())
		printDescription(f.Describe())
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&checkSource, "source", false, "Load the configured source and describe its columns")
}

// --- import command ---

var replace bool

var importCmd = &cobra.Command{
	Use:   "import [file.csv]",
	Short: "Import transaction lines into the local store from a CSV file or the configured source",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var src source.Source
		if len(args) == 1 {
			src = &source.CSV{Path: args[0]}
		} else {
			if cfg.Source.Kind == "local" {
				return fmt.Errorf("source.kind is local; pass a CSV file to import")
			}
			if src, err = source.New(cfg.Source, cfg.Columns, db); err != nil {
				return err
			}
		}

		f, err := src.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading %s: %w", src.Name(), err)
		}
		lines, err := source.Transactions(f, cfg.Columns)
		if err != nil {
			return err
		}

		if replace {
			removed, err := db.ClearTransactions()
			if err != nil {
				return fmt.Errorf("clearing store: %w", err)
			}
			fmt.Printf("Removed %d existing lines\n", removed)
		}
		n, err := db.InsertTransactions(lines)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d lines from %s\n", n, src.Name())
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&replace, "replace", false, "Replace previously imported lines")
}

// --- run command ---

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scoring pipeline: load -> summarize -> rfm -> fit timing -> fit monetary -> score -> save",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		src, err := source.New(cfg.Source, cfg.Columns, db)
		if err != nil {
			return err
		}
		pipe := pipeline.New(cfg, db, src)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(ctx)
		} else {
			bar := newStepBar(os.Stderr)
			pipe.OnStep = stepProgress(bar)
			result = pipe.Run(ctx)
			if err := bar.Finish(); err != nil {
				log.Printf("Progress bar: %v", err)
			}
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, pipeline.StepCount, step.Name)
			if step.Err != nil {
				fmt.Printf("  %s\n", errorStyle.Render("Error: "+step.Err.Error()))
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if err := result.Err(); err != nil {
			return err
		}
		if !dryRun {
			fmt.Println()
			printSegments(pipeline.SegmentRows(result.Outcome.Segments))
			fmt.Printf("\nRun %s complete! Run 'clvscore serve' to browse it.\n", result.RunID)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Load and check the input without fitting or storing")
}

// --- segments command ---

var segmentsCmd = &cobra.Command{
	Use:   "segments [run-id]",
	Short: "Show the segment summary of a run (default: latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := findRun(db, args)
		if err != nil {
			return err
		}
		segments, err := db.GetSegments(run.ID)
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render(fmt.Sprintf("Run %s (as of %s)", run.ID, run.ReferenceDate)))
		printSegments(segments)
		for _, w := range run.Warnings {
			fmt.Println(warnStyle.Render("Warning: " + w))
		}
		return nil
	},
}

// --- export command ---

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export [run-id]",
	Short: "Write a run's results as JSON (default: latest run)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := findRun(db, args)
		if err != nil {
			return err
		}
		results, err := db.GetResults(run.ID, "")
		if err != nil {
			return err
		}
		segments, err := db.GetSegments(run.ID)
		if err != nil {
			return err
		}

		dir := exportDir
		if dir == "" {
			dir = cfg.GetExportDir()
		}
		path, err := report.WriteExport(dir, report.NewExport(run, results, segments), time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d customers to %s\n", len(results), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "", "Export directory (default: output.export_dir)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if cfg.Server.Schedule != "" {
			src, err := source.New(cfg.Source, cfg.Columns, db)
			if err != nil {
				return err
			}
			sched, err := server.StartSchedule(cfg.Server.Schedule, pipeline.New(cfg, db, src).Schedule(time.Hour))
			if err != nil {
				return err
			}
			defer sched.Stop()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default: server.port)")
}

func findRun(db *database.DB, args []string) (*database.Run, error) {
	var run *database.Run
	var err error
	if len(args) == 1 {
		run, err = db.GetRun(args[0])
	} else {
		run, err = db.GetLatestRun()
	}
	if err != nil {
		return nil, err
	}
	if run == nil {
		if len(args) == 1 {
			return nil, fmt.Errorf("run %s not found", args[0])
		}
		return nil, fmt.Errorf("no runs yet; run 'clvscore run' first")
	}
	return run, nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "clvscore.db")
	return database.Open(dbPath)
}

func printDescription(d dataset.Description) {
	fmt.Printf("  Rows: %d\n  Columns: %d\n", d.RowCount, d.ColumnCount)
	for _, c := range d.Columns {
		fmt.Printf("  %-20s distinct=%-8d missing=%d\n", c.Name, c.Distinct, c.Missing)
	}
}
