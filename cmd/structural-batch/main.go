package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/structural-analysis/internal/app"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
)

// env carries the wired application into subcommands.
type env struct {
	cfg *common.Config
	app *app.App
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		if _, perr := fmt.Fprintf(os.Stderr, "Error: %v\n", err); perr != nil {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	e := &env{}
	var sqlitePath string

	root := &cobra.Command{
		Use:           "structural-batch",
		Short:         "Batch tools for structural drawing analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e.cfg = common.LoadConfig()
			if sqlitePath != "" {
				e.cfg.Database.Driver = "sqlite"
				e.cfg.Database.DSN = sqlitePath
			}
			if cmd.Name() == "migrate" {
				e.cfg.Database.AutoMigrate = true
			}
			if err := e.cfg.Validate(); err != nil {
				return err
			}
			logger := common.NewLogger(os.Stderr, e.cfg.LogLevel)
			a, err := app.Build(cmd.Context(), e.cfg, logger)
			if err != nil {
				return err
			}
			e.app = a
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.app == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			e.app.Close(ctx)
		},
	}
	root.PersistentFlags().StringVar(&sqlitePath, "sqlite", "", "use a SQLite database file instead of DB_URL")

	root.AddCommand(
		migrateCommand(e),
		projectCommand(e),
		ingestCommand(e),
		processCommand(e),
		analyzeCommand(e),
		exportCommand(e),
		watchCommand(e),
	)
	return root
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s id %q must be a UUID: %w", kind, raw, common.ErrInvalidInput)
	}
	return id, nil
}
