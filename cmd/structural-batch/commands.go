package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/structural-analysis/internal/async"
	"github.com/joseph-ayodele/structural-analysis/internal/ingest"
)

func migrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Build already migrated; report what is there
			ps, err := e.app.Projects.List(cmd.Context())
			if err != nil {
				return err
			}
			e.app.Logger.Info("schema up to date", "driver", e.cfg.Database.Driver, "projects", len(ps))
			return nil
		},
	}
}

func projectCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create [name]",
			Short: "Create a project",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := e.app.Projects.Create(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(p)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List projects",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ps, err := e.app.Projects.List(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(ps)
			},
		},
	)
	return cmd
}

func ingestCommand(e *env) *cobra.Command {
	var (
		skipHidden bool
		process    bool
	)
	cmd := &cobra.Command{
		Use:   "ingest [project-id] [path]",
		Short: "Register a drawing or a directory of drawings with a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var results []ingest.IngestionResult
			out := map[string]any{}
			if info.IsDir() {
				rs, stats, err := e.app.Ingestor.IngestDirectory(ctx, projectID, args[1], skipHidden)
				if err != nil {
					return err
				}
				results = rs
				out["stats"] = stats
			} else {
				r, err := e.app.Ingestor.IngestPath(ctx, projectID, args[1])
				if err != nil {
					return err
				}
				results = []ingest.IngestionResult{r}
			}
			out["results"] = results

			if process {
				processed := map[string]any{}
				for _, r := range results {
					if r.Err != "" {
						continue
					}
					data, err := e.app.Processor.Process(ctx, uuid.MustParse(r.FileID))
					if err != nil {
						processed[r.FileID] = map[string]string{"error": err.Error()}
						continue
					}
					processed[r.FileID] = map[string]int{
						"elements": len(data.Elements),
						"notes":    len(data.Notes),
						"tables":   len(data.Tables),
					}
				}
				out["processed"] = processed
			}
			return printJSON(out)
		},
	}
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip hidden files and directories")
	cmd.Flags().BoolVar(&process, "process", false, "extract each ingested drawing right away")
	return cmd
}

func processCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "process [file-id]",
		Short: "Extract elements, notes and tables from a stored drawing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID, err := parseID("file", args[0])
			if err != nil {
				return err
			}
			if _, err := e.app.Processor.Process(cmd.Context(), fileID); err != nil {
				return err
			}
			f, err := e.app.FileService.Status(cmd.Context(), fileID)
			if err != nil {
				return err
			}
			return printJSON(f)
		},
	}
}

// analyzeCommand runs the analysis in the foreground. The run is registered
// like any other, so it is rejected while the daemon has one processing.
func analyzeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [project-id]",
		Short: "Compute quantities and NBR 6118 findings for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := e.app.Reports.StartProcessing(ctx, projectID)
			if err != nil {
				return err
			}
			runErr := e.app.Orchestrator.HandleJob(ctx, async.Job{Kind: async.KindAnalysis, ID: a.ID, ProjectID: projectID})
			v, err := e.app.Orchestrator.Status(ctx, a.ID)
			if err != nil {
				return errors.Join(runErr, err)
			}
			if perr := printJSON(v); perr != nil {
				return perr
			}
			return runErr
		},
	}
}

func exportCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "export [analysis-id] [out.xlsx]",
		Short: "Write the quantity takeoff workbook of a completed analysis",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("analysis", args[0])
			if err != nil {
				return err
			}
			data, err := e.app.Export.TakeoffXLSX(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", args[1], err)
			}
			e.app.Logger.Info("takeoff written", "analysis_id", id, "path", args[1], "bytes", len(data))
			return nil
		},
	}
}

// watchCommand ingests drawings as they appear and queues their processing
// until interrupted.
func watchCommand(e *env) *cobra.Command {
	var initial bool
	cmd := &cobra.Command{
		Use:   "watch [project-id] [dir]",
		Short: "Ingest and process drawings dropped into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := e.app.Projects.GetByID(ctx, projectID); err != nil {
				return err
			}
			events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       []string{args[1]},
				InitialScan: initial,
				SkipHidden:  true,
				Debounce:    e.cfg.Ingest.WatchDebounce,
				Logger:      e.app.Logger,
			})
			if err != nil {
				return err
			}
			log := e.app.Logger.With("project_id", projectID, "dir", args[1])
			log.Info("watching for drawings")
			for {
				select {
				case path, ok := <-events:
					if !ok {
						return nil
					}
					r, err := e.app.Ingestor.IngestPath(ctx, projectID, path)
					if err != nil {
						log.Warn("ingest failed", "path", path, "error", err)
						continue
					}
					if r.Deduplicated {
						continue
					}
					if _, err := e.app.FileService.Enqueue(ctx, uuid.MustParse(r.FileID)); err != nil {
						log.Warn("enqueue failed", "file_id", r.FileID, "error", err)
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					log.Warn("watcher error", "error", err)
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVar(&initial, "initial-scan", true, "also ingest drawings already in the directory")
	return cmd
}
