package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	configx "github.com/brandguard-ai/brandguard/pkg/config"
	gcsx "github.com/brandguard-ai/brandguard/pkg/gcs"
	ingestx "github.com/brandguard-ai/brandguard/rules/ingest"
)

func newIngestCommand() *cobra.Command {
	var dir string
	var target string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest rule PDFs into the retrieval backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var (
				tgt     ingestx.Target
				cleanup = func() error { return nil }
			)

			switch strings.ToLower(strings.TrimSpace(target)) {
			case "gcs":
				store, err := gcsx.New(ctx, *configx.MustNew[gcsx.Config]("GCS"))
				if err != nil {
					return fmt.Errorf("build object store: %w", err)
				}
				tgt = ingestx.NewGCSTarget(store)
			case "local":
				store, err := buildLocalStore(configx.MustNew[appConfig](""))
				if err != nil {
					return err
				}
				cleanup = store.Close
				tgt = ingestx.NewLocalTarget(store)
			default:
				return fmt.Errorf("unknown ingest target %q (want gcs or local)", target)
			}
			defer cleanup()

			summary, err := ingestx.Run(ctx, dir, tgt)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ingested=%d skipped=%d failed=%d\n",
				summary.Ingested, summary.Skipped, summary.Failed)
			if summary.Failed > 0 {
				return fmt.Errorf("%d document(s) failed to ingest", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "data/rules", "Directory containing rule PDFs")
	cmd.Flags().StringVar(&target, "target", "gcs", "Ingest target: gcs or local")

	return cmd
}
