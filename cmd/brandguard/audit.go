package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	contractx "github.com/brandguard-ai/brandguard/audit/contract"
	statex "github.com/brandguard-ai/brandguard/audit/state"
)

func newAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <video-url>",
		Short: "Audit a single video and print the verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			auditor, closeClients, err := buildAuditor(ctx)
			if err != nil {
				return err
			}
			defer closeClients()

			sessionID := uuid.NewString()
			videoID := "vid_" + sessionID[:8]

			state, err := auditor.Run(ctx, args[0], videoID)
			if err != nil {
				return fmt.Errorf("audit failed: %w", err)
			}

			printVerdict(cmd, state)
			return nil
		},
	}

	return cmd
}

func printVerdict(cmd *cobra.Command, state *statex.AuditState) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Video:  %s\n", state.VideoURL)
	fmt.Fprintf(out, "Status: %s\n\n", state.FinalStatus)

	if len(state.ComplianceResults) > 0 {
		fmt.Fprintln(out, renderIssuesTable(state.ComplianceResults))
		fmt.Fprintln(out)
	}

	if state.FinalReport != "" {
		fmt.Fprintln(out, state.FinalReport)
	}

	for _, e := range state.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}
}

func renderIssuesTable(issues []contractx.ComplianceIssue) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Category", "Severity", "Timestamp", "Description"})

	for i, issue := range issues {
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), issue.Category, issue.Severity, issue.Timestamp, issue.Description})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, WidthMax: 72},
	})

	return tw.Render()
}
