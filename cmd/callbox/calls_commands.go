package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"callbox/internal/api"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var tagFilter string
	var sortOrder string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.List(cmd.Context(), tagFilter, sortOrder)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if resp.Total == 0 {
				fmt.Fprintln(out, "No calls stored.")
				return nil
			}
			fmt.Fprintln(out, renderCallTable(resp.Calls))
			fmt.Fprintf(out, "%d call(s)\n", resp.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&tagFilter, "tag", "", "Only show calls carrying this tag")
	cmd.Flags().StringVar(&sortOrder, "sort", "newest", "Sort order: newest or oldest")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one call in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			call, err := client.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", call.ID)
			fmt.Fprintf(out, "Filename:  %s\n", call.Filename)
			fmt.Fprintf(out, "Uploaded:  %s\n", call.UploadTimestamp)
			fmt.Fprintf(out, "Status:    %s\n", call.Status)
			fmt.Fprintf(out, "Tags:      %s\n", formatTags(call.Tags))
			if call.ErrorDetail != "" {
				fmt.Fprintf(out, "Error:     %s\n", call.ErrorDetail)
			}
			if call.Summary != "" {
				fmt.Fprintf(out, "\nSummary:\n%s\n", call.Summary)
			}
			if call.Transcript != nil {
				fmt.Fprintf(out, "\nTranscript:\n%s\n", transcriptText(call))
			}
			return nil
		},
	}
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload audio files for processing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var failed int
			for _, path := range args {
				ack, err := client.Upload(cmd.Context(), path)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(out, "%s: %s (%s)\n", path, ack.Message, ack.ID)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d upload(s) failed", failed, len(args))
			}
			return nil
		},
	}
}

func renderCallTable(calls []api.CallRecord) string {
	rows := make([][]string, 0, len(calls))
	for _, call := range calls {
		rows = append(rows, []string{
			call.ID,
			call.Filename,
			call.UploadTimestamp,
			call.Status,
			formatTags(call.Tags),
			truncate(call.Summary, 60),
		})
	}
	return renderTable(
		[]string{"ID", "File", "Uploaded", "Status", "Tags", "Summary"},
		rows,
	)
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ", ")
}

func transcriptText(call api.CallRecord) string {
	if call.Transcript == nil || strings.TrimSpace(*call.Transcript) == "" {
		return "(no speech detected)"
	}
	return *call.Transcript
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
