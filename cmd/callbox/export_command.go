package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"callbox/internal/api"
)

var exportHeader = []string{"ID", "Filename", "Uploaded", "Status", "Tags", "Summary", "Transcript"}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var tagFilter string
	var sortOrder string

	cmd := &cobra.Command{
		Use:   "export <output.xlsx>",
		Short: "Export stored calls to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.List(cmd.Context(), tagFilter, sortOrder)
			if err != nil {
				return err
			}

			if err := writeWorkbook(args[0], resp.Calls); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d call(s) to %s\n", resp.Total, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&tagFilter, "tag", "", "Only export calls carrying this tag")
	cmd.Flags().StringVar(&sortOrder, "sort", "newest", "Sort order: newest or oldest")
	return cmd
}

func writeWorkbook(path string, calls []api.CallRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Calls"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(exportHeader))
	for i, title := range exportHeader {
		header[i] = title
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, call := range calls {
		row := []any{
			call.ID,
			call.Filename,
			call.UploadTimestamp,
			call.Status,
			strings.Join(call.Tags, ", "),
			call.Summary,
			transcriptText(call),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
