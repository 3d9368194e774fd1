package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"callbox/internal/records"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			running := "STOPPED"
			color := ansiRed
			if status.Running {
				running = "RUNNING"
				color = ansiGreen
			}
			fmt.Fprintf(out, "Daemon:     %s\n", colorized(running, color, colorize))
			fmt.Fprintf(out, "PID:        %d\n", status.PID)
			fmt.Fprintf(out, "Store:      %s\n", status.StorePath)
			fmt.Fprintf(out, "Lock file:  %s\n", status.LockFilePath)

			if len(status.Counts) > 0 {
				fmt.Fprintln(out, colorized("Calls by status:", ansiBlue, colorize))
				for _, key := range statusOrder(status.Counts) {
					fmt.Fprintf(out, "  %-18s %d\n", key, status.Counts[key])
				}
			}

			if len(status.Dependencies) > 0 {
				fmt.Fprintln(out, colorized("Dependencies:", ansiBlue, colorize))
				for _, dep := range status.Dependencies {
					state := colorized("OK", ansiGreen, colorize)
					if !dep.Available {
						state = colorized("MISSING", ansiRed, colorize)
						if dep.Optional {
							state += " (optional)"
						}
					}
					fmt.Fprintf(out, "  %-18s %s\n", dep.Name, state)
					if !dep.Available && dep.Detail != "" {
						fmt.Fprintf(out, "  %-18s %s\n", "", dep.Detail)
					}
				}
			}
			return nil
		},
	}
}

// statusOrder walks the lifecycle order first, then any keys the daemon
// reports that this build does not know about, alphabetically.
func statusOrder(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	seen := make(map[string]struct{}, len(counts))
	for _, status := range records.AllStatuses() {
		if _, ok := counts[string(status)]; ok {
			keys = append(keys, string(status))
			seen[string(status)] = struct{}{}
		}
	}
	var extra []string
	for key := range counts {
		if _, ok := seen[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func colorized(s, color string, enable bool) string {
	if !enable {
		return s
	}
	return color + s + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
