package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List every tag in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			tags, err := client.Tags(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tags) == 0 {
				fmt.Fprintln(out, "No tags in use.")
				return nil
			}
			for _, tag := range tags {
				fmt.Fprintln(out, tag)
			}
			return nil
		},
	}
}

func newTagCommand(ctx *commandContext) *cobra.Command {
	tagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags on a call",
	}

	tagCmd.AddCommand(&cobra.Command{
		Use:   "add <id> <tag>",
		Short: "Attach a tag to a call",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			call, err := client.AddTag(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tags on %s: %s\n", call.ID, formatTags(call.Tags))
			return nil
		},
	})

	tagCmd.AddCommand(&cobra.Command{
		Use:   "remove <id> <tag>",
		Short: "Detach a tag from a call",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			call, err := client.RemoveTag(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tags on %s: %s\n", call.ID, formatTags(call.Tags))
			return nil
		},
	})

	return tagCmd
}
