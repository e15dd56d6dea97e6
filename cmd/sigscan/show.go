package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <guid>",
		Short: "Show an item with its tags and custom metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  runShowCmd,
	}
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	cat, err := openCatalog(cfg, logger)
	if err != nil {
		return err
	}
	defer cat.Close()

	ctx := context.Background()
	item, err := cat.GetItem(ctx, args[0])
	if err != nil {
		return err
	}
	tags, err := cat.ItemTags(ctx, item.GUID)
	if err != nil {
		return err
	}
	fields, err := cat.ItemFields(ctx, item.GUID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	table := tablewriter.NewWriter(out)
	table.Header("Property", "Value")
	rows := [][]string{
		{"GUID", item.GUID},
		{"Name", item.Name},
		{"Path", item.Path()},
		{"Kind", item.Kind},
		{"MIME Type", item.MimeType},
		{"Extension", item.Extension},
		{"MD5", item.MD5},
		{"Size", humanize.Bytes(uint64(max(item.AuditedSize, 0))) + " (" + strconv.FormatInt(item.AuditedSize, 10) + " bytes)"},
		{"Has Binary", strconv.FormatBool(item.HasBinary)},
		{"Tags", strings.Join(tags, "\n")},
	}
	for _, f := range fields {
		rows = append(rows, []string{f.Name, f.Value})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if item.ParentGUID != "" {
		fmt.Fprintf(out, "Parent: %s\n", item.ParentGUID)
	}
	return nil
}
