package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shotbuddy/internal/api"
	"shotbuddy/internal/ipc"
	"shotbuddy/internal/sequence"
	"shotbuddy/internal/shot"
)

func newBoardCommands(ctx *commandContext) []*cobra.Command {
	var shotsJSON bool
	shotsCmd := &cobra.Command{
		Use:     "shots",
		Aliases: []string{"ls"},
		Short:   "List the board's shots in display order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBoard(cmd.Context(), func(_ *ipc.Client, seq *sequence.Manager) error {
				shots := seq.Snapshot()
				if shotsJSON {
					return writeJSON(cmd, api.FromShots(shots))
				}
				out := cmd.OutOrStdout()
				if len(shots) == 0 {
					fmt.Fprintln(out, "No shots yet; create one with `shotbuddy new`")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"Shot", "Image", "Video", "Lipsync", "Notes"},
					shotRows(shots),
					nil,
				))
				return nil
			})
		},
	}
	shotsCmd.Flags().BoolVar(&shotsJSON, "json", false, "Output as JSON")

	pointsCmd := &cobra.Command{
		Use:   "points",
		Short: "List the insertion points new shots can be created at",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBoard(cmd.Context(), func(_ *ipc.Client, seq *sequence.Manager) error {
				points := seq.InsertionPoints()
				names := seq.Names()
				rows := make([][]string, 0, len(points))
				for i, key := range points {
					after := key
					if after == "" {
						after = "(start)"
					}
					before := "(end)"
					if i < len(names) {
						before = names[i]
					}
					rows = append(rows, []string{strconv.Itoa(i), after, before})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"#", "After", "Before"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}

	var afterKey string
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a shot after another shot (or at the start)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBoard(cmd.Context(), func(_ *ipc.Client, seq *sequence.Manager) error {
				created, err := seq.InsertAfter(cmd.Context(), strings.TrimSpace(afterKey))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created shot %s (position %d of %d)\n",
					created.Name, seq.IndexOf(created.Name)+1, seq.Len())
				return nil
			})
		},
	}
	newCmd.Flags().StringVar(&afterKey, "after", "", "Shot to insert after; empty inserts at the start")

	renameCmd := &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a shot and its files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBoard(cmd.Context(), func(_ *ipc.Client, seq *sequence.Manager) error {
				renamed, err := seq.Rename(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed shot %s to %s\n", strings.TrimSpace(args[0]), renamed.Name)
				return nil
			})
		},
	}

	notesCmd := &cobra.Command{
		Use:   "notes NAME TEXT",
		Short: "Replace a shot's notes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				updated, err := client.SaveNotes(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved notes for shot %s\n", updated.Name)
				return nil
			})
		},
	}

	return []*cobra.Command{shotsCmd, pointsCmd, newCmd, renameCmd, notesCmd}
}

func shotRows(shots []shot.Shot) [][]string {
	rows := make([][]string, 0, len(shots))
	for _, s := range shots {
		rows = append(rows, []string{s.Name, slotCell(s.Image), slotCell(s.Video), lipsyncCell(s), notesCell(s.Notes)})
	}
	return rows
}

func slotCell(slot shot.Slot) string {
	if !slot.HasFile() {
		return "-"
	}
	cell := fmt.Sprintf("v%03d", slot.Version)
	if slot.Prompt != "" {
		cell += " *"
	}
	return cell
}

func lipsyncCell(s shot.Shot) string {
	if len(s.Lipsync) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(s.Lipsync))
	for _, part := range shot.LipsyncParts {
		if slot, ok := s.Lipsync[part]; ok && slot.HasFile() {
			parts = append(parts, fmt.Sprintf("%s v%03d", part, slot.Version))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func notesCell(notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ""
	}
	if first, _, found := strings.Cut(notes, "\n"); found {
		return first + " ..."
	}
	return notes
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string
	var outputPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the shot list as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				doc, err := client.Export(cmd.Context())
				if err != nil {
					return err
				}
				if strings.TrimSpace(outputPath) == "" {
					return api.EncodeExport(cmd.OutOrStdout(), doc, format)
				}
				return writeExportFile(outputPath, doc, format)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", api.FormatYAML, "Output format (yaml or json)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func writeExportFile(path string, doc api.ExportDocument, format string) error {
	var buf bytes.Buffer
	if err := api.EncodeExport(&buf, doc, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

func newRefsCommand(ctx *commandContext) *cobra.Command {
	var refsJSON bool
	cmd := &cobra.Command{
		Use:   "refs",
		Short: "List the project's reference images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				refs, err := client.References(cmd.Context())
				if err != nil {
					return err
				}
				if refsJSON {
					return writeJSON(cmd, refs)
				}
				out := cmd.OutOrStdout()
				if len(refs) == 0 {
					fmt.Fprintln(out, "No reference images")
					return nil
				}
				rows := make([][]string, 0, len(refs))
				for _, ref := range refs {
					rows = append(rows, []string{ref.Filename, ref.Path, yesNo(ref.Thumbnail != "")})
				}
				fmt.Fprint(out, renderTable([]string{"File", "Path", "Thumbnail"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refsJSON, "json", false, "Output as JSON")
	return cmd
}
