package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"shotbuddy/internal/dropzone"
	"shotbuddy/internal/ipc"
	"shotbuddy/internal/sequence"
	"shotbuddy/internal/shot"
)

func newDropCommand(ctx *commandContext) *cobra.Command {
	var afterKey string
	var shotName string
	var slotName string
	cmd := &cobra.Command{
		Use:   "drop FILE",
		Short: "Drop a media file between shots or onto a shot's slot",
		Long: "With --after, a new shot is created after the named shot (empty for the start) " +
			"and the file is uploaded into it. With --shot, the file becomes the next version " +
			"of that shot's slot; the slot defaults to the file's media type.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			atPoint := cmd.Flags().Changed("after")
			onShot := strings.TrimSpace(shotName) != ""
			if atPoint == onShot {
				return errors.New("specify exactly one of --after or --shot")
			}
			var slot shot.SlotType
			if strings.TrimSpace(slotName) != "" {
				if atPoint {
					return errors.New("--slot only applies together with --shot")
				}
				parsed, err := shot.ParseSlotType(slotName)
				if err != nil {
					return err
				}
				slot = parsed
			}

			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer file.Close()

			return ctx.withBoard(cmd.Context(), func(client *ipc.Client, seq *sequence.Manager) error {
				router := dropzone.NewRouter(seq, client, ctx.cliLogger())
				var result dropzone.Result
				if atPoint {
					result, err = router.DropAtInsertionPoint(cmd.Context(), strings.TrimSpace(afterKey), path, file)
				} else {
					result, err = router.DropOnSlot(cmd.Context(), strings.TrimSpace(shotName), slot, path, file)
				}
				if result.Created {
					fmt.Fprintf(cmd.OutOrStdout(), "Created shot %s\n", result.Shot.Name)
				}
				if err != nil {
					return err
				}
				if result.Notice != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", result.Notice)
				}
				if result.Uploaded {
					target := slot
					if target == "" {
						target, _ = shot.ClassifyFile(path)
					}
					printUpload(cmd, result.Shot, target, filepath.Base(path))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&afterKey, "after", "", "Create a new shot after this shot (empty for the start) and upload into it")
	cmd.Flags().StringVar(&shotName, "shot", "", "Upload into an existing shot")
	cmd.Flags().StringVar(&slotName, "slot", "", "Target slot: image, video, driver, target or result")
	return cmd
}

func printUpload(cmd *cobra.Command, s shot.Shot, t shot.SlotType, source string) {
	out := cmd.OutOrStdout()
	slot, ok := s.Slot(t)
	if !ok || !slot.HasFile() {
		fmt.Fprintf(out, "Uploaded %s to shot %s\n", source, s.Name)
		return
	}
	fmt.Fprintf(out, "Uploaded %s to shot %s %s v%03d (%s)\n", source, s.Name, t.Label(), slot.Version, slot.File)
	if slot.Prompt != "" {
		fmt.Fprintf(out, "Imported prompt: %s\n", slot.Prompt)
	}
}
