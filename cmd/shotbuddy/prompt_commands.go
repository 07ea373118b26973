package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shotbuddy/internal/ipc"
	"shotbuddy/internal/promptbrowser"
	"shotbuddy/internal/sequence"
	"shotbuddy/internal/shot"
)

const promptHelp = `Commands:
  versions     list versions (* marks the selected one)
  show         print the draft and any copy candidate
  switch N     select version N (the current draft is auto-saved)
  edit         replace the draft; end input with a line containing only "."
  copy         copy the previous version's prompt into the draft
  save         save the draft for the selected version and exit
  cancel       exit without saving the draft`

func newPromptCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt NAME SLOT",
		Short: "Browse and edit a slot's prompts version by version",
		Long:  "Opens an interactive prompt browser on the newest version of the slot.\n\n" + promptHelp,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := shot.ParseSlotType(args[1])
			if err != nil {
				return err
			}
			return ctx.withBoard(cmd.Context(), func(client *ipc.Client, seq *sequence.Manager) error {
				current, found := seq.Find(strings.TrimSpace(args[0]))
				if !found {
					return shot.Wrap(shot.ErrNotFound, "shot "+args[0], "prompt", "shot is not on the board", nil)
				}
				slotState, _ := current.Slot(slot)

				browser := promptbrowser.New(client, seq, ctx.cliLogger())
				defer browser.Wait()
				if _, err := browser.Open(cmd.Context(), current.Name, slot, slotState.Version); err != nil {
					return err
				}
				repl := &promptREPL{
					browser: browser,
					in:      bufio.NewScanner(cmd.InOrStdin()),
					out:     cmd.OutOrStdout(),
				}
				return repl.run(cmd.Context())
			})
		},
	}
}

type promptREPL struct {
	browser *promptbrowser.Browser
	in      *bufio.Scanner
	out     io.Writer
}

func (r *promptREPL) run(ctx context.Context) error {
	r.printSession()
	for {
		fmt.Fprint(r.out, "prompt> ")
		if !r.in.Scan() {
			r.browser.Close()
			fmt.Fprintln(r.out)
			return r.in.Err()
		}
		fields := strings.Fields(r.in.Text())
		if len(fields) == 0 {
			continue
		}
		done, err := r.dispatch(ctx, fields[0], fields[1:])
		if err != nil {
			if errors.Is(err, context.Canceled) {
				r.browser.Close()
				return err
			}
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		if done {
			return nil
		}
	}
}

func (r *promptREPL) dispatch(ctx context.Context, command string, args []string) (bool, error) {
	switch strings.ToLower(command) {
	case "versions", "v":
		r.printVersions()
	case "show", "s":
		r.printSession()
	case "switch", "sw":
		if len(args) != 1 {
			return false, errors.New("usage: switch N")
		}
		version, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(args[0]), "v"))
		if err != nil {
			return false, fmt.Errorf("invalid version %q", args[0])
		}
		if _, err := r.browser.SwitchVersion(ctx, version); err != nil {
			return false, err
		}
		r.printSession()
	case "edit", "e":
		text, err := r.readDraft()
		if err != nil {
			return false, err
		}
		if err := r.browser.SetDraft(text); err != nil {
			return false, err
		}
	case "copy", "c":
		if err := r.browser.CopyForward(); err != nil {
			return false, err
		}
		r.printSession()
	case "save":
		session := r.browser.Session()
		if err := r.browser.Save(ctx); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Saved prompt for shot %s %s v%03d\n", session.Shot, session.Slot.Label(), session.Selected)
		return true, nil
	case "cancel", "quit", "q":
		r.browser.Close()
		fmt.Fprintln(r.out, "Closed without saving")
		return true, nil
	case "help", "h", "?":
		fmt.Fprintln(r.out, promptHelp)
	default:
		return false, fmt.Errorf("unknown command %q (type help)", command)
	}
	return false, nil
}

func (r *promptREPL) readDraft() (string, error) {
	fmt.Fprintln(r.out, `Enter the prompt; finish with a line containing only "."`)
	var lines []string
	for r.in.Scan() {
		line := r.in.Text()
		if line == "." {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, line)
	}
	if err := r.in.Err(); err != nil {
		return "", err
	}
	return "", io.ErrUnexpectedEOF
}

func (r *promptREPL) printVersions() {
	session := r.browser.Session()
	parts := make([]string, 0, len(session.Versions))
	for _, v := range session.Versions {
		label := fmt.Sprintf("v%03d", v)
		if v == session.Selected {
			label = "*" + label
		}
		parts = append(parts, label)
	}
	fmt.Fprintln(r.out, strings.Join(parts, "  "))
}

func (r *promptREPL) printSession() {
	session := r.browser.Session()
	fmt.Fprintf(r.out, "Shot %s %s v%03d\n", session.Shot, session.Slot.Label(), session.Selected)
	if session.Draft == "" {
		fmt.Fprintln(r.out, "(no prompt)")
	} else {
		fmt.Fprintln(r.out, session.Draft)
	}
	if session.HasCandidate {
		fmt.Fprintf(r.out, "Previous version's prompt available (type copy): %s\n", session.CopyCandidate)
	}
}

func newPromptSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt-set NAME SLOT VERSION TEXT",
		Short: "Store the prompt for one version of a slot",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := shot.ParseSlotType(args[1])
			if err != nil {
				return err
			}
			version, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(args[2])), "v"))
			if err != nil || version < 1 {
				return shot.Wrap(shot.ErrValidation, "prompt", "parse version", fmt.Sprintf("invalid version %q", args[2]), nil)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.SavePrompt(cmd.Context(), args[0], slot, version, args[3]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved prompt for shot %s %s v%03d\n", strings.TrimSpace(args[0]), slot.Label(), version)
				return nil
			})
		},
	}
}
