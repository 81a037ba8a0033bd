package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/picker"
	"github.com/alfredjeanlab/kadr/internal/ui"
)

const pickField = "value"

type pickAction int

const (
	pickType pickAction = iota
	pickMore
	pickSelect
	pickClear
	pickOpen
	pickClose
	pickQuit
	pickHelp
)

type pickCommand struct {
	action pickAction
	text   string // search text for pickType
	index  int    // 1-based option number for pickSelect
}

// parsePickLine interprets one line of picker input. Lines starting with ':'
// are commands; anything else replaces the search text.
func parsePickLine(line string) (pickCommand, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, ":") {
		return pickCommand{action: pickType, text: trimmed}, nil
	}
	verb, rest, _ := strings.Cut(strings.TrimPrefix(trimmed, ":"), " ")
	rest = strings.TrimSpace(rest)
	switch verb {
	case "more", "m":
		return pickCommand{action: pickMore}, nil
	case "pick", "p":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return pickCommand{}, fmt.Errorf("usage: :pick <number>")
		}
		return pickCommand{action: pickSelect, index: n}, nil
	case "clear":
		return pickCommand{action: pickClear}, nil
	case "open":
		return pickCommand{action: pickOpen}, nil
	case "close":
		return pickCommand{action: pickClose}, nil
	case "quit", "q":
		return pickCommand{action: pickQuit}, nil
	case "help", "h", "?":
		return pickCommand{action: pickHelp}, nil
	}
	return pickCommand{}, fmt.Errorf("unknown command %q (try :help)", verb)
}

const pickHelpText = `Type text to search. Commands:
  :more        load the next page
  :pick N      select option N
  :clear       clear the selection
  :open        open the list
  :close       close the list
  :quit        finish and print the selection`

var pickCmd = &cobra.Command{
	Use:     "pick <catalog>",
	Short:   "Pick a catalog entry interactively",
	GroupID: "catalogs",
	Long: `Open a searchable, paginated option list for a catalog.

With --label the picker starts from a label-only selection and pages through
the catalog until an option with that label is found. With --once it prints
the settled field and exits without reading input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := model.Catalog(args[0])
		if !catalog.IsValid() {
			return fmt.Errorf("unknown catalog %q (one of %s)", args[0], catalogNames())
		}
		label, _ := cmd.Flags().GetString("label")
		filterArgs, _ := cmd.Flags().GetStringArray("filter")
		once, _ := cmd.Flags().GetBool("once")

		filters, err := parseFilters(filterArgs)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		form, cleanup, err := newForm(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		initial := model.NoSelection
		if label != "" {
			initial = model.PendingByLabel(label)
		}
		if err := form.AddField(picker.FieldConfig{
			Name:    pickField,
			Catalog: catalog,
			Initial: initial,
			Filters: filters,
		}); err != nil {
			return err
		}
		if err := form.Open(pickField); err != nil {
			return err
		}

		in := io.Reader(os.Stdin)
		if once {
			in = strings.NewReader(":quit\n")
		} else if ui.Interactive() && !jsonOutput {
			fmt.Fprintln(os.Stderr, ui.RenderMuted("type to search, :help for commands, :quit to finish"))
		}
		return runPicker(ctx, form, in)
	},
}

// runPicker drives the form from line input until :quit or EOF, printing the
// field after every step.
func runPicker(ctx context.Context, form *picker.Form, in io.Reader) error {
	if err := showPickField(ctx, form); err != nil {
		return err
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		pc, err := parsePickLine(scanner.Text())
		if err != nil {
			fmt.Fprintln(os.Stderr, ui.RenderWarn(err.Error()))
			continue
		}
		if pc.action == pickQuit {
			break
		}
		if pc.action == pickHelp {
			fmt.Println(pickHelpText)
			continue
		}
		if err := applyPick(form, pc); err != nil {
			fmt.Fprintln(os.Stderr, ui.RenderWarn(err.Error()))
			continue
		}
		if err := showPickField(ctx, form); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if err := form.Idle(ctx); err != nil {
		return err
	}
	st, err := form.Field(pickField)
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(map[string]any{"selection": st.Selection, "resolver": st.Resolver})
	} else {
		fmt.Printf("Selected: %s\n", st.Selection)
	}
	return nil
}

func applyPick(form *picker.Form, pc pickCommand) error {
	switch pc.action {
	case pickType:
		return form.Type(pickField, pc.text)
	case pickMore:
		return form.ReachEnd(pickField)
	case pickClear:
		return form.Clear(pickField)
	case pickOpen:
		return form.Open(pickField)
	case pickClose:
		return form.Collapse(pickField)
	case pickSelect:
		st, err := form.Field(pickField)
		if err != nil {
			return err
		}
		if pc.index > len(st.Options) {
			return fmt.Errorf("no option %d (%d loaded)", pc.index, len(st.Options))
		}
		return form.Select(pickField, st.Options[pc.index-1])
	}
	return nil
}

func showPickField(ctx context.Context, form *picker.Form) error {
	if err := form.Idle(ctx); err != nil {
		return err
	}
	if jsonOutput {
		return nil
	}
	st, err := form.Field(pickField)
	if err != nil {
		return err
	}
	printFieldState(st)
	return nil
}

func init() {
	pickCmd.Flags().String("label", "", "start from a label-only selection")
	pickCmd.Flags().StringArrayP("filter", "f", nil, "parent filter as key=value (repeatable)")
	pickCmd.Flags().Bool("once", false, "print the settled field and exit")
}
