package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/picker"
	"github.com/alfredjeanlab/kadr/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printCatalogItems(items []model.CatalogItem, format model.LabelFormatter, total int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL")
	width := ui.Width() - 12
	for _, opt := range model.ToOptions(items, format) {
		fmt.Fprintf(w, "%s\t%s\n", opt.ID, ui.Truncate(opt.Label, width))
	}
	w.Flush()
	fmt.Printf("\n%d shown (%d total)\n", len(items), total)
}

// printFieldState renders a picker field the way the interactive picker shows it.
func printFieldState(st picker.FieldState) {
	state := st.Resolver
	if state == picker.ResolverIdle {
		switch {
		case st.Selection.IsResolved():
			state = "selected"
		case st.Selection.IsPending():
			state = "pending"
		default:
			state = "idle"
		}
	}
	fmt.Printf("%s %s  %s\n", ui.RenderAccent(st.Name), ui.RenderState(state), st.Selection)
	if st.Search != "" {
		fmt.Printf("  search: %q\n", st.Search)
	}
	width := ui.Width() - 8
	for i, opt := range st.Options {
		marker := " "
		if st.Selection.IsResolved() && st.Selection.ID() == opt.ID {
			marker = "*"
		}
		fmt.Printf("%s %3d. %s\n", marker, i+1, ui.Truncate(opt.Label, width))
	}
	switch {
	case st.Fetching:
		fmt.Println(ui.RenderMuted("  loading..."))
	case st.HasMore:
		fmt.Println(ui.RenderMuted(fmt.Sprintf("  page %d, more available (:more)", st.Page)))
	case len(st.Options) == 0 && st.Page > 0:
		fmt.Println(ui.RenderMuted("  no options"))
	}
	if st.LastError != nil {
		fmt.Println(ui.RenderError("  fetch failed: " + st.LastError.Error()))
	}
}

func printVerdict(v picker.Verdict) {
	if jsonOutput {
		out := map[string]any{"value": v.Value, "status": v.Status.String()}
		if v.Message != "" {
			out["message"] = v.Message
		}
		if v.MatchedRecordID != 0 {
			out["matched_record_id"] = v.MatchedRecordID
		}
		if v.Err != nil {
			out["error"] = v.Err.Error()
		}
		printJSON(out)
		return
	}
	fmt.Printf("PINFL:   %s\n", v.Value)
	fmt.Printf("Status:  %s\n", ui.RenderState(verdictState(v.Status)))
	if v.Message != "" {
		fmt.Printf("Message: %s\n", v.Message)
	}
	if v.MatchedRecordID != 0 {
		fmt.Printf("Record:  #%d\n", v.MatchedRecordID)
	}
	if v.Err != nil {
		fmt.Printf("Error:   %s\n", ui.RenderError(v.Err.Error()))
	}
}

func verdictState(s picker.Status) string {
	switch s {
	case picker.StatusExists:
		return "conflict"
	case picker.StatusNotExists, picker.StatusNoConflict:
		return "available"
	}
	return "unknown"
}

func printPerson(p *model.Person) {
	if jsonOutput {
		printJSON(p)
		return
	}
	fmt.Printf("ID:        %d\n", p.ID)
	fmt.Printf("PINFL:     %s\n", p.PINFL)
	fmt.Printf("Name:      %s\n", p.FullName())
	if p.RankName != "" || !p.RankID.IsZero() {
		fmt.Printf("Rank:      %s\n", nameOrID(p.RankName, p.RankID))
	}
	if p.UnitName != "" || !p.UnitID.IsZero() {
		fmt.Printf("Unit:      %s\n", nameOrID(p.UnitName, p.UnitID))
	}
	if !p.PositionID.IsZero() {
		fmt.Printf("Position:  #%s\n", p.PositionID)
	}
	if !p.CreatedAt.IsZero() {
		fmt.Printf("Created:   %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func nameOrID(name string, id model.ID) string {
	if name != "" {
		return name
	}
	return "#" + id.String()
}

// printValidation lists the field errors of a *model.ValidationError, or
// err itself for anything else.
func printValidation(err error) {
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		fmt.Fprintln(os.Stderr, ui.RenderError(err.Error()))
		return
	}
	for _, fe := range ve.Errors {
		fmt.Fprintf(os.Stderr, "  %s %s\n", ui.RenderAccent(fe.Field+":"), fe.Message)
	}
}
