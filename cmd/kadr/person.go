package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kadr/internal/client"
	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/picker"
	"github.com/alfredjeanlab/kadr/internal/ui"
)

var personCmd = &cobra.Command{
	Use:     "person",
	Short:   "Manage personnel records",
	GroupID: "personnel",
}

// personFields are the catalog fields of the personnel form, parents first.
var personFields = []struct {
	name    string
	catalog model.Catalog
	flag    string
	parent  string
}{
	{"rank", model.CatalogRanks, "rank", ""},
	{"department", model.CatalogDepartments, "department", ""},
	{"unit", model.CatalogUnits, "unit", "department"},
	{"position", model.CatalogPositions, "position", "unit"},
}

var personAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a personnel record",
	Long: `Create a personnel record.

Catalog values are given by label, the way they are shown in pickers
(e.g. --unit "1st Battalion - Infantry"). Each label is resolved against its
catalog, with units narrowed by the department and positions by the unit.
The PINFL is checked for uniqueness before anything is submitted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pinfl, _ := cmd.Flags().GetString("pinfl")
		first, _ := cmd.Flags().GetString("first-name")
		last, _ := cmd.Flags().GetString("last-name")
		middle, _ := cmd.Flags().GetString("middle-name")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		form, cleanup, err := newForm(ctx, picker.WithGate(picker.GateConfig{}))
		if err != nil {
			return err
		}
		defer cleanup()

		for _, pf := range personFields {
			label, _ := cmd.Flags().GetString(pf.flag)
			initial := model.NoSelection
			if label != "" {
				initial = model.PendingByLabel(label)
			}
			if err := form.AddField(picker.FieldConfig{
				Name:     pf.name,
				Catalog:  pf.catalog,
				Initial:  initial,
				Required: pf.name == "rank" || pf.name == "unit",
			}); err != nil {
				return err
			}
		}
		for _, pf := range personFields {
			if pf.parent == "" {
				continue
			}
			if err := form.Depend(pf.name, pf.parent, pf.catalog.ParentFilter()); err != nil {
				return err
			}
		}
		if err := form.SetIdentity(pinfl); err != nil {
			return err
		}
		if err := form.Idle(ctx); err != nil {
			return err
		}

		if err := form.Validate(); err != nil {
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				fmt.Println(ui.RenderError("Cannot create record:"))
				printValidation(err)
				return fmt.Errorf("%d field(s) need attention", len(ve.Errors))
			}
			return err
		}

		sel := make(map[string]model.Selection, len(personFields))
		for _, pf := range personFields {
			st, err := form.Field(pf.name)
			if err != nil {
				return err
			}
			sel[pf.name] = st.Selection
		}
		p, err := catalogClient.CreatePerson(ctx, &client.CreatePersonRequest{
			PINFL:      pinfl,
			FirstName:  first,
			LastName:   last,
			MiddleName: middle,
			RankID:     sel["rank"].ID(),
			UnitID:     sel["unit"].ID(),
			PositionID: sel["position"].ID(),
		})
		if client.IsConflict(err) {
			return fmt.Errorf("a person with PINFL %s is already on record", pinfl)
		}
		if err != nil {
			return fmt.Errorf("creating person: %w", err)
		}
		if jsonOutput {
			printJSON(p)
			return nil
		}
		fmt.Printf("%s Created person #%d: %s\n", ui.RenderOK("✓"), p.ID, p.FullName())
		return nil
	},
}

var personShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a personnel record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid person id %q", args[0])
		}
		p, err := catalogClient.GetPerson(context.Background(), id)
		if client.IsNotFound(err) {
			return fmt.Errorf("no person with id %d", id)
		}
		if err != nil {
			return fmt.Errorf("getting person %d: %w", id, err)
		}
		printPerson(p)
		return nil
	},
}

func init() {
	f := personAddCmd.Flags()
	f.String("pinfl", "", "personal identification number (14 digits)")
	f.String("first-name", "", "first name")
	f.String("last-name", "", "last name")
	f.String("middle-name", "", "middle name")
	for _, pf := range personFields {
		f.String(pf.flag, "", pf.catalog.String()+" label")
	}
	_ = personAddCmd.MarkFlagRequired("pinfl")
	_ = personAddCmd.MarkFlagRequired("first-name")
	_ = personAddCmd.MarkFlagRequired("last-name")

	personCmd.AddCommand(personAddCmd)
	personCmd.AddCommand(personShowCmd)
}
