package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/picker"
)

var checkPINFLCmd = &cobra.Command{
	Use:     "check-pinfl <pinfl>",
	Short:   "Check whether a PINFL is already on record",
	GroupID: "personnel",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		original, _ := cmd.Flags().GetString("original")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		form, cleanup, err := newForm(ctx, picker.WithGate(picker.GateConfig{Original: original}))
		if err != nil {
			return err
		}
		defer cleanup()

		if err := form.SetIdentity(args[0]); err != nil {
			return err
		}
		if err := form.Idle(ctx); err != nil {
			return err
		}
		v, err := form.Identity()
		if err != nil {
			return err
		}
		printVerdict(v)

		switch {
		case v.Err != nil:
			return fmt.Errorf("identity check failed: %w", v.Err)
		case v.Status == picker.StatusExists:
			return fmt.Errorf("PINFL %s is already on record", v.Value)
		case v.Status == picker.StatusUnknown:
			return fmt.Errorf("PINFL %q was not checked (must be %d digits)", v.Value, model.PINFLLength)
		}
		return nil
	},
}

func init() {
	checkPINFLCmd.Flags().String("original", "", "PINFL already stored on the record being edited")
}
