package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kadr/internal/client"
	"github.com/alfredjeanlab/kadr/internal/model"
)

var optionsCmd = &cobra.Command{
	Use:     "options <catalog>",
	Short:   "List one page of a catalog",
	GroupID: "catalogs",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := model.Catalog(args[0])
		if !catalog.IsValid() {
			return fmt.Errorf("unknown catalog %q (one of %s)", args[0], catalogNames())
		}
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		search, _ := cmd.Flags().GetString("search")
		filterArgs, _ := cmd.Flags().GetStringArray("filter")

		filters, err := parseFilters(filterArgs)
		if err != nil {
			return err
		}

		resp, err := catalogClient.ListOptions(context.Background(), &client.ListOptionsRequest{
			Catalog:  catalog,
			Page:     page,
			PageSize: pageSize,
			Search:   search,
			Filters:  filters,
		})
		if err != nil {
			return fmt.Errorf("listing %s: %w", catalog, err)
		}

		if jsonOutput {
			printJSON(resp)
			return nil
		}
		if len(resp.Results) == 0 {
			fmt.Println("No options found.")
			return nil
		}
		printCatalogItems(resp.Results, model.FormatterFor(catalog), resp.Total)
		return nil
	},
}

// parseFilters turns repeated key=value flags into a filter map.
func parseFilters(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid filter %q (expected key=value)", arg)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func catalogNames() string {
	names := make([]string, 0, len(model.Catalogs()))
	for _, c := range model.Catalogs() {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}

func init() {
	optionsCmd.Flags().Int("page", 1, "page number")
	optionsCmd.Flags().Int("page-size", 20, "rows per page")
	optionsCmd.Flags().StringP("search", "s", "", "search term")
	optionsCmd.Flags().StringArrayP("filter", "f", nil, "parent filter as key=value (repeatable)")
}
