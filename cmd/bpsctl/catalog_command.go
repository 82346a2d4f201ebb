package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/service"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and maintain the production stage catalog",
	}

	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogSeedCommand(ctx))
	catalogCmd.AddCommand(newCatalogReorderCommand(ctx))

	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the stages in catalog order",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			catalog, err := manager.Catalog.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, catalog.View())
			}
			printCatalog(cmd.OutOrStdout(), catalog)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCatalogSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load stages from a YAML file into an empty catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			stages, err := service.LoadCatalogSeedFile(args[0])
			if err != nil {
				return err
			}
			n, err := manager.Catalog.Seed(cmd.Context(), stages)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Catalog already has stages; nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d stages\n", n)
			return nil
		},
	}
}

func newCatalogReorderCommand(ctx *commandContext) *cobra.Command {
	var expected int64
	cmd := &cobra.Command{
		Use:   "reorder <stage-id>...",
		Short: "Replace the catalog order; every stage id must be listed exactly once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid stage id %q: %w", arg, err)
				}
				order = append(order, id)
			}

			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}
			reorder := model.ReorderCommand{Order: order}
			if cmd.Flags().Changed("expected-version") {
				reorder.ExpectedVersion = &expected
			}
			catalog, err := manager.Catalog.Reorder(cmd.Context(), reorder)
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), catalog)
			return nil
		},
	}
	cmd.Flags().Int64Var(&expected, "expected-version", 0, "Fail unless the catalog is still at this version")
	return cmd
}

func printCatalog(out io.Writer, catalog *model.StageCatalog) {
	fmt.Fprintf(out, "Catalog version %d\n", catalog.Version())
	tasks := catalog.Tasks()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No stages")
		return
	}
	rows := make([][]string, 0, len(tasks))
	for i, task := range tasks {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			task.Name,
			string(task.Phase),
			task.ID.String(),
		})
	}
	fmt.Fprintln(out, tableSpec{
		headers: []string{"#", "Stage", "Phase", "ID"},
		numeric: []int{1},
	}.render(rows))
}
