package main

import (
	"fmt"
	"os"
	"time"

	"rentalhub/internal/app"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the rental table or indexes for the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.Application) error {
				if err := a.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %s store\n", a.Config.StoreDriver)
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample rentals with generated images",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.Application) error {
				if err := a.Migrate(cmd.Context()); err != nil {
					return err
				}
				created, err := seedRentals(cmd.Context(), a.Service(), count)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d rentals\n", created)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", len(sampleRentals), "number of rentals to create")
	return cmd
}

func exportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every rental to an xlsx or csv file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.Application) error {
				file, err := a.Service().Export(cmd.Context(), format)
				if err != nil {
					return err
				}
				if output == "" {
					output = file.Filename
				}
				if output == "-" {
					_, err = cmd.OutOrStdout().Write(file.Data)
					return err
				}
				if err := os.WriteFile(output, file.Data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", output, len(file.Data))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "xlsx or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, - for stdout (default rentals.<format>)")
	return cmd
}

func pruneImagesCmd() *cobra.Command {
	var (
		dryRun bool
		minAge time.Duration
	)
	cmd := &cobra.Command{
		Use:   "prune-images",
		Short: "Delete stored images no rental references",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.Application) error {
				keys, err := a.Service().PruneImages(cmd.Context(), minAge, dryRun)
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				if err != nil {
					return err
				}
				verb := "deleted"
				if dryRun {
					verb = "would delete"
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %d orphan images\n", verb, len(keys))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list orphans without deleting them")
	cmd.Flags().DurationVar(&minAge, "min-age", time.Hour, "skip files modified more recently than this")
	return cmd
}
