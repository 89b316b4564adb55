package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var galleryJSON bool

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Reconcile the metadata store with the originals area",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		lib, closeFn, err := openLibrary(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := lib.Reconcile(ctx, "cli")
		if err != nil {
			return fmt.Errorf("rescan failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Scan complete. New: %d. Updated: %d.\n", res.Created, res.Updated)
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate-thumbnails",
	Short: "Rebuild the thumbnail of every supported original",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		lib, closeFn, err := openLibrary(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		start := time.Now()
		res, err := lib.GenerateAll(ctx)
		if err != nil {
			return fmt.Errorf("thumbnail generation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated %d thumbnails, %d failed (%s)\n",
			res.Generated, res.Failed, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Delete every thumbnail",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		lib, closeFn, err := openLibrary(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := lib.ClearCache(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Thumbnail cache cleared")
		return nil
	},
}

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Print the gallery, newest capture first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		lib, closeFn, err := openLibrary(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		items := lib.Gallery(ctx)
		out := cmd.OutOrStdout()
		if galleryJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CAPTURED\tTYPE\tFILENAME")
		for _, it := range items {
			captured := time.Unix(0, int64(it.Timestamp*float64(time.Second))).UTC().Format(time.RFC3339)
			fmt.Fprintf(tw, "%s\t%s\t%s\n", captured, it.Type, it.Filename)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d items\n", len(items))
		return nil
	},
}

func init() {
	galleryCmd.Flags().BoolVar(&galleryJSON, "json", false, "Print the gallery as JSON")

	rootCmd.AddCommand(rescanCmd, generateCmd, clearCacheCmd, galleryCmd)
}
