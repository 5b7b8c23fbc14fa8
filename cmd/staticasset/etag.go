package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sagarc03/staticasset"
)

var etagCmd = &cobra.Command{
	Use:   "etag <file>...",
	Short: "Print the entity tags of files",
	Long: `Print the entity tag the server would send for each file.

Examples:
  staticasset etag public/app.js public/style.css`,
	Args: cobra.MinimumNArgs(1),
	RunE: runETag,
}

func init() {
	rootCmd.AddCommand(etagCmd)
}

func runETag(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, name := range args {
		tag, size, err := hashFile(name)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", tag, size, name)
	}
	return w.Flush()
}

func hashFile(name string) (staticasset.EntityTag, int64, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()

	tag, size, err := staticasset.HashReader(f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", name, err)
	}
	return tag, size, nil
}
