package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/staticasset"
	"github.com/sagarc03/staticasset/config"
	"github.com/sagarc03/staticasset/filesystem"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest [dir]",
	Short: "Write a YAML manifest of the asset directory",
	Long: `Write a YAML manifest describing every asset in a directory.

Each entry carries the path, size, entity tag, content type and modification
time the server would use at runtime. Build pipelines embed assets together
with the manifest and serve them through staticasset.MustEmbed.

When no directory is given the configured asset path is used.

Examples:
  # Print the manifest of ./public
  staticasset manifest

  # Write the manifest of ./dist to a file
  staticasset manifest ./dist -o manifest.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runManifest,
}

func init() {
	manifestCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(manifestCmd)
}

// manifestDocument is the YAML layout written by the manifest command.
type manifestDocument struct {
	Files []staticasset.EmbeddedFile `yaml:"files"`
}

func runManifest(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	dir := cfg.Assets.Path
	if len(args) == 1 {
		dir = args[0]
	}

	matcher, err := cfg.Assets.Matcher()
	if err != nil {
		return err
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("open asset root: %w", err)
	}
	defer func() { _ = root.Close() }()

	files, err := filesystem.NewSource(root, nil).Manifest(cmd.Context(), matcher)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				slog.Warn("failed to close output", "file", output, "err", closeErr)
			}
		}()
		out = f
	}

	if err := writeManifest(out, files); err != nil {
		return err
	}
	slog.Debug("wrote manifest", "dir", dir, "files", len(files))
	return nil
}

func writeManifest(w io.Writer, files []staticasset.EmbeddedFile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(manifestDocument{Files: files}); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return enc.Close()
}
