package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage language artifacts",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known language artifacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tLABEL\tORIGIN\tSIZE\tCACHED")
		for _, artifact := range application.registry.List() {
			cached := "no"
			if artifact.Cached {
				cached = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				artifact.Code, artifact.Label, artifact.Origin, artifact.SizeLabel, cached)
		}
		return w.Flush()
	},
}

var modelsFetchCmd = &cobra.Command{
	Use:   "fetch <code>...",
	Short: "Download language artifacts into the local cache",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, code := range args {
			if err := application.cache.EnsureCached(cmd.Context(), code); err != nil {
				return fmt.Errorf("fetch %s: %w", code, err)
			}
			cmd.Printf("%s cached\n", code)
		}
		return nil
	},
}

var modelsImportCmd = &cobra.Command{
	Use:   "import <code> <file>",
	Short: "Import a language artifact from a local file",
	Long: `Import registers a traineddata file from disk under the given language
code. Plain, gzip-compressed, and zip-packed payloads are accepted.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, path := args[0], args[1]
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		artifact, err := application.cache.ImportFromBytes(code, code, raw)
		if err != nil {
			return fmt.Errorf("import %s: %w", code, err)
		}
		cmd.Printf("%s imported to %s\n", artifact.Code, artifact.LocalPath)
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd, modelsFetchCmd, modelsImportCmd)
	rootCmd.AddCommand(modelsCmd)
}
