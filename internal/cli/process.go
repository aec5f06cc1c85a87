package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"doc-recognizer/internal/domain"
	"doc-recognizer/internal/export"
	"doc-recognizer/internal/jobs"
	"doc-recognizer/internal/resolve"
)

var (
	flagLanguages []string
	flagClass     string
	flagFormat    string
	flagOutputDir string
)

var processCmd = &cobra.Command{
	Use:   "process <file>...",
	Short: "Recognize text in one or more documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().StringSliceVarP(&flagLanguages, "lang", "l", nil, "recognition languages (defaults to configured languages)")
	processCmd.Flags().StringVar(&flagClass, "class", "", "force content class (raster, multipage, compound)")
	processCmd.Flags().StringVarP(&flagFormat, "format", "f", "txt", "export format (txt, md)")
	processCmd.Flags().StringVarP(&flagOutputDir, "output", "o", "", "export directory (defaults to configured output directory)")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	languages := flagLanguages
	if len(languages) == 0 {
		languages = application.settings.Languages
	}
	outputDir := flagOutputDir
	if outputDir == "" {
		outputDir = application.settings.OutputDir
	}
	format := export.Format(flagFormat)

	submitted := make([]string, 0, len(args))
	for _, path := range args {
		class, err := classifyArg(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		jobID, err := application.orchestrator.Submit(jobs.SubmitRequest{
			Name:         filepath.Base(path),
			Content:      content,
			ContentClass: class,
			Languages:    languages,
		})
		if err != nil {
			return fmt.Errorf("submit %s: %w", path, err)
		}
		submitted = append(submitted, jobID)
	}

	application.orchestrator.Wait()

	failed := 0
	for _, jobID := range submitted {
		job, err := application.orchestrator.Snapshot(jobID)
		if err != nil {
			return err
		}
		printJob(cmd, job)
		if job.Status != domain.JobStatusCompleted {
			failed++
			continue
		}
		path, err := export.Write(outputDir, job, format)
		if err != nil {
			return fmt.Errorf("export %s: %w", job.Name, err)
		}
		cmd.Printf("  exported to %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(submitted))
	}
	return nil
}

// classifyArg applies the --class override or sniffs the class from the path.
func classifyArg(path string) (domain.ContentClass, error) {
	if flagClass == "" {
		return resolve.ClassifyPath(path)
	}
	class := domain.ContentClass(flagClass)
	if !class.IsValid() {
		return "", fmt.Errorf("%w: unknown content class %q", domain.ErrInvalidInput, flagClass)
	}
	return class, nil
}

func printJob(cmd *cobra.Command, job domain.Job) {
	cmd.Printf("%s: %s", job.Name, job.Status)
	if job.Status == domain.JobStatusCompleted {
		cmd.Printf(" (%d pages)", len(job.Segments))
	}
	if job.Error != "" {
		cmd.Printf(": %s", job.Error)
	}
	cmd.Println()
	for _, warning := range job.Warnings {
		cmd.Printf("  warning: %s\n", strings.TrimSpace(warning))
	}
}
