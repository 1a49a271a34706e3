package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/clusterfit/vikhlinin/internal/store"
)

var (
	resultsDataDir string
	keepLast       int
	olderThanDays  int
	forceClean     bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage stored fit results",
	Long: `Manage fit results saved by the fit command or the HTTP service,
including listing, inspecting and cleaning old results.`,
}

var listResultsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored results",
	RunE:  runListResults,
}

var showResultCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one stored result in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowResult,
}

var cleanResultsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old results",
	Long: `Delete stored results based on retention policy. Results can be kept
by count or dropped past an age in days.`,
	RunE: runCleanResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.AddCommand(listResultsCmd)
	resultsCmd.AddCommand(showResultCmd)
	resultsCmd.AddCommand(cleanResultsCmd)

	resultsCmd.PersistentFlags().StringVar(&resultsDataDir, "data-dir", "./data", "Base directory for stored results")

	cleanResultsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N results (0 = keep all)")
	cleanResultsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete results older than N days (0 = no age limit)")
	cleanResultsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListResults(cmd *cobra.Command, args []string) error {
	st, err := store.NewFSStore(resultsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}

	infos, err := st.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tPOINTS\tSUCCESS\tRESIDUAL\tSIZE")
	fmt.Fprintln(w, "--\t-------\t------\t-------\t--------\t----")

	for _, info := range infos {
		size, err := getDirSize(filepath.Join(resultsDataDir, "fits", info.ID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%.3g\t%s\n",
			shortID(info.ID),
			info.CreatedAt.Format("2006-01-02 15:04:05"),
			info.Points,
			info.Success,
			info.Residual,
			sizeStr,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal results: %d\n", len(infos))
	return nil
}

func runShowResult(cmd *cobra.Command, args []string) error {
	st, err := store.NewFSStore(resultsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}

	result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Result: %s\n", result.ID)
	fmt.Printf("Created: %s\n", result.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Fingerprint: %s\n", result.Fingerprint)
	fmt.Printf("Points: %d (%s, %s)\n", len(result.Radii), result.RadiusUnit, result.DensityUnit)
	fmt.Println()

	fmt.Println("Parameters:")
	fmt.Printf("  n0: %g %s\n", result.Params.N0, result.DensityUnit)
	fmt.Printf("  r_core: %g %s\n", result.Params.RCore, result.RadiusUnit)
	fmt.Printf("  r_scale: %g %s\n", result.Params.RScale, result.RadiusUnit)
	fmt.Printf("  alpha: %g\n", result.Params.Alpha)
	fmt.Printf("  beta: %g\n", result.Params.Beta)
	fmt.Printf("  epsilon: %g\n", result.Params.Epsilon)
	fmt.Println()

	fmt.Println("Optimizer:")
	fmt.Printf("  Success: %t\n", result.Success)
	fmt.Printf("  Message: %s\n", result.Message)
	fmt.Printf("  Iterations: %d\n", result.Iterations)
	fmt.Printf("  Residual: %g\n", result.Residual)

	return nil
}

func runCleanResults(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	st, err := store.NewFSStore(resultsDataDir)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}

	infos, err := st.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No results to clean.")
		return nil
	}

	toDelete := selectResultsForDeletion(infos, keepLast, olderThanDays)

	if len(toDelete) == 0 {
		fmt.Println("No results match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d result(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s)\n", shortID(info.ID), info.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := st.DeleteResult(info.ID); err != nil {
			slog.Error("Failed to delete result", "id", info.ID, "error", err)
			failed++
		} else {
			slog.Info("Deleted result", "id", info.ID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d result(s), %d failed.\n", deleted, failed)
	return nil
}

// selectResultsForDeletion applies the retention policy: results past
// the age limit go, and beyond that the oldest go until only keepLast
// remain.
func selectResultsForDeletion(infos []store.ResultInfo, keepLast, olderThanDays int) []store.ResultInfo {
	var toDelete []store.ResultInfo
	marked := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.CreatedAt.Before(cutoff) {
				toDelete = append(toDelete, info)
				marked[info.ID] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.ResultInfo, len(infos))
		copy(sorted, infos)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})

		for _, info := range sorted[:len(sorted)-keepLast] {
			if !marked[info.ID] {
				toDelete = append(toDelete, info)
				marked[info.ID] = true
			}
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
