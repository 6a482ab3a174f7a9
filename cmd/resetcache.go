package cmd

import (
	"bufio"
	"fmt"
	"github.com/ouywm/confrs/constants/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"os"
	"strings"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the index snapshot cache for confrs",
	Long: `The 'reset-cache' command drops the in-memory index snapshots and removes the
persisted snapshot files from the cache directory. Use this command to clear a
corrupted cache or when experiencing cache-related issues.`,
	Run: func(cmd *cobra.Command, args []string) {
		var force bool
		var stats bool

		// Parse flags
		force, _ = cmd.Flags().GetBool("force")
		stats, _ = cmd.Flags().GetBool("stats")

		// Handle reset-cache command
		handleResetCacheCommand(force, stats, cmd)
	},
}

func init() {
	// Define command-specific flags
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics before reset")

	// Add the reset-cache command to the root command
	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(force bool, showStats bool, cmd *cobra.Command) {
	// Initialize the analyzer with cache enabled
	rootDependencies := handleRootCommand(cmd)
	if rootDependencies == nil {
		return
	}

	// Show cache statistics if requested
	if showStats && rootDependencies.Analyzer != nil {
		fmt.Println(lipgloss.Info.Render("Cache Statistics:"))
		cacheStats := rootDependencies.Analyzer.CacheStats()

		if dir, ok := cacheStats["cache_dir"].(string); ok && dir != "" {
			fmt.Printf("  Cache Directory: %s\n", dir)
		} else {
			fmt.Println("  Persisted snapshots are disabled")
		}
		if slots, ok := cacheStats["populated_slots"].(int); ok {
			fmt.Printf("  Populated Slots: %d\n", slots)
		}
		if requests, ok := cacheStats["total_requests"].(int64); ok {
			fmt.Printf("  Total Requests: %d\n", requests)
		}
		if hits, ok := cacheStats["cache_hits"].(int64); ok {
			fmt.Printf("  Cache Hits: %d\n", hits)
		}
		if misses, ok := cacheStats["cache_misses"].(int64); ok {
			fmt.Printf("  Cache Misses: %d\n", misses)
		}
		if rebuilds, ok := cacheStats["rebuilds"].(int64); ok {
			fmt.Printf("  Rebuilds: %d\n", rebuilds)
		}
		if hitRate, ok := cacheStats["hit_rate_percent"].(float64); ok {
			fmt.Printf("  Hit Rate: %.1f%%\n", hitRate)
		}

		// Only show stats, skip the actual reset
		return
	}

	// Confirm reset for full cache reset (if not forced)
	if !force {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Are you sure you want to reset the snapshot cache? (y/N): ")
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println(lipgloss.Yellow.Render("Cache reset cancelled."))
			return
		}
	}

	// Reset the cache
	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)

	spinnerInstance, _ := spinner.Start("Resetting snapshot cache...")

	// Clear cache using the analyzer's snapshot cache
	if rootDependencies.Analyzer == nil {
		spinnerInstance.Stop()
		fmt.Print("\r")
		fmt.Println(lipgloss.Yellow.Render("Cache is disabled. No cache to reset."))
		return
	}

	err := rootDependencies.Analyzer.ClearCache()
	if err != nil {
		spinnerInstance.Stop()
		fmt.Print("\r")
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error resetting cache: %v", err)))
		return
	}

	spinnerInstance.Stop()
	fmt.Print("\r")
	fmt.Println(lipgloss.Green.Render("✓ Snapshot cache has been successfully reset!"))
}
