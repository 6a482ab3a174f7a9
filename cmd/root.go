package cmd

import (
	"fmt"
	"os"

	"github.com/ouywm/confrs/cargo_workspace"
	"github.com/ouywm/confrs/config"
	"github.com/ouywm/confrs/constants/lipgloss"
	"github.com/ouywm/confrs/struct_analyzer"
	"github.com/ouywm/confrs/struct_analyzer/contracts"
	"github.com/spf13/cobra"
)

// RootDependencies holds the wired-up services shared by every subcommand.
type RootDependencies struct {
	Config    *config.Config
	Cwd       string
	Workspace *cargo_workspace.Workspace
	Analyzer  contracts.IStructAnalyzer
}

// rootCmd: confrs
var rootCmd = &cobra.Command{
	Use:   "confrs",
	Short: "confrs resolves dotted configuration keys against Rust configuration structs.",
	Long: `confrs scans a Rust workspace for configuration structs, builds an index of
their prefixes and fields, and resolves dotted configuration keys (such as
'web.server.port') to the struct field that consumes them.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Check if the version flag is set
		if versionFlag, _ := cmd.Flags().GetBool("version"); versionFlag {
			fmt.Println(config.DefaultConfig.Version)
			return
		}

		_ = cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd)
}

// handleRootCommand loads configuration and wires the workspace and analyzer.
func handleRootCommand(cmd *cobra.Command) *RootDependencies {
	// Get the current working directory
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error getting current directory: %v", err)))
		return nil
	}

	rootDependencies := &RootDependencies{}

	rootDependencies.Cwd = cwd
	rootDependencies.Config = config.LoadConfigWithCache(cmd, cwd)

	workspaceRoot := rootDependencies.Config.WorkspaceRoot
	if workspaceRoot == "" || workspaceRoot == "." {
		workspaceRoot = cwd
	}

	rootDependencies.Workspace, err = cargo_workspace.NewWorkspace(workspaceRoot, rootDependencies.Config.DependencyRoots)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error opening workspace: %v", err)))
		return nil
	}

	cacheDir := ""
	if rootDependencies.Config.EnableCache {
		cacheDir = rootDependencies.Config.CacheDir
	}

	rootDependencies.Analyzer, err = struct_analyzer.NewStructAnalyzer(rootDependencies.Workspace, rootDependencies.Config.Features, cacheDir)
	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error initializing analyzer: %v", err)))
		return nil
	}

	return rootDependencies
}
