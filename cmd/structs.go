package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ouywm/confrs/constants/lipgloss"
	"github.com/ouywm/confrs/struct_analyzer"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// structsCmd: confrs structs
var structsCmd = &cobra.Command{
	Use:   "structs",
	Short: "List all configuration root structs found in the workspace.",
	Long: `The 'structs' subcommand scans the workspace and lists every configuration
root struct together with its prefix, source file, and scope (project or
dependency). Project declarations shadow dependency ones with the same path.`,
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleStructsCommand(rootDependencies)
	},
}

func init() {
	rootCmd.AddCommand(structsCmd)
}

func handleStructsCommand(rootDependencies *RootDependencies) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").WithDelay(100).WithRemoveWhenDone(true)

	spinnerScan, _ := spinner.Start("Scanning workspace...")

	decls, err := rootDependencies.Analyzer.FindConfigStructs(ctx)

	spinnerScan.Stop()
	fmt.Print("\r")

	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}

	if len(decls) == 0 {
		fmt.Println(lipgloss.Yellow.Render("No configuration structs found."))
		return
	}

	tableData := pterm.TableData{{"Prefix", "Struct", "Scope", "File"}}
	for _, d := range decls {
		prefix, _ := struct_analyzer.ConfigPrefix(d)
		tableData = append(tableData, []string{prefix, d.FQN, d.Scope.String(), fmt.Sprintf("%s:%d", d.File, d.Line)})
	}

	_ = pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}
