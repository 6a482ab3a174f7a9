package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ouywm/confrs/constants/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// fieldsCmd: confrs fields <section>
var fieldsCmd = &cobra.Command{
	Use:   "fields [section]",
	Short: "List the configuration fields available under a section prefix.",
	Long: `The 'fields' subcommand resolves a section path (such as 'web.server') to its
configuration struct and lists the fields a configuration file may set under
that prefix, with flattened fields expanded in place.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleFieldsCommand(rootDependencies, args[0])
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}

func handleFieldsCommand(rootDependencies *RootDependencies, section string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").WithDelay(100).WithRemoveWhenDone(true)

	spinnerScan, _ := spinner.Start("Scanning workspace...")

	fields, err := rootDependencies.Analyzer.GetConfigFields(ctx, section)

	spinnerScan.Stop()
	fmt.Print("\r")

	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}

	if fields == nil {
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("No configuration struct found for section '%s'.", section)))
		return
	}

	if len(fields) == 0 {
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Section '%s' has no settable fields.", section)))
		return
	}

	tableData := pterm.TableData{{"Key", "Type", "Default", "Doc"}}
	for _, f := range fields {
		tableData = append(tableData, []string{f.LookupName(), f.TypeText, f.DefaultValue, f.Doc()})
	}

	_ = pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}
