package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ouywm/confrs/constants/lipgloss"
	"github.com/ouywm/confrs/struct_analyzer/models"
	"github.com/ouywm/confrs/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// resolveCmd: confrs resolve <dotted.path>
var resolveCmd = &cobra.Command{
	Use:   "resolve [dotted.path]",
	Short: "Resolve a dotted configuration key to the struct field that consumes it.",
	Long: `The 'resolve' subcommand walks a dotted configuration key (such as
'web.server.port') from its section prefix down through nested structs and
reports the declaration and field it lands on. Use --from to resolve the key
as seen from a particular source file, and --show-source to print the
highlighted declaration.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fromFile, _ := cmd.Flags().GetString("from")
		showSource, _ := cmd.Flags().GetBool("show-source")

		rootDependencies := handleRootCommand(cmd)
		if rootDependencies == nil {
			return
		}
		handleResolveCommand(rootDependencies, args[0], fromFile, showSource)
	},
}

func init() {
	resolveCmd.Flags().String("from", "", "Source file the key is resolved from, used to narrow prefix collisions")
	resolveCmd.Flags().Bool("show-source", false, "Print the highlighted Rust declaration of the resolved struct")

	rootCmd.AddCommand(resolveCmd)
}

func handleResolveCommand(rootDependencies *RootDependencies, dottedPath, fromFile string, showSource bool) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").WithDelay(100).WithRemoveWhenDone(true)

	spinnerScan, _ := spinner.Start("Scanning workspace...")

	// The longest matching section prefix owns the leading segments; the
	// remainder of the path walks fields from there.
	segments := strings.Split(dottedPath, ".")

	decl, err := rootDependencies.Analyzer.ResolveStructForSection(ctx, dottedPath, fromFile)
	if err == nil && decl != nil {
		spinnerScan.Stop()
		fmt.Print("\r")
		printResolvedStruct(rootDependencies, dottedPath, decl, showSource)
		return
	}

	for i := len(segments) - 1; i > 0 && err == nil; i-- {
		section := strings.Join(segments[:i], ".")
		owner, resolveErr := rootDependencies.Analyzer.ResolveStructForSection(ctx, section, fromFile)
		if resolveErr != nil {
			err = resolveErr
			break
		}
		if owner == nil {
			continue
		}

		field, fieldErr := rootDependencies.Analyzer.ResolveFieldForKeyPath(ctx, owner, strings.Join(segments[i:], "."))
		if fieldErr != nil {
			err = fieldErr
			break
		}

		spinnerScan.Stop()
		fmt.Print("\r")

		if field == nil {
			fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Section '%s' resolved to %s, but no field matches '%s'.", section, owner.FQN, strings.Join(segments[i:], "."))))
			return
		}

		printResolvedField(rootDependencies, dottedPath, owner, field, showSource)
		return
	}

	spinnerScan.Stop()
	fmt.Print("\r")

	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}

	fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("No configuration struct matches '%s'.", dottedPath)))
}

func printResolvedStruct(rootDependencies *RootDependencies, dottedPath string, decl *models.Declaration, showSource bool) {
	summary := fmt.Sprintf("%s\n  struct  %s\n  file    %s:%d\n  scope   %s", dottedPath, decl.FQN, decl.File, decl.Line, decl.Scope)
	if doc := decl.Doc(); doc != "" {
		summary += fmt.Sprintf("\n  doc     %s", doc)
	}
	fmt.Println(lipgloss.BoxStyle.Render(summary))

	if showSource {
		printDeclarationSource(rootDependencies, decl)
	}
}

func printResolvedField(rootDependencies *RootDependencies, dottedPath string, owner *models.Declaration, field *models.Field, showSource bool) {
	summary := fmt.Sprintf("%s\n  field   %s: %s\n  struct  %s\n  file    %s:%d", dottedPath, field.LookupName(), field.TypeText, owner.FQN, owner.File, owner.Line)
	if field.DefaultValue != "" {
		summary += fmt.Sprintf("\n  default %s", field.DefaultValue)
	}
	if doc := field.Doc(); doc != "" {
		summary += fmt.Sprintf("\n  doc     %s", doc)
	}
	fmt.Println(lipgloss.BoxStyle.Render(summary))

	if showSource {
		printDeclarationSource(rootDependencies, owner)
	}
}

func printDeclarationSource(rootDependencies *RootDependencies, decl *models.Declaration) {
	snippet, err := utils.ReadDeclarationSnippet(decl.File, decl.Line)
	if err != nil {
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Warning: could not read source: %v", err)))
		return
	}
	if err := utils.RenderRustSnippet(snippet, rootDependencies.Config.Theme); err != nil {
		fmt.Println(snippet)
	}
}
