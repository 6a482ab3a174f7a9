package utils

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// RenderRustSnippet prints a Rust source snippet with terminal syntax
// highlighting. Falls back to plain output when highlighting fails.
func RenderRustSnippet(source string, theme string) error {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, source, "rust", "terminal256", theme); err != nil {
		fmt.Println(source)
		return err
	}
	fmt.Print(buf.String())
	if !strings.HasSuffix(source, "\n") {
		fmt.Println()
	}
	return nil
}

// ReadDeclarationSnippet reads the source lines of a declaration starting
// at the given 1-based line, up to and including its closing brace.
func ReadDeclarationSnippet(file string, startLine int) (string, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}

	lines := strings.Split(string(content), "\n")
	if startLine < 1 || startLine > len(lines) {
		return "", fmt.Errorf("line %d out of range for %s", startLine, file)
	}

	depth := 0
	opened := false
	var snippet []string
	for _, line := range lines[startLine-1:] {
		snippet = append(snippet, line)
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if strings.Contains(line, "{") {
			opened = true
		}
		if opened && depth <= 0 {
			break
		}
		// Unit structs end at the first semicolon without a body.
		if !opened && strings.Contains(line, ";") {
			break
		}
	}

	return strings.Join(snippet, "\n"), nil
}
