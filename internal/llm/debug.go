package llm

import (
	"fmt"
	"os"
)

func debugSection(enabled bool, title, body string) {
	if !enabled {
		return
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "=== DEBUG: %s ===\n", title)
	if body != "" {
		fmt.Fprintln(os.Stderr, body)
	}
	fmt.Fprintf(os.Stderr, "=== DEBUG: END %s ===\n", title)
	fmt.Fprintln(os.Stderr)
}
