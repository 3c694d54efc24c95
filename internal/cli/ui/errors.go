package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// NotFoundOptions configures a not-found error block
type NotFoundOptions struct {
	// Kind names what was looked up, e.g. "class" or "snapshot"
	Kind string
	// Name is the identifier that failed to resolve
	Name string
	// Suggestions lists close matches for a did-you-mean line
	Suggestions []string
	// HelpCommands lists follow-up commands, rendered one per line
	HelpCommands []string
}

// WriteNotFound writes a standardized not-found error block.
//
// Example output:
//
//	✗ CLASS NOT FOUND: Usr
//
//	  Did you mean: User?
//
//	  → List all classes: declkit inspect classes
func WriteNotFound(w io.Writer, opts NotFoundOptions) {
	headerColor := color.New(color.FgRed, color.Bold)
	headerColor.Fprintf(w, "✗ %s NOT FOUND: %s\n", strings.ToUpper(opts.Kind), opts.Name)

	if len(opts.Suggestions) > 0 {
		fmt.Fprintln(w)
		suggestionColor := color.New(color.FgYellow)
		suggestionColor.Fprintf(w, "  Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		fmt.Fprintln(w)
		helpColor := color.New(color.FgCyan)
		for _, cmd := range opts.HelpCommands {
			helpColor.Fprintf(w, "  → %s\n", cmd)
		}
	}
}

// Successf writes a green check-marked message
func Successf(w io.Writer, format string, args ...interface{}) {
	successColor := color.New(color.FgGreen, color.Bold)
	successColor.Fprintf(w, "✓ "+format+"\n", args...)
}

// Warnf writes a yellow warning message
func Warnf(w io.Writer, format string, args ...interface{}) {
	warnColor := color.New(color.FgYellow)
	warnColor.Fprintf(w, "Warning: "+format+"\n", args...)
}
