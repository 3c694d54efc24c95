package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestWriteNotFound(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	WriteNotFound(&buf, NotFoundOptions{
		Kind:        "class",
		Name:        "Usr",
		Suggestions: []string{"User"},
		HelpCommands: []string{
			"List all classes: declkit inspect classes",
		},
	})

	output := buf.String()

	if !strings.Contains(output, "✗ CLASS NOT FOUND: Usr") {
		t.Errorf("expected header line, got:\n%s", output)
	}
	if !strings.Contains(output, "Did you mean: User?") {
		t.Errorf("expected suggestion line, got:\n%s", output)
	}
	if !strings.Contains(output, "→ List all classes: declkit inspect classes") {
		t.Errorf("expected help command line, got:\n%s", output)
	}
}

func TestWriteNotFoundWithoutSuggestions(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	WriteNotFound(&buf, NotFoundOptions{Kind: "snapshot", Name: "snap-9"})

	output := buf.String()

	if !strings.Contains(output, "✗ SNAPSHOT NOT FOUND: snap-9") {
		t.Errorf("expected header line, got:\n%s", output)
	}
	if strings.Contains(output, "Did you mean") {
		t.Errorf("expected no suggestion line, got:\n%s", output)
	}
}

func TestSuccessf(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	Successf(&buf, "saved snapshot %s", "snap-1")

	if buf.String() != "✓ saved snapshot snap-1\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestWarnf(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	Warnf(&buf, "config not loaded: %s", "bad yaml")

	if buf.String() != "Warning: config not loaded: bad yaml\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
