package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestTable(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, "NAME", "KIND", "STATIC")

	table.AddRow("TableName", "method", "yes")
	table.AddRow("ID", "property", "no")

	table.Render()

	output := buf.String()

	for _, want := range []string{"NAME", "KIND", "STATIC", "TableName", "property", "─"} {
		if !strings.Contains(output, want) {
			t.Errorf("table output missing %q:\n%s", want, output)
		}
	}
}

func TestTableAlignment(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, "A", "B")
	table.AddRow("longvalue", "x")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}

	// Second column starts after the widest first-column value plus two spaces
	if !strings.HasPrefix(lines[2], "longvalue  x") {
		t.Errorf("expected aligned row, got %q", lines[2])
	}
	if strings.HasSuffix(lines[2], " ") {
		t.Errorf("expected no trailing spaces, got %q", lines[2])
	}
}

func TestTableEmpty(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf)
	table.Render()

	if buf.Len() != 0 {
		t.Errorf("expected no output for headerless table, got %q", buf.String())
	}
}

func TestTableLen(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, "NAME")

	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d rows", table.Len())
	}

	table.AddRow("one")
	table.AddRow("two")

	if table.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", table.Len())
	}
}

func TestKeyValue(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	kv := NewKeyValue(&buf)
	kv.AddRow("Name", "User")
	kv.AddRow("Package", "example.com/models")
	kv.Render()

	output := buf.String()

	if !strings.Contains(output, "Name:") {
		t.Errorf("expected key with colon, got:\n%s", output)
	}
	if !strings.Contains(output, "example.com/models") {
		t.Errorf("expected value rendered, got:\n%s", output)
	}

	// Keys are padded to a common width
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Name:    ") {
		t.Errorf("expected padded key, got %q", lines[0])
	}
}

func TestKeyValueEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewKeyValue(&buf).Render()

	if buf.Len() != 0 {
		t.Errorf("expected no output for empty block, got %q", buf.String())
	}
}

func TestSection(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	section := NewSection(&buf, "Metadata")
	section.AddLine("%s = %s", "tableTag", `{"name":"users"}`)
	section.Render()

	output := buf.String()

	if !strings.Contains(output, "Metadata\n") {
		t.Errorf("expected title line, got:\n%s", output)
	}
	if !strings.Contains(output, "  tableTag = ") {
		t.Errorf("expected indented content, got:\n%s", output)
	}
	if !strings.HasSuffix(output, "\n\n") {
		t.Errorf("expected trailing blank line, got %q", output)
	}
}

func TestHeader(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	Header(&buf, "CLASSES")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected title and underline, got %d lines", len(lines))
	}
	if lines[0] != "CLASSES" {
		t.Errorf("expected title 'CLASSES', got %q", lines[0])
	}
	if lines[1] != strings.Repeat("─", len("CLASSES")) {
		t.Errorf("expected underline matching title width, got %q", lines[1])
	}
}
