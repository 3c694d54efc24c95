package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/declkit/declkit/runtime/mirror"
)

// ChangeType represents the type of change between two snapshots
type ChangeType int

const (
	ChangeAddClass ChangeType = iota
	ChangeDropClass
	ChangeParent
	ChangeAddMember
	ChangeDropMember
	ChangeAddMetadata
	ChangeDropMetadata
	ChangeConstructor
)

// String returns the string representation of the change type
func (c ChangeType) String() string {
	switch c {
	case ChangeAddClass:
		return "add_class"
	case ChangeDropClass:
		return "drop_class"
	case ChangeParent:
		return "change_parent"
	case ChangeAddMember:
		return "add_member"
	case ChangeDropMember:
		return "drop_member"
	case ChangeAddMetadata:
		return "add_metadata"
	case ChangeDropMetadata:
		return "drop_metadata"
	case ChangeConstructor:
		return "change_constructor"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the change type as its string form
func (c ChangeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Change represents one detected difference between two snapshots
type Change struct {
	Type     ChangeType `json:"type"`
	Class    string     `json:"class"`
	Detail   string     `json:"detail,omitempty"`
	OldValue string     `json:"old,omitempty"`
	NewValue string     `json:"new,omitempty"`
}

// NewDiffCommand creates the diff command
func NewDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <a.json> <b.json>",
		Short: "Compare two snapshots class by class",
		Long: `Compare two snapshot documents class by class.

Reports classes that appear or disappear between the two snapshots, and for
classes present in both: parent changes, own members added or removed, own
metadata payloads added or removed, and constructor signature changes.
Inherited state is not compared; a change to a parent class is reported on
the parent alone.`,
		Example: `  # Compare two exported snapshots
  declkit diff yesterday.json today.json

  # Machine-readable change list
  declkit diff yesterday.json today.json --format json`,
		Args: cobra.ExactArgs(2),
		RunE: runDiff,
	}
}

func runDiff(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}

	before, err := mirror.ReadSnapshotFile(args[0])
	if err != nil {
		return err
	}
	after, err := mirror.ReadSnapshotFile(args[1])
	if err != nil {
		return err
	}

	changes := computeDiff(before, after)
	writer := cmd.OutOrStdout()

	if wantJSON() {
		if changes == nil {
			changes = []Change{}
		}
		return writeJSON(writer, map[string]interface{}{
			"before":  args[0],
			"after":   args[1],
			"count":   len(changes),
			"changes": changes,
		})
	}

	if len(changes) == 0 {
		fmt.Fprintln(writer, color.GreenString("No differences"))
		return nil
	}

	renderChanges(writer, changes)
	fmt.Fprintln(writer, diffStats(changes))

	return nil
}

// computeDiff computes all changes between two snapshots, ordered by
// qualified class name
func computeDiff(before, after *mirror.Snapshot) []Change {
	oldClasses := classIndex(before)
	newClasses := classIndex(after)
	oldNames := sortedClassNames(oldClasses)
	newNames := sortedClassNames(newClasses)

	var changes []Change

	// Added and dropped classes
	for _, name := range setDifference(newNames, oldNames) {
		c := newClasses[name]
		changes = append(changes, Change{
			Type:   ChangeAddClass,
			Class:  name,
			Detail: fmt.Sprintf("%d members, %d payloads", len(c.Members), len(c.Metadata)),
		})
	}
	for _, name := range setDifference(oldNames, newNames) {
		changes = append(changes, Change{
			Type:  ChangeDropClass,
			Class: name,
		})
	}

	// Changes within classes present in both
	for _, name := range setIntersection(oldNames, newNames) {
		changes = append(changes, diffClass(oldClasses[name], newClasses[name])...)
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Class < changes[j].Class
	})

	return changes
}

// diffClass compares one class's own declarations between two snapshots
func diffClass(before, after *mirror.ClassSnapshot) []Change {
	var changes []Change
	name := after.Qualified

	if before.Parent != after.Parent {
		changes = append(changes, Change{
			Type:     ChangeParent,
			Class:    name,
			OldValue: before.Parent,
			NewValue: after.Parent,
		})
	}

	addedMembers, droppedMembers := multisetDiff(memberLabels(before), memberLabels(after))
	for _, label := range addedMembers {
		changes = append(changes, Change{Type: ChangeAddMember, Class: name, Detail: label})
	}
	for _, label := range droppedMembers {
		changes = append(changes, Change{Type: ChangeDropMember, Class: name, Detail: label})
	}

	addedPayloads, droppedPayloads := multisetDiff(payloadLabels(before), payloadLabels(after))
	for _, label := range addedPayloads {
		changes = append(changes, Change{Type: ChangeAddMetadata, Class: name, Detail: label})
	}
	for _, label := range droppedPayloads {
		changes = append(changes, Change{Type: ChangeDropMetadata, Class: name, Detail: label})
	}

	if oldSig, newSig := constructorSignature(before), constructorSignature(after); oldSig != newSig {
		changes = append(changes, Change{
			Type:     ChangeConstructor,
			Class:    name,
			OldValue: oldSig,
			NewValue: newSig,
		})
	}

	return changes
}

// renderChanges writes the colored change list grouped by class
func renderChanges(w io.Writer, changes []Change) {
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	currentClass := ""
	for _, change := range changes {
		if change.Class != currentClass {
			if currentClass != "" {
				fmt.Fprintln(w)
			}
			cyan.Fprintf(w, "@@ %s @@\n", change.Class)
			currentClass = change.Class
		}

		switch change.Type {
		case ChangeAddClass:
			green.Fprintf(w, "+ class (%s)\n", change.Detail)
		case ChangeDropClass:
			red.Fprintf(w, "- class\n")
		case ChangeParent:
			yellow.Fprintf(w, "~ parent: %s → %s\n", valueOrDash(change.OldValue), valueOrDash(change.NewValue))
		case ChangeAddMember:
			green.Fprintf(w, "+ member %s\n", change.Detail)
		case ChangeDropMember:
			red.Fprintf(w, "- member %s\n", change.Detail)
		case ChangeAddMetadata:
			green.Fprintf(w, "+ metadata %s\n", change.Detail)
		case ChangeDropMetadata:
			red.Fprintf(w, "- metadata %s\n", change.Detail)
		case ChangeConstructor:
			yellow.Fprintf(w, "~ constructor: %s → %s\n", change.OldValue, change.NewValue)
		}
	}
	fmt.Fprintln(w)
}

// diffStats summarizes a change list in one line
func diffStats(changes []Change) string {
	added := 0
	removed := 0
	modified := 0
	for _, change := range changes {
		switch change.Type {
		case ChangeAddClass:
			added++
		case ChangeDropClass:
			removed++
		default:
			modified++
		}
	}
	return fmt.Sprintf("%d classes added, %d removed, %d changes in common classes", added, removed, modified)
}

// classIndex maps a snapshot's classes by qualified name
func classIndex(snap *mirror.Snapshot) map[string]*mirror.ClassSnapshot {
	index := make(map[string]*mirror.ClassSnapshot, len(snap.Classes))
	for i := range snap.Classes {
		index[snap.Classes[i].Qualified] = &snap.Classes[i]
	}
	return index
}

// sortedClassNames returns the index keys in sorted order
func sortedClassNames(index map[string]*mirror.ClassSnapshot) []string {
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// memberLabels renders a class's own members as comparable labels
func memberLabels(c *mirror.ClassSnapshot) []string {
	labels := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		label := fmt.Sprintf("%s (%s)", m.Name, m.Kind)
		if m.Static {
			label = "static " + label
		}
		labels = append(labels, label)
	}
	return labels
}

// payloadLabels renders a class's own payloads as comparable labels. Values
// are part of the label, so a changed payload shows as a drop plus an add.
func payloadLabels(c *mirror.ClassSnapshot) []string {
	labels := make([]string, 0, len(c.Metadata))
	for _, p := range c.Metadata {
		if len(p.Value) == 0 {
			labels = append(labels, p.TypeName)
			continue
		}
		labels = append(labels, fmt.Sprintf("%s %s", p.TypeName, compactJSON(p.Value)))
	}
	return labels
}

// compactJSON renders a raw payload value without insignificant whitespace
func compactJSON(value json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return string(value)
	}
	return buf.String()
}

// constructorSignature renders declared constructor parameter types
func constructorSignature(c *mirror.ClassSnapshot) string {
	return "(" + strings.Join(c.ParamTypes, ", ") + ")"
}

// multisetDiff compares two label multisets and returns what the second
// adds and drops relative to the first, sorted
func multisetDiff(before, after []string) (added, removed []string) {
	counts := make(map[string]int)
	for _, label := range before {
		counts[label]--
	}
	for _, label := range after {
		counts[label]++
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		for n := counts[label]; n > 0; n-- {
			added = append(added, label)
		}
		for n := counts[label]; n < 0; n++ {
			removed = append(removed, label)
		}
	}
	return added, removed
}

// setDifference returns elements of a not present in b, preserving order
func setDifference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, name := range b {
		inB[name] = true
	}

	var out []string
	for _, name := range a {
		if !inB[name] {
			out = append(out, name)
		}
	}
	return out
}

// setIntersection returns elements present in both a and b, in a's order
func setIntersection(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, name := range b {
		inB[name] = true
	}

	var out []string
	for _, name := range a {
		if inB[name] {
			out = append(out, name)
		}
	}
	return out
}
