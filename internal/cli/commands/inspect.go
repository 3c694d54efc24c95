package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/declkit/declkit/internal/cli/ui"
	"github.com/declkit/declkit/runtime/mirror"
)

var (
	// Flags shared by the inspect subcommands
	inspectSnapshotPath string
	inspectServerURL    string
)

// NewInspectCommand creates the inspect command group
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Browse the classes recorded in a snapshot",
		Long: `Browse the classes recorded in a snapshot document.

Snapshots are exported by applications that register decorated classes,
either through the introspection server's /api/snapshot endpoint or by
writing one directly. The inspect subcommands read such a document and
answer the same questions the live registry would:
  • which classes are decorated, and with what payloads
  • which members a class declares, and which it inherits
  • how the decorated classes relate through their parent links`,
		Example: `  # List every class in the default snapshot file
  declkit inspect classes

  # Read a specific snapshot document
  declkit inspect classes --snapshot build/registry.json

  # Ask a running introspection server instead of a file
  declkit inspect classes --server http://localhost:7474

  # Show one class with its ancestry and payloads
  declkit inspect class User

  # Instance members merged across the parent chain
  declkit inspect members Admin --all

  # Output in JSON format for tooling
  declkit inspect metadata User --format json`,
	}

	cmd.PersistentFlags().StringVar(&inspectSnapshotPath, "snapshot", "declkit.snapshot.json", "Path to a snapshot document")
	cmd.PersistentFlags().StringVar(&inspectServerURL, "server", "", "Base URL of an introspection server to fetch the snapshot from")

	cmd.AddCommand(newInspectClassesCommand())
	cmd.AddCommand(newInspectClassCommand())
	cmd.AddCommand(newInspectMembersCommand())
	cmd.AddCommand(newInspectMetadataCommand())
	cmd.AddCommand(newInspectHierarchyCommand())

	return cmd
}

// newInspectClassesCommand creates the 'inspect classes' command
func newInspectClassesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List all classes in the snapshot",
		Long: `List all classes in the snapshot.

Shows each class with its package, parent, and the sizes of its own member
and metadata lists. Use 'inspect class <name>' for a full view of one class.`,
		Example: `  # List all classes
  declkit inspect classes

  # List classes in JSON format
  declkit inspect classes --format json`,
		RunE: runInspectClasses,
	}
}

// newInspectClassCommand creates the 'inspect class' command
func newInspectClassCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "class <name>",
		Short: "Show detailed information about a class",
		Long: `Show detailed information about a class.

Displays the class's identity, its ancestor chain, its own metadata
payloads, and a summary of its member namespaces. Bare names resolve as
long as they are unambiguous; otherwise pass the package-qualified name.`,
		Example: `  # View the User class
  declkit inspect class User

  # Qualify an ambiguous bare name
  declkit inspect class example.com/models.User

  # Full payloads and member details
  declkit inspect class User --verbose`,
		Args: cobra.ExactArgs(1),
		RunE: runInspectClass,
	}
}

// newInspectMembersCommand creates the 'inspect members' command
func newInspectMembersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members <name>",
		Short: "List the members of a class",
		Long: `List the members of a class.

By default only the class's own declarations in the chosen namespace are
shown. With --all, instance members merge across the ancestor chain with
override semantics, so each name appears once with the nearest declaration
winning. Static members belong to the declaring class alone and never
merge.`,
		Example: `  # Own instance members
  declkit inspect members Admin

  # Instance members including inherited ones
  declkit inspect members Admin --all

  # Static members
  declkit inspect members Admin --static

  # Only properties
  declkit inspect members Admin --kind property`,
		Args: cobra.ExactArgs(1),
		RunE: runInspectMembers,
	}

	cmd.Flags().Bool("all", false, "Merge instance members across the ancestor chain")
	cmd.Flags().Bool("static", false, "Show the static namespace instead of the instance namespace")
	cmd.Flags().String("kind", "", "Filter by member kind: method or property")

	return cmd
}

// newInspectMetadataCommand creates the 'inspect metadata' command
func newInspectMetadataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata <name>",
		Short: "List the metadata payloads of a class",
		Long: `List the metadata payloads of a class.

Payloads appear in decoration order. With --all, the view extends across
the ancestor chain with the class's own payloads first, matching how the
registry answers merged metadata queries.`,
		Example: `  # Own payloads
  declkit inspect metadata User

  # Own payloads followed by inherited ones
  declkit inspect metadata Admin --all`,
		Args: cobra.ExactArgs(1),
		RunE: runInspectMetadata,
	}

	cmd.Flags().Bool("all", false, "Include payloads inherited from ancestors")

	return cmd
}

// newInspectHierarchyCommand creates the 'inspect hierarchy' command
func newInspectHierarchyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hierarchy",
		Short: "Show the class hierarchy",
		Long: `Show the class hierarchy.

Renders the parent links between decorated classes as a tree. Classes
whose parent is absent from the snapshot appear as roots.`,
		Example: `  # Show the hierarchy
  declkit inspect hierarchy

  # Hierarchy as nested JSON
  declkit inspect hierarchy --format json`,
		RunE: runInspectHierarchy,
	}
}

// runInspectClasses executes the 'inspect classes' command
func runInspectClasses(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}

	snap, err := loadInspectSnapshot()
	if err != nil {
		return err
	}

	writer := cmd.OutOrStdout()

	if wantJSON() {
		type classSummary struct {
			Name      string `json:"name"`
			Package   string `json:"package,omitempty"`
			Qualified string `json:"qualified"`
			Parent    string `json:"parent,omitempty"`
			Members   int    `json:"members"`
			Metadata  int    `json:"metadata"`
		}

		summaries := make([]classSummary, 0, len(snap.Classes))
		for _, c := range snap.Classes {
			summaries = append(summaries, classSummary{
				Name:      c.Name,
				Package:   c.Package,
				Qualified: c.Qualified,
				Parent:    c.Parent,
				Members:   len(c.Members),
				Metadata:  len(c.Metadata),
			})
		}

		return writeJSON(writer, map[string]interface{}{
			"count":   len(summaries),
			"classes": summaries,
		})
	}

	bold := color.New(color.Bold)
	bold.Fprintf(writer, "CLASSES (%d total)\n\n", len(snap.Classes))

	table := ui.NewTable(writer, "NAME", "PACKAGE", "PARENT", "MEMBERS", "METADATA")
	for _, c := range snap.Classes {
		table.AddRow(
			c.Name,
			valueOrDash(c.Package),
			valueOrDash(parentDisplayName(snap, c.Parent)),
			strconv.Itoa(len(c.Members)),
			strconv.Itoa(len(c.Metadata)),
		)
	}
	table.Render()

	return nil
}

// runInspectClass executes the 'inspect class' command
func runInspectClass(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}

	snap, err := loadInspectSnapshot()
	if err != nil {
		return err
	}

	c, err := resolveClass(cmd, snap, args[0])
	if err != nil {
		return err
	}

	writer := cmd.OutOrStdout()
	ancestors := snap.Ancestry(c)

	if wantJSON() {
		names := make([]string, 0, len(ancestors))
		for _, a := range ancestors {
			names = append(names, a.Qualified)
		}
		return writeJSON(writer, map[string]interface{}{
			"class":     c,
			"ancestors": names,
		})
	}

	ui.Header(writer, c.Name)
	fmt.Fprintln(writer)

	kv := ui.NewKeyValue(writer)
	kv.AddRow("Name", c.Name)
	if c.Package != "" {
		kv.AddRow("Package", c.Package)
	}
	kv.AddRow("Qualified", c.Qualified)
	kv.AddRow("Parent", valueOrDash(parentDisplayName(snap, c.Parent)))
	kv.Render()
	fmt.Fprintln(writer)

	if len(ancestors) > 0 {
		section := ui.NewSection(writer, "Ancestry (nearest first)")
		for _, a := range ancestors {
			section.AddLine("%s", a.Qualified)
		}
		section.Render()
	}

	if len(c.Metadata) > 0 {
		section := ui.NewSection(writer, fmt.Sprintf("Metadata (%d)", len(c.Metadata)))
		for _, p := range c.Metadata {
			section.AddLine("%s  %s", p.TypeName, displayPayloadValue(p))
		}
		section.Render()
	}

	instance := 0
	static := 0
	for _, m := range c.Members {
		if m.Static {
			static++
		} else {
			instance++
		}
	}

	section := ui.NewSection(writer, "Members")
	section.AddLine("%d instance, %d static", instance, static)
	if len(c.Parameters) > 0 {
		section.AddLine("%d decorated constructor parameters", len(c.Parameters))
	}
	if len(c.ParamTypes) > 0 {
		section.AddLine("constructor: (%s)", strings.Join(c.ParamTypes, ", "))
	}
	section.Render()

	if verbose && len(c.Members) > 0 {
		table := ui.NewTable(writer, "NAME", "KIND", "STATIC", "METADATA")
		for _, m := range c.Members {
			table.AddRow(m.Name, m.Kind, boolDisplay(m.Static), strconv.Itoa(len(m.Metadata)))
		}
		table.Render()
	}

	return nil
}

// runInspectMembers executes the 'inspect members' command
func runInspectMembers(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")
	static, _ := cmd.Flags().GetBool("static")
	kind, _ := cmd.Flags().GetString("kind")

	if kind != "" && kind != "method" && kind != "property" {
		return fmt.Errorf("invalid kind %q (supported: method, property)", kind)
	}

	snap, err := loadInspectSnapshot()
	if err != nil {
		return err
	}

	c, err := resolveClass(cmd, snap, args[0])
	if err != nil {
		return err
	}

	members := classMembers(snap, c, all, static)
	if kind != "" {
		filtered := members[:0]
		for _, m := range members {
			if m.Kind == kind {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}

	writer := cmd.OutOrStdout()

	if wantJSON() {
		if members == nil {
			members = []mirror.MemberSnapshot{}
		}
		return writeJSON(writer, map[string]interface{}{
			"class":   c.Qualified,
			"count":   len(members),
			"members": members,
		})
	}

	if len(members) == 0 {
		fmt.Fprintln(writer, "No members found.")
		return nil
	}

	table := ui.NewTable(writer, "NAME", "KIND", "STATIC", "METADATA", "PARAMS")
	for _, m := range members {
		table.AddRow(
			m.Name,
			m.Kind,
			boolDisplay(m.Static),
			strconv.Itoa(len(m.Metadata)),
			strconv.Itoa(len(m.Parameters)),
		)
	}
	table.Render()

	return nil
}

// runInspectMetadata executes the 'inspect metadata' command
func runInspectMetadata(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")

	snap, err := loadInspectSnapshot()
	if err != nil {
		return err
	}

	c, err := resolveClass(cmd, snap, args[0])
	if err != nil {
		return err
	}

	payloads := c.Metadata
	if all {
		payloads = snap.MergedMetadata(c)
	}

	writer := cmd.OutOrStdout()

	if wantJSON() {
		if payloads == nil {
			payloads = []mirror.PayloadSnapshot{}
		}
		return writeJSON(writer, map[string]interface{}{
			"class":    c.Qualified,
			"count":    len(payloads),
			"metadata": payloads,
		})
	}

	if len(payloads) == 0 {
		fmt.Fprintln(writer, "No metadata found.")
		return nil
	}

	table := ui.NewTable(writer, "TYPE", "VALUE")
	for _, p := range payloads {
		table.AddRow(p.TypeName, displayPayloadValue(p))
	}
	table.Render()

	return nil
}

// runInspectHierarchy executes the 'inspect hierarchy' command
func runInspectHierarchy(cmd *cobra.Command, args []string) error {
	if err := validateFormat(); err != nil {
		return err
	}

	snap, err := loadInspectSnapshot()
	if err != nil {
		return err
	}

	children := make(map[string][]*mirror.ClassSnapshot)
	var roots []*mirror.ClassSnapshot
	for i := range snap.Classes {
		c := &snap.Classes[i]
		parent, ok := snap.Class(c.Parent)
		if c.Parent != "" && ok && parent.Qualified != c.Qualified {
			// Key by the resolved qualified name so bare parent references
			// still attach to their class.
			children[parent.Qualified] = append(children[parent.Qualified], c)
		} else {
			roots = append(roots, c)
		}
	}

	sortClassRefs(roots)
	for _, kids := range children {
		sortClassRefs(kids)
	}

	writer := cmd.OutOrStdout()

	if wantJSON() {
		type node struct {
			Name      string `json:"name"`
			Qualified string `json:"qualified"`
			Children  []node `json:"children,omitempty"`
		}

		var build func(c *mirror.ClassSnapshot, seen map[string]bool) node
		build = func(c *mirror.ClassSnapshot, seen map[string]bool) node {
			n := node{Name: c.Name, Qualified: c.Qualified}
			seen[c.Qualified] = true
			for _, child := range children[c.Qualified] {
				if seen[child.Qualified] {
					continue
				}
				n.Children = append(n.Children, build(child, seen))
			}
			return n
		}

		seen := make(map[string]bool)
		nodes := make([]node, 0, len(roots))
		for _, root := range roots {
			nodes = append(nodes, build(root, seen))
		}
		return writeJSON(writer, map[string]interface{}{"roots": nodes})
	}

	if len(roots) == 0 {
		fmt.Fprintln(writer, "No classes found.")
		return nil
	}

	nameColor := color.New(color.FgCyan)
	var walk func(c *mirror.ClassSnapshot, depth int, seen map[string]bool)
	walk = func(c *mirror.ClassSnapshot, depth int, seen map[string]bool) {
		seen[c.Qualified] = true
		if depth == 0 {
			nameColor.Fprintf(writer, "%s\n", c.Name)
		} else {
			fmt.Fprintf(writer, "%s└─ %s\n", strings.Repeat("  ", depth-1), c.Name)
		}
		for _, child := range children[c.Qualified] {
			if seen[child.Qualified] {
				continue
			}
			walk(child, depth+1, seen)
		}
	}

	seen := make(map[string]bool)
	for _, root := range roots {
		walk(root, 0, seen)
	}

	return nil
}

// loadInspectSnapshot reads the snapshot from the configured source
func loadInspectSnapshot() (*mirror.Snapshot, error) {
	if inspectServerURL != "" {
		return fetchSnapshot(inspectServerURL)
	}

	snap, err := mirror.ReadSnapshotFile(inspectSnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("%w (pass --snapshot for a different file, or --server for a running server)", err)
	}
	return snap.Normalize(), nil
}

// fetchSnapshot downloads the snapshot document from an introspection server
func fetchSnapshot(serverURL string) (*mirror.Snapshot, error) {
	url := strings.TrimRight(serverURL, "/") + "/api/snapshot"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch snapshot from %s: status %d", url, resp.StatusCode)
	}

	snap, err := mirror.LoadSnapshot(resp.Body)
	if err != nil {
		return nil, err
	}
	return snap.Normalize(), nil
}

// resolveClass finds a class by name, printing a suggestion block on miss
func resolveClass(cmd *cobra.Command, snap *mirror.Snapshot, name string) (*mirror.ClassSnapshot, error) {
	if c, ok := snap.Class(name); ok {
		return c, nil
	}

	candidates := make([]string, 0, len(snap.Classes))
	for _, c := range snap.Classes {
		candidates = append(candidates, c.Name)
	}

	ui.WriteNotFound(cmd.ErrOrStderr(), ui.NotFoundOptions{
		Kind:        "class",
		Name:        name,
		Suggestions: ui.Suggest(name, candidates),
		HelpCommands: []string{
			"List all classes: declkit inspect classes",
			"Qualify ambiguous names: declkit inspect class <package>.<name>",
		},
	})

	return nil, fmt.Errorf("class %q not found in snapshot", name)
}

// classMembers applies the namespace and merge rules for the members command
func classMembers(snap *mirror.Snapshot, c *mirror.ClassSnapshot, all, static bool) []mirror.MemberSnapshot {
	if all {
		// Statics never inherit, so the merged list degenerates to own entries.
		return mirror.EffectiveMembers(snap.MergedMembers(c, static))
	}

	var own []mirror.MemberSnapshot
	for _, m := range c.Members {
		if m.Static == static {
			own = append(own, m)
		}
	}
	return own
}

// parentDisplayName renders a parent reference with its bare name when the
// parent is present in the snapshot
func parentDisplayName(snap *mirror.Snapshot, parent string) string {
	if parent == "" {
		return ""
	}
	if c, ok := snap.Class(parent); ok {
		return c.Name
	}
	return parent
}

// displayPayloadValue compacts a payload value for single-line rendering
func displayPayloadValue(p mirror.PayloadSnapshot) string {
	if len(p.Value) == 0 {
		return "-"
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, p.Value); err != nil {
		return string(p.Value)
	}

	s := buf.String()
	if !verbose && len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}

func sortClassRefs(classes []*mirror.ClassSnapshot) {
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].Qualified < classes[j].Qualified
	})
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func boolDisplay(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
