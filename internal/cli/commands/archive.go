package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/declkit/declkit/internal/archive"
	"github.com/declkit/declkit/internal/cli/config"
	"github.com/declkit/declkit/internal/cli/ui"
	"github.com/declkit/declkit/runtime/mirror"

	// Archive drivers are selected by name at this boundary.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

var (
	archiveDriver string
	archiveDSN    string
)

// NewArchiveCommand creates the archive command group
func NewArchiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Maintain a history of snapshots in a database",
		Long: `Maintain a history of snapshots in a database.

The archive keeps exported snapshot documents in SQLite for local use or
PostgreSQL for shared archives. Snapshots are stored whole, so any archived
registry state can be restored to a file and inspected or served again.`,
		Example: `  # Save a snapshot into the default archive
  declkit archive save build/registry.json

  # List archived snapshots
  declkit archive list

  # Restore the latest snapshot to a file
  declkit archive show latest --out restored.json

  # Keep only the five most recent snapshots
  declkit archive prune --keep 5

  # Use a shared PostgreSQL archive
  declkit archive list --driver pgx --dsn postgres://db.internal/declkit`,
	}

	cmd.PersistentFlags().StringVar(&archiveDriver, "driver", "", "Database driver: sqlite3 or pgx (default from declkit.yml)")
	cmd.PersistentFlags().StringVar(&archiveDSN, "dsn", "", "Database DSN (default from declkit.yml)")

	cmd.AddCommand(newArchiveSaveCommand())
	cmd.AddCommand(newArchiveListCommand())
	cmd.AddCommand(newArchiveShowCommand())
	cmd.AddCommand(newArchiveDeleteCommand())
	cmd.AddCommand(newArchivePruneCommand())

	return cmd
}

// newArchiveSaveCommand creates the 'archive save' command
func newArchiveSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save <snapshot.json>",
		Short: "Save a snapshot document into the archive",
		Long: `Save a snapshot document into the archive.

The document keeps its own snapshot identifier; saving the same document
twice fails rather than overwriting history.`,
		Example: `  # Save a snapshot
  declkit archive save build/registry.json`,
		Args: cobra.ExactArgs(1),
		RunE: runArchiveSave,
	}
}

// newArchiveListCommand creates the 'archive list' command
func newArchiveListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived snapshots",
		Long:  "List archived snapshots, most recently saved first.",
		Example: `  # List archived snapshots
  declkit archive list

  # List in JSON format
  declkit archive list --format json`,
		RunE: runArchiveList,
	}
}

// newArchiveShowCommand creates the 'archive show' command
func newArchiveShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an archived snapshot",
		Long: `Show an archived snapshot.

Pass a snapshot identifier from 'archive list', or 'latest' for the most
recently saved one. With --out, the full document is restored to a file
instead of summarized.`,
		Example: `  # Summarize the latest archived snapshot
  declkit archive show latest

  # Restore a snapshot document to a file
  declkit archive show 2f1c... --out restored.json`,
		Args: cobra.ExactArgs(1),
		RunE: runArchiveShow,
	}

	cmd.Flags().String("out", "", "Write the snapshot document to this file")

	return cmd
}

// newArchiveDeleteCommand creates the 'archive delete' command
func newArchiveDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an archived snapshot",
		Long:  "Delete one archived snapshot by its identifier.",
		Example: `  # Delete a snapshot
  declkit archive delete 2f1c...`,
		Args: cobra.ExactArgs(1),
		RunE: runArchiveDelete,
	}
}

// newArchivePruneCommand creates the 'archive prune' command
func newArchivePruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent snapshots",
		Long:  "Delete all archived snapshots except the most recently saved ones.",
		Example: `  # Keep the ten most recent snapshots
  declkit archive prune --keep 10`,
		RunE: runArchivePrune,
	}

	cmd.Flags().Int("keep", 10, "Number of recent snapshots to keep")

	return cmd
}

func runArchiveSave(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	snap, err := mirror.ReadSnapshotFile(args[0])
	if err != nil {
		return err
	}

	store, err := openArchive(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(ctx, snap); err != nil {
		return err
	}

	ui.Successf(cmd.OutOrStdout(), "saved snapshot %s (%d classes)", snap.ID, len(snap.Classes))
	return nil
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	if err := validateFormat(); err != nil {
		return err
	}

	store, err := openArchive(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(ctx)
	if err != nil {
		return err
	}

	writer := cmd.OutOrStdout()

	if wantJSON() {
		if entries == nil {
			entries = []archive.Entry{}
		}
		return writeJSON(writer, map[string]interface{}{
			"count":     len(entries),
			"snapshots": entries,
		})
	}

	if len(entries) == 0 {
		fmt.Fprintln(writer, "No snapshots archived.")
		return nil
	}

	table := ui.NewTable(writer, "ID", "VERSION", "GENERATED", "CLASSES", "SAVED")
	for _, entry := range entries {
		table.AddRow(
			entry.ID,
			entry.Version,
			entry.Generated.UTC().Format(time.RFC3339),
			strconv.Itoa(entry.Classes),
			entry.SavedAt.UTC().Format(time.RFC3339),
		)
	}
	table.Render()

	return nil
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	if err := validateFormat(); err != nil {
		return err
	}

	store, err := openArchive(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := loadArchived(ctx, store, args[0])
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := snap.WriteFile(out); err != nil {
			return err
		}
		ui.Successf(cmd.OutOrStdout(), "restored snapshot %s to %s", snap.ID, out)
		return nil
	}

	writer := cmd.OutOrStdout()

	if wantJSON() {
		return writeJSON(writer, snap)
	}

	kv := ui.NewKeyValue(writer)
	kv.AddRow("ID", snap.ID)
	kv.AddRow("Version", snap.Version)
	kv.AddRow("Generated", snap.Generated.UTC().Format(time.RFC3339))
	kv.AddRow("Classes", strconv.Itoa(len(snap.Classes)))
	kv.Render()
	fmt.Fprintln(writer)

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

func runArchiveDelete(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	store, err := openArchive(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(ctx, args[0]); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			ui.WriteNotFound(cmd.ErrOrStderr(), ui.NotFoundOptions{
				Kind: "snapshot",
				Name: args[0],
				HelpCommands: []string{
					"List archived snapshots: declkit archive list",
				},
			})
		}
		return err
	}

	ui.Successf(cmd.OutOrStdout(), "deleted snapshot %s", args[0])
	return nil
}

func runArchivePrune(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	keep, _ := cmd.Flags().GetInt("keep")

	store, err := openArchive(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	deleted, err := store.Prune(ctx, keep)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if deleted == 0 {
		infoColor := color.New(color.FgCyan)
		infoColor.Fprintf(out, "Nothing to prune; %d or fewer snapshots archived\n", keep)
		return nil
	}

	ui.Successf(out, "pruned %d snapshots, kept the %d most recent", deleted, keep)
	return nil
}

// openArchive opens the archive from flags or configuration and ensures
// its schema exists
func openArchive(ctx context.Context) (*archive.Archive, error) {
	driver := archiveDriver
	dsn := archiveDSN

	if driver == "" || dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		if driver == "" {
			driver = cfg.Archive.Driver
		}
		if dsn == "" {
			dsn = config.GetArchiveDSN()
			if dsn == "" {
				dsn = cfg.Archive.DSN
			}
		}
	}

	store, err := archive.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return store, nil
}

// loadArchived resolves "latest" or a concrete snapshot identifier
func loadArchived(ctx context.Context, store *archive.Archive, id string) (*mirror.Snapshot, error) {
	if id == "latest" {
		return store.LoadLatest(ctx)
	}
	return store.Load(ctx, id)
}
