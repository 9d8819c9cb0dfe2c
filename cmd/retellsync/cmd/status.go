package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/voicelayer/retellsync/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status [agent]",
	Short: "Show the sync state of agents against a workspace slot",
	Long: `Classify each agent's sync state for the chosen workspace slot. Without
--remote the check is purely local (never-synced, in-sync or local-changed)
and makes no network calls. With --remote, current remote state is fetched
and hashed, enabling drift and conflict detection. --watch re-reports
whenever a file under agents/ or prompts/ changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = d.Close() }()

		slot, err := resolveSlot(cmd)
		if err != nil {
			return err
		}
		checkRemote, _ := cmd.Flags().GetBool("remote")

		syncer := d.localSyncer()
		if checkRemote {
			if syncer, err = d.syncerFor(slot); err != nil {
				return err
			}
		}

		report := func() error {
			agents, err := agentArgs(d, args)
			if err != nil {
				return err
			}
			for _, name := range agents {
				if err := printAgentStatus(cmd.Context(), d, syncer, name, slot, checkRemote); err != nil {
					return err
				}
			}
			return nil
		}

		if err := report(); err != nil {
			return err
		}
		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			return watchAndReport(d, report)
		}
		return nil
	},
}

func printAgentStatus(ctx context.Context, d *deps, syncer *core.Syncer, name string, slot core.WorkspaceSlot, checkRemote bool) error {
	cfg, err := d.project.LoadAgent(name)
	if err != nil {
		fmt.Printf("%-20s %s %v\n", name, styleConflict.Render("[error]"), err)
		return nil
	}
	status, err := syncer.Status(ctx, name, cfg, slot, checkRemote)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	line := fmt.Sprintf("%-20s %s", name, stateBadge(status.State))
	if status.LastSync != nil {
		line += styleMuted.Render("  last sync " + status.LastSync.Local().Format(time.RFC3339))
	}
	fmt.Println(line)
	if status.State != core.StateNeverSynced {
		fmt.Printf("  local  %s\n", status.LocalHash.Short())
		fmt.Printf("  stored %s\n", status.StoredHash.Short())
		if status.RemoteHash != "" {
			fmt.Printf("  remote %s\n", status.RemoteHash.Short())
		}
	}
	return nil
}

// watchAndReport re-runs report on file changes under agents/ and prompts/,
// debounced, until interrupted.
func watchAndReport(d *deps, report func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range []string{d.project.AgentsDir(), d.project.PromptsDir()} {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	fmt.Println(styleMuted.Render("watching for changes, ctrl-c to stop"))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				// Editors fire bursts of events per save; coalesce them.
				pending = time.After(250 * time.Millisecond)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-pending:
			pending = nil
			fmt.Println()
			if err := report(); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		case <-interrupt:
			return nil
		}
	}
}

func init() {
	slotFlag(statusCmd)
	statusCmd.Flags().Bool("remote", false, "Fetch and hash remote state (detects drift and conflicts)")
	statusCmd.Flags().Bool("watch", false, "Re-report when local files change")
	rootCmd.AddCommand(statusCmd)
}
