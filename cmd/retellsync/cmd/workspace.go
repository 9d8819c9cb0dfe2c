package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voicelayer/retellsync/internal/core"
	"github.com/voicelayer/retellsync/internal/workspace"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Inspect workspace slots and their credentials",
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspace slots with resolved credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = d.Close() }()

		configured, err := workspace.ConfiguredSlots(d.project.Dir())
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(configured))
		for _, slot := range configured {
			seen[slot.Key()] = true
		}

		// Always show the two well-known slots, then any indexed extras.
		slots := []core.WorkspaceSlot{core.Staging(), core.Production()}
		for _, slot := range configured {
			if slot != core.Staging() && slot != core.Production() {
				slots = append(slots, slot)
			}
		}

		for _, slot := range slots {
			if seen[slot.Key()] {
				fmt.Printf("%-16s %s\n", slot, styleInSync.Render("[configured]"))
			} else {
				fmt.Printf("%-16s %s\n", slot, styleMuted.Render("[no credentials]"))
			}
		}
		if !seen["staging"] {
			fmt.Println()
			fmt.Println("Set RETELL_STAGING_API_KEY in the environment or .env to configure staging.")
		}
		return nil
	},
}

func init() {
	workspaceCmd.AddCommand(workspaceListCmd)
	rootCmd.AddCommand(workspaceCmd)
}
