package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <agent>",
	Short: "Delete an agent's remote resources from a workspace slot",
	Long: `Delete the remote agent and LLM resources recorded for the slot, then
forget the local sync record. The local config file is never touched. This is
destructive on the remote side, so --yes is required.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("remove deletes remote resources; re-run with --yes to confirm")
		}

		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = d.Close() }()

		slot, err := resolveSlot(cmd)
		if err != nil {
			return err
		}
		syncer, err := d.syncerFor(slot)
		if err != nil {
			return err
		}

		if err := syncer.Remove(cmd.Context(), args[0], slot); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		fmt.Printf("%s: removed from %s\n", args[0], slot)
		return nil
	},
}

func init() {
	slotFlag(removeCmd)
	removeCmd.Flags().Bool("yes", false, "Confirm deletion of remote resources")
	rootCmd.AddCommand(removeCmd)
}
