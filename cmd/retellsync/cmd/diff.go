package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <agent>",
	Short: "Show field-level differences between local and remote state",
	Long: `Fetch current remote state and compare it with the local config:
scalar fields side by side, plus a unified diff of the remote prompt against
the locally composed one.`,
	Args: cobra.ExactArgs(1),
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
		syncer, err := d.syncerFor(slot)
		if err != nil {
			return err
		}
		cfg, err := d.project.LoadAgent(args[0])
		if err != nil {
			return err
		}

		report, err := syncer.Diff(cmd.Context(), args[0], cfg, slot)
		if err != nil {
			return err
		}

		fmt.Printf("%s @ %s %s\n", args[0], slot, stateBadge(report.Status.State))
		if len(report.Scalars) == 0 && report.PromptDiff == "" {
			fmt.Println("  no differences")
			return nil
		}
		for _, delta := range report.Scalars {
			fmt.Printf("  %-16s local %q, remote %q\n", delta.Field, delta.Local, delta.Remote)
		}
		if report.PromptDiff != "" {
			fmt.Println()
			fmt.Print(report.PromptDiff)
		}
		return nil
	},
}

func init() {
	slotFlag(diffCmd)
	rootCmd.AddCommand(diffCmd)
}
