package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/voicelayer/retellsync/internal/core"
)

var (
	styleInSync   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleChanged  = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	styleDrift    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleConflict = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// stateBadge renders a sync state as a colored bracket label.
func stateBadge(state core.SyncState) string {
	label := "[" + state.String() + "]"
	switch state {
	case core.StateInSync:
		return styleInSync.Render(label)
	case core.StateLocalChanged:
		return styleChanged.Render(label)
	case core.StateDrift:
		return styleDrift.Render(label)
	case core.StateConflict:
		return styleConflict.Render(label)
	}
	return styleMuted.Render(label)
}

// slotFlag adds the --workspace flag shared by every remote-facing command.
func slotFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("workspace", "w", "staging", "Workspace slot: staging, production or production-<n>")
}

// resolveSlot parses the --workspace flag.
func resolveSlot(cmd *cobra.Command) (core.WorkspaceSlot, error) {
	raw, _ := cmd.Flags().GetString("workspace")
	return core.ParseWorkspaceSlot(raw)
}

// printVariableSummary prints the four-way variable classification the way an
// operator reads it: one group per kind, first-appearance order within.
func printVariableSummary(summary *core.VariableSummary) {
	if summary.Count() == 0 {
		fmt.Println("  Variables: none")
		return
	}
	if len(summary.Static) > 0 {
		fmt.Printf("  Static (%d):\n", len(summary.Static))
		for _, v := range summary.Static {
			fmt.Printf("    - %s = %q\n", v.Name, v.Value)
		}
	}
	if len(summary.Override) > 0 {
		fmt.Printf("  Override (%d):\n", len(summary.Override))
		for _, v := range summary.Override {
			fmt.Printf("    - %s (resolved per call)\n", v.Name)
		}
	}
	if len(summary.Dynamic) > 0 {
		fmt.Printf("  Dynamic (%d):\n", len(summary.Dynamic))
		for _, v := range summary.Dynamic {
			if v.Description != "" {
				fmt.Printf("    - %s (%s): %s\n", v.Name, v.ValueType, v.Description)
			} else {
				fmt.Printf("    - %s (%s)\n", v.Name, v.ValueType)
			}
		}
	}
	if len(summary.System) > 0 {
		fmt.Printf("  System (%d):\n", len(summary.System))
		for _, v := range summary.System {
			fmt.Printf("    - %s (supplied by the runtime)\n", v.Name)
		}
	}
}

// agentArgs resolves the agent list for a command: the explicit argument, or
// every agent in the project when none is given.
func agentArgs(d *deps, args []string) ([]string, error) {
	if len(args) > 0 {
		return args[:1], nil
	}
	agents, err := d.project.Agents()
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("no agent configs found under %s", d.project.AgentsDir())
	}
	return agents, nil
}
