package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voicelayer/retellsync/internal/core"
)

var pushCmd = &cobra.Command{
	Use:   "push [agent]",
	Short: "Deploy agent configs to a workspace slot",
	Long: `Push composes the prompt, transforms the config to the remote shape and
creates or updates the remote LLM and agent resources. Unchanged configs are
skipped without any remote call. Production slots only accept a config whose
exact hash was already pushed to staging; --force bypasses both checks.

With --all every agent in the project is pushed, in parallel across agents.`,
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
		force, _ := cmd.Flags().GetBool("force")
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) > 0) {
			return fmt.Errorf("specify exactly one of an agent name or --all")
		}

		syncer, err := d.syncerFor(slot)
		if err != nil {
			return err
		}

		if !all {
			cfg, err := d.project.LoadAgent(args[0])
			if err != nil {
				return err
			}
			res, err := syncer.Push(cmd.Context(), args[0], cfg, slot, force)
			if err != nil {
				return pushError(args[0], err)
			}
			printPushResult(args[0], res)
			return nil
		}

		agents, err := d.project.Agents()
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			return fmt.Errorf("no agent configs found under %s", d.project.AgentsDir())
		}
		parallelism, _ := cmd.Flags().GetInt("parallel")

		results := syncer.PushAll(cmd.Context(), agents, d.project.LoadAgent, slot, force, parallelism)
		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
				fmt.Printf("%-20s %s %v\n", res.Agent, styleConflict.Render("[failed]"), res.Err)
				continue
			}
			printPushResult(res.Agent, res.Result)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d pushes failed", failed, len(results))
		}
		return nil
	},
}

func printPushResult(name string, res *core.PushResult) {
	badge := styleInSync.Render("[" + string(res.Status) + "]")
	if res.Status == core.PushInSync {
		badge = styleMuted.Render("[" + string(res.Status) + "]")
	}
	fmt.Printf("%-20s %s %s  agent %s, llm %s\n", name, badge, res.Hash.Short(), res.AgentID, res.LLMID)
}

// pushError turns the staging gate failure into an actionable message.
func pushError(name string, err error) error {
	var gateErr *core.StagingRequiredError
	if errors.As(err, &gateErr) {
		return fmt.Errorf("%s: %w\nRun 'retellsync push %s -w staging' first, or use --force", name, err, name)
	}
	return fmt.Errorf("%s: %w", name, err)
}

func init() {
	slotFlag(pushCmd)
	pushCmd.Flags().Bool("force", false, "Push even if in sync; skip the staging-first check")
	pushCmd.Flags().Bool("all", false, "Push every agent in the project")
	pushCmd.Flags().Int("parallel", 4, "Max concurrent pushes with --all")
	rootCmd.AddCommand(pushCmd)
}
