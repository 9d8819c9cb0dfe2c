package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voicelayer/retellsync/internal/core"
)

var validateCmd = &cobra.Command{
	Use:   "validate [agent]",
	Short: "Validate agent configs and show their variable classification",
	Long: `Load each agent config, compose its prompt and classify every template
variable as static, override, dynamic or system. Fails on missing sections,
ambiguous variable declarations and structural config errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = d.Close() }()

		agents, err := agentArgs(d, args)
		if err != nil {
			return err
		}

		failed := 0
		for _, name := range agents {
			cfg, err := d.project.LoadAgent(name)
			if err != nil {
				fmt.Printf("%s: %v\n", name, err)
				failed++
				continue
			}
			_, summary, err := core.BuildPrompt(cfg, d.sections)
			if err != nil {
				fmt.Printf("%s: %v\n", name, err)
				failed++
				continue
			}
			fmt.Printf("%s: ok (%d variables)\n", name, summary.Count())
			printVariableSummary(summary)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d agents failed validation", failed, len(agents))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
