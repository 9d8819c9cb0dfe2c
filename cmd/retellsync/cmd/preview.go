package cmd

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/voicelayer/retellsync/internal/core"
)

var previewCmd = &cobra.Command{
	Use:   "preview <agent>",
	Short: "Print the composed prompt exactly as it would be pushed",
	Long: `Compose the agent's prompt: resolve sections, apply overrides and
substitute static variables. Override, dynamic and system tokens stay verbatim
for the runtime. --render formats the result as markdown in the terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = d.Close() }()

		cfg, err := d.project.LoadAgent(args[0])
		if err != nil {
			return err
		}
		prompt, _, err := core.BuildPrompt(cfg, d.sections)
		if err != nil {
			return err
		}

		if render, _ := cmd.Flags().GetBool("render"); render {
			r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
			if err != nil {
				return fmt.Errorf("initializing renderer: %w", err)
			}
			out, err := r.Render(prompt)
			if err != nil {
				return fmt.Errorf("rendering prompt: %w", err)
			}
			fmt.Print(out)
			return nil
		}

		fmt.Println(prompt)
		return nil
	},
}

func init() {
	previewCmd.Flags().Bool("render", false, "Render the prompt as markdown")
	rootCmd.AddCommand(previewCmd)
}
