package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voicelayer/retellsync/internal/core"
)

const exampleAgent = `{
  // Example agent. Rename the file to rename the agent.
  "agent_name": "example",
  "voice_id": "11labs-Adrian",
  "language": "en-US",
  "llm": {
    "model": "gpt-4o",
    "temperature": 0.7,
    "prompt_config": {
      "sections": ["greeting"],
      "variables": {
        "company": "Acme Corp",
        // OVERRIDE defers the value to the runtime, per call.
        "caller_tier": "OVERRIDE"
      }
    }
  }
}
`

const exampleSection = `---
description: Opening lines for every call
---
You are a friendly voice assistant for {{company}}.
Greet the caller by name ({{caller_name}}) and ask how you can help.
The caller is on the {{caller_tier}} tier.
`

const exampleEnv = `# Credentials per workspace slot. Copy to .env or export in your shell.
RETELL_STAGING_API_KEY=
RETELL_PRODUCTION_API_KEY=
# Additional production workspaces: RETELL_PRODUCTION_2_API_KEY, ...
`

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold a retellsync project directory",
	Long: `Create the project layout: agents/ with an example agent config, prompts/
with an example section, and .env.example listing the credential variables.
Existing files are never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		project, err := core.OpenProject(dir)
		if err != nil {
			return err
		}

		for _, d := range []string{project.AgentsDir(), project.PromptsDir()} {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", d, err)
			}
		}

		created := 0
		scaffold := []struct {
			path    string
			content string
		}{
			{project.AgentPath("example"), exampleAgent},
			{filepath.Join(project.PromptsDir(), "greeting.md"), exampleSection},
			{filepath.Join(project.Dir(), ".env.example"), exampleEnv},
		}
		for _, f := range scaffold {
			if _, err := os.Stat(f.path); err == nil {
				continue
			}
			if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", f.path, err)
			}
			created++
		}

		if err := ensureGitignore(project.Dir()); err != nil {
			return err
		}

		fmt.Printf("Initialized retellsync project in %s (%d files created)\n", project.Dir(), created)
		fmt.Println("Next: copy .env.example to .env, fill in your API keys, then run 'retellsync validate example'.")
		return nil
	},
}

// ensureGitignore makes sure .env never lands in version control.
func ensureGitignore(dir string) error {
	path := filepath.Join(dir, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading .gitignore: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == ".env" {
			return nil
		}
	}
	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += ".env\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
