package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tailscale/hujson"

	"github.com/voicelayer/retellsync/internal/core"
)

var pullCmd = &cobra.Command{
	Use:   "pull <agent>",
	Short: "Overwrite the local config with current remote state",
	Long: `Pull is the "use remote" conflict choice: fetch current remote state,
reverse-transform it into the local shape and rewrite the agent file. The
reverse transform is lossy. When the remote prompt still matches the
local structure, sections and variable keys are kept and only drifted static
values are refreshed; otherwise the remote prompt is stored as a flat string.

Only changed keys are edited, as JSONC patches, so comments and formatting in
the agent file survive. The stored hash is updated after the file is written.`,
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

		name := args[0]
		path := d.project.AgentPath(name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading agent config: %w", err)
		}
		local, err := core.ParseAgentConfig(raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}

		pulled, hash, err := syncer.Pull(cmd.Context(), name, local, slot)
		if err != nil {
			return err
		}

		changed, err := rewriteAgentFile(path, raw, local, pulled)
		if err != nil {
			return err
		}
		if err := syncer.CommitPull(name, slot, hash); err != nil {
			return err
		}

		if len(changed) == 0 {
			fmt.Printf("%s: already matches %s (%s)\n", name, slot, hash.Short())
			return nil
		}
		fmt.Printf("%s: pulled from %s (%s)\n", name, slot, hash.Short())
		for _, field := range changed {
			fmt.Printf("  updated %s\n", field)
		}
		if pulled.LLM.PromptConfig == nil && local.LLM.PromptConfig != nil {
			fmt.Println(styleDrift.Render("  note: remote prompt no longer matches the local structure; stored as a flat prompt"))
		}
		return nil
	},
}

// rewriteAgentFile patches only the changed keys into the JSONC document and
// writes it back atomically. Returns the list of changed fields.
func rewriteAgentFile(path string, raw []byte, local, pulled *core.AgentConfig) ([]string, error) {
	root, err := hujson.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing agent file: %w", err)
	}

	ops, changed, err := buildPullPatch(&root, local, pulled)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, nil
	}

	patch := "[" + strings.Join(ops, ",") + "]"
	if err := root.Patch([]byte(patch)); err != nil {
		return nil, fmt.Errorf("patching agent file: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, root.Pack(), 0o644); err != nil {
		return nil, fmt.Errorf("writing agent file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("saving agent file: %w", err)
	}
	return changed, nil
}

// buildPullPatch compares local and pulled configs field by field and emits
// JSON Patch operations for the differences.
func buildPullPatch(root *hujson.Value, local, pulled *core.AgentConfig) (ops, changed []string, err error) {
	set := func(field, ptr string, value any) error {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", field, err)
		}
		ops = append(ops, fmt.Sprintf(`{"op":"add","path":%q,"value":%s}`, ptr, data))
		changed = append(changed, field)
		return nil
	}
	remove := func(field, ptr string) {
		if root.Find(ptr) == nil {
			return
		}
		ops = append(ops, fmt.Sprintf(`{"op":"remove","path":%q}`, ptr))
		changed = append(changed, field)
	}

	scalars := []struct {
		field  string
		ptr    string
		local  any
		remote any
	}{
		{"agent_name", "/agent_name", local.AgentName, pulled.AgentName},
		{"voice_id", "/voice_id", local.VoiceID, pulled.VoiceID},
		{"voice_speed", "/voice_speed", local.VoiceSpeed, pulled.VoiceSpeed},
		{"language", "/language", local.Language, pulled.Language},
		{"llm.model", "/llm/model", local.LLM.Model, pulled.LLM.Model},
		{"llm.temperature", "/llm/temperature", local.LLM.Temperature, pulled.LLM.Temperature},
		{"llm.begin_message", "/llm/begin_message", local.LLM.BeginMessage, pulled.LLM.BeginMessage},
	}
	for _, s := range scalars {
		if s.local == s.remote {
			continue
		}
		if err := set(s.field, s.ptr, s.remote); err != nil {
			return nil, nil, err
		}
	}

	if local.WebhookURL != pulled.WebhookURL {
		if !pulled.WebhookURL.Set {
			remove("webhook_url", "/webhook_url")
		} else if pulled.WebhookURL.Null {
			if err := set("webhook_url", "/webhook_url", nil); err != nil {
				return nil, nil, err
			}
		} else if err := set("webhook_url", "/webhook_url", pulled.WebhookURL.Value); err != nil {
			return nil, nil, err
		}
	}

	lists := []struct {
		field     string
		ptr       string
		local     any
		pulled    any
		pulledLen int
	}{
		{"llm.tools", "/llm/tools", local.LLM.Tools, pulled.LLM.Tools, len(pulled.LLM.Tools)},
		{"analysis_fields", "/analysis_fields", local.AnalysisFields, pulled.AnalysisFields, len(pulled.AnalysisFields)},
	}
	for _, l := range lists {
		if jsonEqual(l.local, l.pulled) {
			continue
		}
		if l.pulledLen == 0 {
			remove(l.field, l.ptr)
			continue
		}
		if err := set(l.field, l.ptr, l.pulled); err != nil {
			return nil, nil, err
		}
	}

	if pc := pulled.LLM.PromptConfig; pc != nil {
		localVars := map[string]core.VariableValue{}
		if local.LLM.PromptConfig != nil {
			localVars = local.LLM.PromptConfig.Variables
		}
		for name, value := range pc.Variables {
			if localVars[name] == value {
				continue
			}
			ptr := "/llm/prompt_config/variables/" + jsonPointerEscape(name)
			if err := set("llm.prompt_config.variables."+name, ptr, value); err != nil {
				return nil, nil, err
			}
		}
	} else if pulled.LLM.Prompt != local.LLM.Prompt || local.LLM.PromptConfig != nil {
		// Flat fallback: the remote prompt replaced the composable structure.
		remove("llm.prompt_config", "/llm/prompt_config")
		if err := set("llm.prompt", "/llm/prompt", pulled.LLM.Prompt); err != nil {
			return nil, nil, err
		}
	}

	return ops, changed, nil
}

// jsonEqual compares two values by their compact JSON encoding, so nil and
// empty slices compare equal and raw-message whitespace is ignored.
func jsonEqual(a, b any) bool {
	da, err := json.Marshal(a)
	if err != nil {
		return false
	}
	db, err := json.Marshal(b)
	if err != nil {
		return false
	}
	if string(da) == "null" {
		da = []byte("[]")
	}
	if string(db) == "null" {
		db = []byte("[]")
	}
	return bytes.Equal(da, db)
}

// jsonPointerEscape escapes a key per RFC 6901.
func jsonPointerEscape(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

func init() {
	slotFlag(pullCmd)
	rootCmd.AddCommand(pullCmd)
}
