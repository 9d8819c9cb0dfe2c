package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tailscale/hujson"
)

const (
	agentsDirName   = "agents"
	promptsDirName  = "prompts"
	stateDirName    = ".retellsync"
	metadataDirName = "metadata"
)

// Project is a retellsync project directory: agent configs under agents/,
// prompt sections under prompts/, sync metadata under .retellsync/.
type Project struct {
	dir string
}

// OpenProject returns a Project rooted at dir.
func OpenProject(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}
	return &Project{dir: abs}, nil
}

// Dir returns the project root.
func (p *Project) Dir() string { return p.dir }

// AgentsDir returns the directory holding agent config files.
func (p *Project) AgentsDir() string { return filepath.Join(p.dir, agentsDirName) }

// PromptsDir returns the directory holding prompt section files.
func (p *Project) PromptsDir() string { return filepath.Join(p.dir, promptsDirName) }

// MetadataDir returns the directory holding per-(agent, slot) sync records.
func (p *Project) MetadataDir() string {
	return filepath.Join(p.dir, stateDirName, metadataDirName)
}

// StateDir returns the tool-private state directory.
func (p *Project) StateDir() string { return filepath.Join(p.dir, stateDirName) }

// AgentPath returns the path of an agent's config file.
func (p *Project) AgentPath(name string) string {
	return filepath.Join(p.AgentsDir(), name+".json")
}

// LoadAgent loads one agent config by name.
func (p *Project) LoadAgent(name string) (*AgentConfig, error) {
	return LoadAgentConfig(p.AgentPath(name))
}

// Agents lists the agent names in the project, sorted.
func (p *Project) Agents() ([]string, error) {
	entries, err := os.ReadDir(p.AgentsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading agents directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// LoadAgentConfig reads and parses an agent config file. Files are JSONC:
// comments and trailing commas are standardized away before decoding.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agent config: %w", err)
	}
	cfg, err := ParseAgentConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// ParseAgentConfig parses agent config bytes (JSONC allowed).
func ParseAgentConfig(data []byte) (*AgentConfig, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("standardizing JSONC: %w", err)
	}
	var cfg AgentConfig
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural invariants a config must satisfy before any
// component consumes it.
func (c *AgentConfig) Validate() error {
	if c.AgentName == "" {
		return fmt.Errorf("agent_name is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Prompt != "" && c.LLM.PromptConfig != nil {
		return fmt.Errorf("llm.prompt and llm.prompt_config are mutually exclusive")
	}
	if c.LLM.Prompt == "" && c.LLM.PromptConfig == nil {
		return fmt.Errorf("one of llm.prompt or llm.prompt_config is required")
	}
	if pc := c.LLM.PromptConfig; pc != nil && len(pc.Sections) == 0 {
		return fmt.Errorf("llm.prompt_config.sections must not be empty")
	}
	return nil
}
