package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// LLMID identifies a remote LLM resource. A zero LLMID is invalid everywhere
// it is consumed.
type LLMID string

// AgentID identifies a remote agent resource.
type AgentID string

// responseEngineType is the only engine kind this tool manages.
const responseEngineType = "retell-llm"

// RemoteLLMPayload is the wire shape of the remote LLM resource.
type RemoteLLMPayload struct {
	Model         string            `json:"model"`
	Temperature   float64           `json:"temperature"`
	GeneralPrompt string            `json:"general_prompt"`
	BeginMessage  string            `json:"begin_message,omitempty"`
	Tools         []json.RawMessage `json:"general_tools,omitempty"`
}

// ResponseEngine binds an agent to its LLM resource.
type ResponseEngine struct {
	Type  string `json:"type"`
	LLMID LLMID  `json:"llm_id"`
}

// RemoteAgentPayload is the wire shape of the remote agent resource. It can
// only be constructed with a concrete LLMID, which exists only after the LLM
// round trip completes.
type RemoteAgentPayload struct {
	AgentName            string          `json:"agent_name"`
	VoiceID              string          `json:"voice_id"`
	VoiceSpeed           float64         `json:"voice_speed,omitempty"`
	Language             string          `json:"language,omitempty"`
	ResponseEngine       ResponseEngine  `json:"response_engine"`
	WebhookURL           NullableString  `json:"webhook_url,omitzero"`
	PostCallAnalysisData []AnalysisField `json:"post_call_analysis_data,omitempty"`
}

// ToRemoteLLM maps a config and its composed prompt onto the remote LLM
// payload. Pure: no network I/O.
func ToRemoteLLM(cfg *AgentConfig, composedPrompt string) RemoteLLMPayload {
	return RemoteLLMPayload{
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		GeneralPrompt: composedPrompt,
		BeginMessage:  cfg.LLM.BeginMessage,
		Tools:         cfg.LLM.Tools,
	}
}

// ToRemoteAgent maps a config onto the remote agent payload. llmID must be a
// concrete id from a completed LLM create or update; requiring it here makes
// the LLM-before-agent ordering structural rather than conventional.
func ToRemoteAgent(cfg *AgentConfig, llmID LLMID) (RemoteAgentPayload, error) {
	if llmID == "" {
		return RemoteAgentPayload{}, fmt.Errorf("agent payload requires a concrete llm_id; the LLM resource must be created or confirmed first")
	}
	return RemoteAgentPayload{
		AgentName:  cfg.AgentName,
		VoiceID:    cfg.VoiceID,
		VoiceSpeed: cfg.VoiceSpeed,
		Language:   cfg.Language,
		ResponseEngine: ResponseEngine{
			Type:  responseEngineType,
			LLMID: llmID,
		},
		WebhookURL:           cfg.WebhookURL,
		PostCallAnalysisData: cfg.AnalysisFields,
	}, nil
}

// PromptHint carries the previous local prompt structure into the reverse
// transform: the prompt config itself plus its pre-substitution composed
// template.
type PromptHint struct {
	Config   *PromptConfig
	Template string
}

// FromRemote maps remote state back onto a local config. The mapping is lossy
// and best-effort: scalar fields round-trip exactly, but a composed
// prompt string cannot in general be decomposed into sections and variables.
// When hint is non-nil and the remote prompt still matches the hint's
// structure, the section list and variable keys are preserved and only static
// values that drifted are refreshed. Otherwise the remote prompt is stored as
// an opaque flat string; section boundaries are never invented.
func FromRemote(agent *RemoteAgentPayload, llm *RemoteLLMPayload, hint *PromptHint) *AgentConfig {
	cfg := &AgentConfig{
		AgentName:  agent.AgentName,
		VoiceID:    agent.VoiceID,
		VoiceSpeed: agent.VoiceSpeed,
		Language:   agent.Language,
		LLM: LLMConfig{
			Model:        llm.Model,
			Temperature:  llm.Temperature,
			BeginMessage: llm.BeginMessage,
			Tools:        llm.Tools,
		},
		WebhookURL:     agent.WebhookURL,
		AnalysisFields: agent.PostCallAnalysisData,
	}

	if hint != nil && hint.Config != nil {
		if pc, ok := recoverPromptConfig(hint, llm.GeneralPrompt); ok {
			cfg.LLM.PromptConfig = pc
			return cfg
		}
	}
	cfg.LLM.Prompt = llm.GeneralPrompt
	return cfg
}

// recoverPromptConfig matches the remote prompt against the hint's template.
// Static tokens become capture groups; all other text, including deferred and
// dynamic tokens, must appear verbatim. Go's regexp has no backreferences, so
// repeated occurrences of one variable each get their own group and are
// checked for agreement after the match.
func recoverPromptConfig(hint *PromptHint, remotePrompt string) (*PromptConfig, bool) {
	summary, err := ResolveVariables(hint.Config, hint.Template)
	if err != nil {
		return nil, false
	}
	static := make(map[string]bool, len(summary.Static))
	for _, v := range summary.Static {
		static[v.Name] = true
	}

	var (
		pattern    strings.Builder
		groupNames []string
		last       int
	)
	pattern.WriteString(`(?s)\A`)
	for _, loc := range tokenPattern.FindAllStringSubmatchIndex(hint.Template, -1) {
		name := hint.Template[loc[2]:loc[3]]
		pattern.WriteString(regexp.QuoteMeta(hint.Template[last:loc[0]]))
		if static[name] {
			pattern.WriteString(`(.*?)`)
			groupNames = append(groupNames, name)
		} else {
			pattern.WriteString(regexp.QuoteMeta(hint.Template[loc[0]:loc[1]]))
		}
		last = loc[1]
	}
	pattern.WriteString(regexp.QuoteMeta(hint.Template[last:]))
	pattern.WriteString(`\z`)

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, false
	}
	match := re.FindStringSubmatch(remotePrompt)
	if match == nil {
		return nil, false
	}

	values := make(map[string]string, len(groupNames))
	for i, name := range groupNames {
		captured := match[i+1]
		if prev, seen := values[name]; seen && prev != captured {
			return nil, false
		}
		values[name] = captured
	}

	out := clonePromptConfig(hint.Config)
	for name, captured := range values {
		out.Variables[name] = LiteralValue(captured)
	}
	return out, true
}

func clonePromptConfig(pc *PromptConfig) *PromptConfig {
	out := &PromptConfig{
		Sections:  append([]string(nil), pc.Sections...),
		Variables: make(map[string]VariableValue, len(pc.Variables)),
	}
	for k, v := range pc.Variables {
		out.Variables[k] = v
	}
	if len(pc.Overrides) > 0 {
		out.Overrides = make(map[string]string, len(pc.Overrides))
		for k, v := range pc.Overrides {
			out.Overrides[k] = v
		}
	}
	if len(pc.DynamicVariables) > 0 {
		out.DynamicVariables = make(map[string]DynamicVariable, len(pc.DynamicVariables))
		for k, v := range pc.DynamicVariables {
			out.DynamicVariables[k] = v
		}
	}
	return out
}
