// Package core implements the configuration synchronization engine for
// retellsync. It has zero CLI/UI dependencies and is independently testable.
package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AgentConfig is the canonical local description of one voice agent.
// It is a value object: loading a file produces one, and any change produces
// a new value rather than mutating an existing one.
type AgentConfig struct {
	AgentName      string          `json:"agent_name"`
	VoiceID        string          `json:"voice_id"`
	VoiceSpeed     float64         `json:"voice_speed,omitempty"`
	Language       string          `json:"language,omitempty"`
	LLM            LLMConfig       `json:"llm"`
	WebhookURL     NullableString  `json:"webhook_url,omitzero"`
	AnalysisFields []AnalysisField `json:"analysis_fields,omitempty"`
}

// LLMConfig describes the language-model half of an agent. Exactly one of
// Prompt (a flat string) or PromptConfig (composable sections) should be set.
type LLMConfig struct {
	Model        string            `json:"model"`
	Temperature  float64           `json:"temperature"`
	Prompt       string            `json:"prompt,omitempty"`
	PromptConfig *PromptConfig     `json:"prompt_config,omitempty"`
	BeginMessage string            `json:"begin_message,omitempty"`
	Tools        []json.RawMessage `json:"tools,omitempty"`
}

// PromptConfig describes a composable prompt. Section order is semantically
// meaningful: earlier sections take precedence for the downstream model.
type PromptConfig struct {
	Sections         []string                   `json:"sections"`
	Overrides        map[string]string          `json:"overrides,omitempty"`
	Variables        map[string]VariableValue   `json:"variables,omitempty"`
	DynamicVariables map[string]DynamicVariable `json:"dynamic_variables,omitempty"`
}

// DynamicVariable declares a runtime-filled variable with a type/description
// contract. It is never substituted at build time.
type DynamicVariable struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// AnalysisField declares a post-call analysis extraction field.
type AnalysisField struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// overrideSentinel is the on-disk magic value meaning "leave this variable
// unresolved for the runtime". It is converted to the deferred VariableValue
// variant at decode time; no other code compares against it.
const overrideSentinel = "OVERRIDE"

// VariableValue is either a literal string or a marker that the value is
// deferred to the remote runtime.
type VariableValue struct {
	deferred bool
	literal  string
}

// LiteralValue returns a VariableValue holding a literal string.
func LiteralValue(s string) VariableValue {
	return VariableValue{literal: s}
}

// DeferToRuntime returns the VariableValue variant meaning "resolved per call
// by the remote runtime".
func DeferToRuntime() VariableValue {
	return VariableValue{deferred: true}
}

// Deferred reports whether the value is runtime-deferred.
func (v VariableValue) Deferred() bool { return v.deferred }

// Literal returns the literal value. ok is false for deferred values.
func (v VariableValue) Literal() (value string, ok bool) {
	return v.literal, !v.deferred
}

// UnmarshalJSON converts the "OVERRIDE" sentinel into the deferred variant so
// downstream code never sees the magic string.
func (v *VariableValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("variable value must be a string: %w", err)
	}
	if s == overrideSentinel {
		*v = DeferToRuntime()
	} else {
		*v = LiteralValue(s)
	}
	return nil
}

// MarshalJSON writes the deferred variant back as the sentinel, keeping the
// on-disk format stable.
func (v VariableValue) MarshalJSON() ([]byte, error) {
	if v.deferred {
		return json.Marshal(overrideSentinel)
	}
	return json.Marshal(v.literal)
}

// NullableString distinguishes an explicit null from an absent field. The
// asymmetry matters for hashing: adding `"webhook_url": null` to a config is a
// detectable change.
type NullableString struct {
	Set   bool // field was present
	Null  bool // field was present and explicitly null
	Value string
}

// StringValue returns a present, non-null NullableString.
func StringValue(s string) NullableString {
	return NullableString{Set: true, Value: s}
}

// NullString returns a present, explicitly-null NullableString.
func NullString() NullableString {
	return NullableString{Set: true, Null: true}
}

// IsZero reports absence; with the `omitzero` option an absent field
// contributes nothing to the marshaled form.
func (n NullableString) IsZero() bool { return !n.Set }

func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Null {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Null = true
		n.Value = ""
		return nil
	}
	n.Null = false
	return json.Unmarshal(data, &n.Value)
}

// Ptr returns the value as *string: nil when absent or null.
func (n NullableString) Ptr() *string {
	if !n.Set || n.Null {
		return nil
	}
	v := n.Value
	return &v
}

// WorkspaceSlot identifies one deployment target: the staging slot or one
// (possibly indexed) production slot. It is a closed variant so the
// staging-first gate and metadata key derivation are exhaustive.
type WorkspaceSlot struct {
	production bool
	index      int // 0 for the default production slot, >= 2 for named slots
}

// Staging returns the staging slot. There is exactly one.
func Staging() WorkspaceSlot { return WorkspaceSlot{} }

// Production returns the default production slot.
func Production() WorkspaceSlot { return WorkspaceSlot{production: true} }

// ProductionN returns the n-th production slot. n == 1 is the default slot;
// n >= 2 are the indexed slots ("production-2", "production-3", ...).
func ProductionN(n int) (WorkspaceSlot, error) {
	if n < 1 {
		return WorkspaceSlot{}, fmt.Errorf("production slot index must be >= 1, got %d", n)
	}
	if n == 1 {
		return Production(), nil
	}
	return WorkspaceSlot{production: true, index: n}, nil
}

// ParseWorkspaceSlot parses "staging", "production" or "production-<n>".
func ParseWorkspaceSlot(s string) (WorkspaceSlot, error) {
	switch s {
	case "staging":
		return Staging(), nil
	case "production":
		return Production(), nil
	}
	if rest, ok := strings.CutPrefix(s, "production-"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 2 {
			return WorkspaceSlot{}, fmt.Errorf("invalid production slot %q: index must be an integer >= 2", s)
		}
		return WorkspaceSlot{production: true, index: n}, nil
	}
	return WorkspaceSlot{}, fmt.Errorf("unknown workspace slot %q (want staging, production or production-<n>)", s)
}

// IsProduction reports whether the slot is production-class and therefore
// subject to the staging-first gate.
func (w WorkspaceSlot) IsProduction() bool { return w.production }

// Key returns the stable identifier used for metadata records and
// environment-variable prefixes.
func (w WorkspaceSlot) Key() string {
	if !w.production {
		return "staging"
	}
	if w.index >= 2 {
		return fmt.Sprintf("production-%d", w.index)
	}
	return "production"
}

func (w WorkspaceSlot) String() string { return w.Key() }

// VariableKind is the classification of a prompt template token.
type VariableKind int

const (
	// VariableStatic resolves to a literal value at build time.
	VariableStatic VariableKind = iota
	// VariableOverride is deliberately left for the runtime to fill per call.
	VariableOverride
	// VariableDynamic is declared with a type/description contract and never
	// given a build-time value.
	VariableDynamic
	// VariableSystem is referenced but not declared anywhere locally; the
	// remote runtime supplies it from ambient call context.
	VariableSystem
)

func (k VariableKind) String() string {
	switch k {
	case VariableStatic:
		return "static"
	case VariableOverride:
		return "override"
	case VariableDynamic:
		return "dynamic"
	case VariableSystem:
		return "system"
	}
	return "unknown"
}

// Variable is a classified template token. Value is set for static variables;
// ValueType and Description are set for dynamic variables.
type Variable struct {
	Kind        VariableKind
	Name        string
	Value       string
	ValueType   string
	Description string
}

// VariableSummary partitions every token referenced by a composed prompt into
// the four kinds. The lists are pairwise disjoint and together cover every
// distinct token, each in order of first appearance.
type VariableSummary struct {
	Static   []Variable
	Override []Variable
	Dynamic  []Variable
	System   []Variable
}

// Count returns the total number of distinct tokens.
func (s *VariableSummary) Count() int {
	return len(s.Static) + len(s.Override) + len(s.Dynamic) + len(s.System)
}

// MetadataRecord is the persisted per-(agent, workspace slot) sync record.
// The JSON shape is stable for backward compatibility; all fields except
// workspace serialize as explicit null when unset.
type MetadataRecord struct {
	Workspace     string     `json:"workspace"`
	AgentID       *string    `json:"agent_id"`
	LLMID         *string    `json:"llm_id"`
	KBID          *string    `json:"kb_id"`
	LastSync      *time.Time `json:"last_sync"`
	ConfigHash    *string    `json:"config_hash"`
	RetellVersion *int       `json:"retell_version"`
}
