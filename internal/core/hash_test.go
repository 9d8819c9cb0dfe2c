package core

import (
	"strings"
	"testing"
)

func TestHashConfig_KeyOrderIndependent(t *testing.T) {
	a, err := ParseAgentConfig([]byte(`{
		"agent_name": "support",
		"voice_id": "v1",
		"language": "en-US",
		"llm": {"model": "gpt-4o", "temperature": 0.7, "prompt": "Hello"}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseAgentConfig([]byte(`{
		"llm": {"temperature": 0.7, "prompt": "Hello", "model": "gpt-4o"},
		"language": "en-US",
		"voice_id": "v1",
		"agent_name": "support"
	}`))
	if err != nil {
		t.Fatal(err)
	}

	ha, err := HashConfig(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := HashConfig(b)
	if err != nil {
		t.Fatal(err)
	}
	if !ha.Equal(hb) {
		t.Errorf("hashes differ for logically identical configs: %s vs %s", ha, hb)
	}
	if !strings.HasPrefix(string(ha), "sha256:") {
		t.Errorf("hash missing algorithm prefix: %s", ha)
	}
}

func TestHashConfig_ScalarSensitivity(t *testing.T) {
	base := &AgentConfig{
		AgentName: "support",
		VoiceID:   "v1",
		LLM:       LLMConfig{Model: "gpt-4o", Temperature: 0.7, Prompt: "Hello"},
	}
	h1, err := HashConfig(base)
	if err != nil {
		t.Fatal(err)
	}

	changed := *base
	changed.LLM.Temperature = 0.8
	h2, err := HashConfig(&changed)
	if err != nil {
		t.Fatal(err)
	}
	if h1.Equal(h2) {
		t.Error("changing temperature did not change the hash")
	}
}

func TestHashConfig_NullVersusAbsent(t *testing.T) {
	withNull, err := ParseAgentConfig([]byte(`{
		"agent_name": "support",
		"voice_id": "v1",
		"webhook_url": null,
		"llm": {"model": "gpt-4o", "temperature": 0.7, "prompt": "Hello"}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	omitted, err := ParseAgentConfig([]byte(`{
		"agent_name": "support",
		"voice_id": "v1",
		"llm": {"model": "gpt-4o", "temperature": 0.7, "prompt": "Hello"}
	}`))
	if err != nil {
		t.Fatal(err)
	}

	hNull, err := HashConfig(withNull)
	if err != nil {
		t.Fatal(err)
	}
	hOmitted, err := HashConfig(omitted)
	if err != nil {
		t.Fatal(err)
	}
	if hNull.Equal(hOmitted) {
		t.Error("explicit null and absent webhook_url hashed identically")
	}
}

func TestHashConfig_VariableSentinelDistinctFromLiteral(t *testing.T) {
	mk := func(v VariableValue) *AgentConfig {
		return &AgentConfig{
			AgentName: "support",
			VoiceID:   "v1",
			LLM: LLMConfig{
				Model:       "gpt-4o",
				Temperature: 0.7,
				PromptConfig: &PromptConfig{
					Sections:  []string{"greeting"},
					Variables: map[string]VariableValue{"company": v},
				},
			},
		}
	}
	h1, err := HashConfig(mk(LiteralValue("Acme")))
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashConfig(mk(DeferToRuntime()))
	if err != nil {
		t.Fatal(err)
	}
	if h1.Equal(h2) {
		t.Error("literal and deferred variable values hashed identically")
	}
}

func TestHash_Short(t *testing.T) {
	h := Hash("sha256:abcdef0123456789abcdef")
	if got, want := h.Short(), "sha256:abcdef012345"; got != want {
		t.Errorf("Short() = %q, want %q", got, want)
	}
}
