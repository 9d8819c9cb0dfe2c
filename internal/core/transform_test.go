package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func testConfig() *AgentConfig {
	return &AgentConfig{
		AgentName:  "support",
		VoiceID:    "v1",
		VoiceSpeed: 1.1,
		Language:   "en-US",
		LLM: LLMConfig{
			Model:        "gpt-4o",
			Temperature:  0.7,
			BeginMessage: "Hi there",
			PromptConfig: &PromptConfig{
				Sections:  []string{"greeting"},
				Variables: map[string]VariableValue{"company": LiteralValue("Acme")},
			},
		},
		WebhookURL: StringValue("https://example.com/hook"),
	}
}

func TestToRemoteAgent_RequiresLLMID(t *testing.T) {
	if _, err := ToRemoteAgent(testConfig(), ""); err == nil {
		t.Fatal("expected error for zero llm_id")
	}

	payload, err := ToRemoteAgent(testConfig(), LLMID("llm_123"))
	if err != nil {
		t.Fatal(err)
	}
	if payload.ResponseEngine.LLMID != "llm_123" {
		t.Errorf("llm_id = %q", payload.ResponseEngine.LLMID)
	}
	if payload.ResponseEngine.Type != "retell-llm" {
		t.Errorf("response engine type = %q", payload.ResponseEngine.Type)
	}
	if payload.WebhookURL != StringValue("https://example.com/hook") {
		t.Errorf("webhook_url = %+v", payload.WebhookURL)
	}
}

func TestToRemoteAgent_WebhookNullVsAbsent(t *testing.T) {
	cfg := testConfig()
	cfg.WebhookURL = NullString()
	payload, err := ToRemoteAgent(cfg, LLMID("llm_1"))
	if err != nil {
		t.Fatal(err)
	}
	wire, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(wire), `"webhook_url":null`) {
		t.Errorf("explicit null must survive to the wire, got %s", wire)
	}

	cfg.WebhookURL = NullableString{}
	payload, err = ToRemoteAgent(cfg, LLMID("llm_1"))
	if err != nil {
		t.Fatal(err)
	}
	wire, err = json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(wire), "webhook_url") {
		t.Errorf("absent webhook must stay off the wire, got %s", wire)
	}
}

func TestFromRemote_NullWebhookRoundTrips(t *testing.T) {
	cfg := testConfig()
	cfg.WebhookURL = NullString()
	llm := ToRemoteLLM(cfg, "Hello from Acme")
	agent, err := ToRemoteAgent(cfg, LLMID("llm_1"))
	if err != nil {
		t.Fatal(err)
	}

	back := FromRemote(&agent, &llm, nil)
	if back.WebhookURL != NullString() {
		t.Errorf("explicit null collapsed on the way back: %+v", back.WebhookURL)
	}

	cfg.WebhookURL = NullableString{}
	agent, err = ToRemoteAgent(cfg, LLMID("llm_1"))
	if err != nil {
		t.Fatal(err)
	}
	back = FromRemote(&agent, &llm, nil)
	if back.WebhookURL.Set {
		t.Errorf("absent webhook came back present: %+v", back.WebhookURL)
	}
}

func TestToRemoteLLM(t *testing.T) {
	payload := ToRemoteLLM(testConfig(), "Hello from Acme")
	if payload.Model != "gpt-4o" || payload.Temperature != 0.7 {
		t.Errorf("scalar fields wrong: %+v", payload)
	}
	if payload.GeneralPrompt != "Hello from Acme" {
		t.Errorf("general_prompt = %q", payload.GeneralPrompt)
	}
	if payload.BeginMessage != "Hi there" {
		t.Errorf("begin_message = %q", payload.BeginMessage)
	}
}

func TestFromRemote_ScalarsRoundTrip(t *testing.T) {
	cfg := testConfig()
	llm := ToRemoteLLM(cfg, "Hello from Acme")
	agent, err := ToRemoteAgent(cfg, LLMID("llm_1"))
	if err != nil {
		t.Fatal(err)
	}

	back := FromRemote(&agent, &llm, nil)
	if back.AgentName != cfg.AgentName || back.VoiceID != cfg.VoiceID ||
		back.VoiceSpeed != cfg.VoiceSpeed || back.Language != cfg.Language {
		t.Errorf("agent scalars did not round-trip: %+v", back)
	}
	if back.LLM.Model != cfg.LLM.Model || back.LLM.Temperature != cfg.LLM.Temperature {
		t.Errorf("llm scalars did not round-trip: %+v", back.LLM)
	}
	if back.WebhookURL.Ptr() == nil || *back.WebhookURL.Ptr() != "https://example.com/hook" {
		t.Errorf("webhook did not round-trip: %+v", back.WebhookURL)
	}
	// Without a hint the prompt stays flat.
	if back.LLM.PromptConfig != nil || back.LLM.Prompt != "Hello from Acme" {
		t.Errorf("expected flat prompt fallback, got %+v", back.LLM)
	}
}

func TestFromRemote_HintPreservesStructure(t *testing.T) {
	cfg := testConfig()
	hint := &PromptHint{
		Config:   cfg.LLM.PromptConfig,
		Template: "Hello from {{company}}, ask {{caller_name}}",
	}
	llm := &RemoteLLMPayload{
		Model:         "gpt-4o",
		Temperature:   0.7,
		GeneralPrompt: "Hello from Acme, ask {{caller_name}}",
	}
	agent := &RemoteAgentPayload{AgentName: "support", VoiceID: "v1"}

	back := FromRemote(agent, llm, hint)
	pc := back.LLM.PromptConfig
	if pc == nil {
		t.Fatal("expected structure-preserving reverse transform")
	}
	if len(pc.Sections) != 1 || pc.Sections[0] != "greeting" {
		t.Errorf("sections = %v", pc.Sections)
	}
	if val, ok := pc.Variables["company"].Literal(); !ok || val != "Acme" {
		t.Errorf("company = %v", pc.Variables["company"])
	}
}

func TestFromRemote_HintRefreshesDriftedValue(t *testing.T) {
	cfg := testConfig()
	hint := &PromptHint{
		Config:   cfg.LLM.PromptConfig,
		Template: "Hello from {{company}}, ask {{caller_name}}",
	}
	// Someone edited the company name in the dashboard.
	llm := &RemoteLLMPayload{
		GeneralPrompt: "Hello from Globex, ask {{caller_name}}",
	}
	agent := &RemoteAgentPayload{AgentName: "support", VoiceID: "v1"}

	back := FromRemote(agent, llm, hint)
	pc := back.LLM.PromptConfig
	if pc == nil {
		t.Fatal("expected structure-preserving reverse transform")
	}
	if val, _ := pc.Variables["company"].Literal(); val != "Globex" {
		t.Errorf("company = %q, want refreshed value Globex", val)
	}
}

func TestFromRemote_StructuralMismatchFallsBack(t *testing.T) {
	cfg := testConfig()
	hint := &PromptHint{
		Config:   cfg.LLM.PromptConfig,
		Template: "Hello from {{company}}, ask {{caller_name}}",
	}
	// The remote prompt was rewritten wholesale; the deferred token is gone.
	llm := &RemoteLLMPayload{
		GeneralPrompt: "Completely different instructions.",
	}
	agent := &RemoteAgentPayload{AgentName: "support", VoiceID: "v1"}

	back := FromRemote(agent, llm, hint)
	if back.LLM.PromptConfig != nil {
		t.Error("expected flat fallback, section boundaries must not be invented")
	}
	if back.LLM.Prompt != "Completely different instructions." {
		t.Errorf("prompt = %q", back.LLM.Prompt)
	}
}

func TestFromRemote_RepeatedVariableMustAgree(t *testing.T) {
	pc := &PromptConfig{
		Sections:  []string{"s"},
		Variables: map[string]VariableValue{"company": LiteralValue("Acme")},
	}
	hint := &PromptHint{Config: pc, Template: "{{company}} and {{company}}"}

	llm := &RemoteLLMPayload{GeneralPrompt: "Acme and Globex"}
	agent := &RemoteAgentPayload{AgentName: "a", VoiceID: "v"}

	back := FromRemote(agent, llm, hint)
	if back.LLM.PromptConfig != nil {
		t.Error("disagreeing captures for one variable must fall back to flat")
	}
}
