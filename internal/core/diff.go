package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

// SyncState classifies the relationship between the local config, the last
// recorded push, and (optionally) current remote state.
type SyncState int

const (
	// StateNeverSynced: no metadata record (or no recorded hash) for the slot.
	StateNeverSynced SyncState = iota
	// StateInSync: every hash in play matches the stored hash.
	StateInSync
	// StateLocalChanged: the local config changed since the last push.
	StateLocalChanged
	// StateDrift: the remote changed outside this tool; local matches stored.
	StateDrift
	// StateConflict: both local and remote diverged from the last push.
	StateConflict
)

func (s SyncState) String() string {
	switch s {
	case StateNeverSynced:
		return "never-synced"
	case StateInSync:
		return "in-sync"
	case StateLocalChanged:
		return "local-changed"
	case StateDrift:
		return "drift"
	case StateConflict:
		return "conflict"
	}
	return "unknown"
}

// SyncStatus is the derived, never-persisted comparison result.
type SyncStatus struct {
	State      SyncState
	LastSync   *time.Time
	LocalHash  Hash
	StoredHash Hash
	// RemoteHash is set only when the status check fetched remote state.
	RemoteHash Hash
	Record     *MetadataRecord
}

// Status classifies the sync state of (agentRef, slot). With checkRemote
// false the classification is purely local (no network calls): in-sync versus
// local-changed. With checkRemote true, current remote state is fetched, run
// through the reverse transform and hashed, enabling drift and conflict
// detection.
func (s *Syncer) Status(ctx context.Context, agentRef string, cfg *AgentConfig, slot WorkspaceSlot, checkRemote bool) (*SyncStatus, error) {
	localHash, err := HashConfig(cfg)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.Read(agentRef, slot)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	status := &SyncStatus{
		LocalHash:  localHash,
		StoredHash: stored.StoredHash(),
		Record:     stored,
	}
	if stored != nil {
		status.LastSync = stored.LastSync
	}

	if status.StoredHash == "" {
		status.State = StateNeverSynced
		return status, nil
	}

	localClean := localHash.Equal(status.StoredHash)

	if !checkRemote {
		if localClean {
			status.State = StateInSync
		} else {
			status.State = StateLocalChanged
		}
		return status, nil
	}

	remoteCfg, err := s.fetchRemoteConfig(ctx, cfg, stored)
	if err != nil {
		return nil, err
	}
	remoteHash, err := HashConfig(remoteCfg)
	if err != nil {
		return nil, err
	}
	status.RemoteHash = remoteHash
	remoteClean := remoteHash.Equal(status.StoredHash)

	switch {
	case localClean && remoteClean:
		status.State = StateInSync
	case !localClean && remoteClean:
		status.State = StateLocalChanged
	case localClean && !remoteClean:
		status.State = StateDrift
	default:
		status.State = StateConflict
	}
	return status, nil
}

// fetchRemoteConfig pulls current remote state and reverse-transforms it,
// using the local prompt structure as the reconstruction hint.
func (s *Syncer) fetchRemoteConfig(ctx context.Context, local *AgentConfig, stored *MetadataRecord) (*AgentConfig, error) {
	agentID := stored.StoredAgentID()
	llmID := stored.StoredLLMID()
	if agentID == "" || llmID == "" {
		return nil, fmt.Errorf("metadata record for %s has no remote ids", stored.Workspace)
	}

	agent, err := s.service.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	llm, err := s.service.GetLLM(ctx, llmID)
	if err != nil {
		return nil, err
	}

	return FromRemote(agent, llm, s.promptHint(local)), nil
}

// promptHint builds the reverse-transform hint from the local config, or nil
// when the local prompt is flat or its sections no longer resolve.
func (s *Syncer) promptHint(local *AgentConfig) *PromptHint {
	pc := local.LLM.PromptConfig
	if pc == nil {
		return nil
	}
	template, err := composeTemplate(pc, s.sections)
	if err != nil {
		return nil
	}
	return &PromptHint{Config: pc, Template: template}
}

// FieldDelta is one scalar field difference between local and remote.
type FieldDelta struct {
	Field  string
	Local  string
	Remote string
}

// DiffReport holds the operator-facing comparison of local versus remote.
type DiffReport struct {
	Status  *SyncStatus
	Scalars []FieldDelta
	// PromptDiff is a unified diff of the remote prompt against the locally
	// composed one. Empty when the prompts match.
	PromptDiff string
}

// Diff fetches remote state and reports field-level differences alongside the
// three-hash classification.
func (s *Syncer) Diff(ctx context.Context, agentRef string, cfg *AgentConfig, slot WorkspaceSlot) (*DiffReport, error) {
	status, err := s.Status(ctx, agentRef, cfg, slot, true)
	if err != nil {
		return nil, err
	}
	stored := status.Record
	if stored == nil {
		return nil, fmt.Errorf("agent %s has never been pushed to %s", agentRef, slot)
	}

	agent, err := s.service.GetAgent(ctx, stored.StoredAgentID())
	if err != nil {
		return nil, err
	}
	llm, err := s.service.GetLLM(ctx, stored.StoredLLMID())
	if err != nil {
		return nil, err
	}

	localPrompt, _, err := BuildPrompt(cfg, s.sections)
	if err != nil {
		return nil, err
	}

	report := &DiffReport{Status: status}
	report.Scalars = scalarDeltas(cfg, agent, llm)

	if localPrompt != llm.GeneralPrompt {
		unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(llm.GeneralPrompt),
			B:        difflib.SplitLines(localPrompt),
			FromFile: "remote",
			ToFile:   "local",
			Context:  3,
		})
		if err != nil {
			return nil, fmt.Errorf("computing prompt diff: %w", err)
		}
		report.PromptDiff = unified
	}
	return report, nil
}

func scalarDeltas(cfg *AgentConfig, agent *RemoteAgentPayload, llm *RemoteLLMPayload) []FieldDelta {
	var deltas []FieldDelta
	add := func(field, local, remote string) {
		if local != remote {
			deltas = append(deltas, FieldDelta{Field: field, Local: local, Remote: remote})
		}
	}
	add("agent_name", cfg.AgentName, agent.AgentName)
	add("voice_id", cfg.VoiceID, agent.VoiceID)
	add("voice_speed", formatFloat(cfg.VoiceSpeed), formatFloat(agent.VoiceSpeed))
	add("language", cfg.Language, agent.Language)
	add("model", cfg.LLM.Model, llm.Model)
	add("temperature", formatFloat(cfg.LLM.Temperature), formatFloat(llm.Temperature))
	add("begin_message", cfg.LLM.BeginMessage, llm.BeginMessage)
	add("webhook_url", formatNullable(cfg.WebhookURL), formatNullable(agent.WebhookURL))
	return deltas
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatNullable(n NullableString) string {
	switch {
	case !n.Set:
		return "<unset>"
	case n.Null:
		return "null"
	}
	return n.Value
}
