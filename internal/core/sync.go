package core

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// AgentService is the remote execution API the sync engine pushes to. It is
// implemented by the Retell REST client; tests substitute a fake. Every call
// takes a context and fails with a typed error.
type AgentService interface {
	CreateLLM(ctx context.Context, payload RemoteLLMPayload) (LLMID, error)
	UpdateLLM(ctx context.Context, id LLMID, payload RemoteLLMPayload) error
	GetLLM(ctx context.Context, id LLMID) (*RemoteLLMPayload, error)
	DeleteLLM(ctx context.Context, id LLMID) error

	CreateAgent(ctx context.Context, payload RemoteAgentPayload) (AgentID, error)
	UpdateAgent(ctx context.Context, id AgentID, payload RemoteAgentPayload) error
	GetAgent(ctx context.Context, id AgentID) (*RemoteAgentPayload, error)
	DeleteAgent(ctx context.Context, id AgentID) error
}

// Syncer drives the push/status/diff decision logic for one workspace's
// remote service. All operations are synchronous and strictly ordered within
// one (agent, slot) pair; concurrent pushes to the same pair are not
// serialized here and resolve last-write-wins at the metadata layer; callers
// wanting stronger guarantees must serialize themselves.
type Syncer struct {
	store    *MetadataStore
	service  AgentService
	sections SectionResolver
}

// NewSyncer creates a Syncer. service may be nil for purely local operations
// (status without a remote check).
func NewSyncer(store *MetadataStore, service AgentService, sections SectionResolver) *Syncer {
	return &Syncer{store: store, service: service, sections: sections}
}

// Store exposes the metadata store for operator actions outside the push
// state machine (pull commits, record removal).
func (s *Syncer) Store() *MetadataStore { return s.store }

// PushStatus is the outcome class of a push.
type PushStatus string

const (
	PushCreated PushStatus = "created"
	PushUpdated PushStatus = "updated"
	PushInSync  PushStatus = "in-sync"
)

// PushResult reports a completed push: the concrete remote ids, the new hash,
// and an operation id for log correlation.
type PushResult struct {
	Status   PushStatus
	AgentID  AgentID
	LLMID    LLMID
	Hash     Hash
	OpID     string
	LastSync time.Time
}

// Push synchronizes one agent config to one workspace slot.
//
// The steps are strictly ordered: hash, short-circuit check, staging-first
// gate, LLM round trip, agent round trip (which needs the LLM id), metadata
// write. A failure at any remote step aborts without touching the stored
// record, so a failed push is safe to retry and leaves both local and remote
// bookkeeping exactly as before the attempt.
func (s *Syncer) Push(ctx context.Context, agentRef string, cfg *AgentConfig, slot WorkspaceSlot, force bool) (*PushResult, error) {
	opID := ulid.Make().String()
	logger := log.With().Str("op", opID).Str("agent", agentRef).Stringer("slot", slot).Logger()

	localHash, err := HashConfig(cfg)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.Read(agentRef, slot)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// In-sync short circuit: zero remote calls for a no-op push.
	if !force && stored.StoredHash().Equal(localHash) {
		logger.Debug().Str("hash", localHash.Short()).Msg("config already in sync, skipping remote calls")
		res := &PushResult{
			Status:  PushInSync,
			AgentID: stored.StoredAgentID(),
			LLMID:   stored.StoredLLMID(),
			Hash:    localHash,
			OpID:    opID,
		}
		if stored.LastSync != nil {
			res.LastSync = *stored.LastSync
		}
		return res, nil
	}

	// Staging-first gate: a production slot only accepts a hash that staging
	// already holds. Reads staging's record, never writes it.
	if slot.IsProduction() && !force {
		staging, err := s.store.Read(agentRef, Staging())
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if !staging.StoredHash().Equal(localHash) {
			return nil, &StagingRequiredError{Slot: slot}
		}
	}

	prompt, _, err := BuildPrompt(cfg, s.sections)
	if err != nil {
		return nil, err
	}

	status := PushUpdated
	llmPayload := ToRemoteLLM(cfg, prompt)
	llmID := stored.StoredLLMID()
	if llmID != "" {
		if err := s.service.UpdateLLM(ctx, llmID, llmPayload); err != nil {
			return nil, err
		}
		logger.Debug().Str("llm_id", string(llmID)).Msg("updated LLM resource")
	} else {
		status = PushCreated
		llmID, err = s.service.CreateLLM(ctx, llmPayload)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("llm_id", string(llmID)).Msg("created LLM resource")
	}

	agentPayload, err := ToRemoteAgent(cfg, llmID)
	if err != nil {
		return nil, err
	}
	agentID := stored.StoredAgentID()
	if agentID != "" {
		if err := s.service.UpdateAgent(ctx, agentID, agentPayload); err != nil {
			return nil, err
		}
		logger.Debug().Str("agent_id", string(agentID)).Msg("updated agent resource")
	} else {
		status = PushCreated
		agentID, err = s.service.CreateAgent(ctx, agentPayload)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("agent_id", string(agentID)).Msg("created agent resource")
	}

	now := time.Now().UTC()
	if _, err := s.store.Update(agentRef, slot, MetadataPatch{
		AgentID:    &agentID,
		LLMID:      &llmID,
		ConfigHash: &localHash,
		LastSync:   &now,
	}); err != nil {
		return nil, err
	}

	logger.Info().
		Str("status", string(status)).
		Str("hash", localHash.Short()).
		Msg("push complete")

	return &PushResult{
		Status:   status,
		AgentID:  agentID,
		LLMID:    llmID,
		Hash:     localHash,
		OpID:     opID,
		LastSync: now,
	}, nil
}

// Remove deletes the remote resources recorded for (agentRef, slot) and then
// forgets the metadata record. This is the explicit operator action the sync
// engine itself never performs.
func (s *Syncer) Remove(ctx context.Context, agentRef string, slot WorkspaceSlot) error {
	stored, err := s.store.Read(agentRef, slot)
	if err != nil {
		return err
	}
	if id := stored.StoredAgentID(); id != "" {
		if err := s.service.DeleteAgent(ctx, id); err != nil {
			return err
		}
	}
	if id := stored.StoredLLMID(); id != "" {
		if err := s.service.DeleteLLM(ctx, id); err != nil {
			return err
		}
	}
	return s.store.Forget(agentRef, slot)
}
