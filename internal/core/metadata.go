package core

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/voicelayer/retellsync/internal/metastore"
)

// MetadataStore owns the persisted sync records. Records for different
// workspace slots are fully independent: an operation on one slot never reads
// or writes another slot's record.
type MetadataStore struct {
	backend metastore.Backend

	// treatCorruptAsMissing downgrades an unparseable record to NeverSynced
	// instead of failing the operation. Off by default; the caller must opt
	// in because it silently discards remote ids.
	treatCorruptAsMissing bool
}

// NewMetadataStore creates a store over the given backend.
func NewMetadataStore(backend metastore.Backend) *MetadataStore {
	return &MetadataStore{backend: backend}
}

// TreatCorruptAsMissing opts in to handling corrupt records as NeverSynced.
func (s *MetadataStore) TreatCorruptAsMissing() {
	s.treatCorruptAsMissing = true
}

func recordKey(agentRef string, slot WorkspaceSlot) string {
	return agentRef + "/" + slot.Key()
}

// Read returns the record for (agentRef, slot), or ErrNotFound.
func (s *MetadataStore) Read(agentRef string, slot WorkspaceSlot) (*MetadataRecord, error) {
	key := recordKey(agentRef, slot)
	data, err := s.backend.Read(key)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec MetadataRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		if s.treatCorruptAsMissing {
			return nil, ErrNotFound
		}
		return nil, &MetadataCorruptError{Key: key, Err: err}
	}
	return &rec, nil
}

// MetadataPatch is a partial record update. Nil fields keep the existing
// value; set fields replace it.
type MetadataPatch struct {
	AgentID       *AgentID
	LLMID         *LLMID
	KBID          *string
	LastSync      *time.Time
	ConfigHash    *Hash
	RetellVersion *int
}

// Update merges patch into the existing record for (agentRef, slot), or a
// fresh all-null record if none exists, and persists the result atomically.
// The read-modify-write keeps fields a partial update does not touch, so a
// rollback utility refreshing only config_hash never clobbers remote ids.
func (s *MetadataStore) Update(agentRef string, slot WorkspaceSlot, patch MetadataPatch) (*MetadataRecord, error) {
	rec, err := s.Read(agentRef, slot)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		rec = &MetadataRecord{Workspace: slot.Key()}
	}

	if patch.AgentID != nil {
		v := string(*patch.AgentID)
		rec.AgentID = &v
	}
	if patch.LLMID != nil {
		v := string(*patch.LLMID)
		rec.LLMID = &v
	}
	if patch.KBID != nil {
		v := *patch.KBID
		rec.KBID = &v
	}
	if patch.LastSync != nil {
		v := patch.LastSync.UTC()
		rec.LastSync = &v
	}
	if patch.ConfigHash != nil {
		v := string(*patch.ConfigHash)
		rec.ConfigHash = &v
	}
	if patch.RetellVersion != nil {
		v := *patch.RetellVersion
		rec.RetellVersion = &v
	}
	rec.Workspace = slot.Key()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if err := s.backend.Write(recordKey(agentRef, slot), data); err != nil {
		return nil, err
	}
	return rec, nil
}

// Forget removes the record for (agentRef, slot). Never called by the sync
// engine itself; record deletion is always an explicit operator action.
func (s *MetadataStore) Forget(agentRef string, slot WorkspaceSlot) error {
	return s.backend.Delete(recordKey(agentRef, slot))
}

// StoredHash returns the record's config hash, or "" when unset.
func (r *MetadataRecord) StoredHash() Hash {
	if r == nil || r.ConfigHash == nil {
		return ""
	}
	return Hash(*r.ConfigHash)
}

// StoredAgentID returns the record's agent id, or "" when unset.
func (r *MetadataRecord) StoredAgentID() AgentID {
	if r == nil || r.AgentID == nil {
		return ""
	}
	return AgentID(*r.AgentID)
}

// StoredLLMID returns the record's llm id, or "" when unset.
func (r *MetadataRecord) StoredLLMID() LLMID {
	if r == nil || r.LLMID == nil {
		return ""
	}
	return LLMID(*r.LLMID)
}
