package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/voicelayer/retellsync/internal/metastore"
)

func newTestStore(t *testing.T) (*MetadataStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewMetadataStore(metastore.NewFileBackend(dir)), dir
}

func TestMetadataStore_ReadNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Read("support", Staging())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMetadataStore_UpdateCreatesAndMerges(t *testing.T) {
	store, _ := newTestStore(t)

	agentID := AgentID("agent_1")
	llmID := LLMID("llm_1")
	hash := Hash("sha256:aaaa")
	now := time.Now().UTC()

	rec, err := store.Update("support", Staging(), MetadataPatch{
		AgentID:    &agentID,
		LLMID:      &llmID,
		ConfigHash: &hash,
		LastSync:   &now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Workspace != "staging" {
		t.Errorf("workspace = %q", rec.Workspace)
	}
	if rec.StoredAgentID() != agentID || rec.StoredLLMID() != llmID {
		t.Errorf("ids not stored: %+v", rec)
	}

	// A partial update must keep the fields it does not touch.
	newHash := Hash("sha256:bbbb")
	rec, err = store.Update("support", Staging(), MetadataPatch{ConfigHash: &newHash})
	if err != nil {
		t.Fatal(err)
	}
	if rec.StoredHash() != newHash {
		t.Errorf("hash = %q, want %q", rec.StoredHash(), newHash)
	}
	if rec.StoredAgentID() != agentID {
		t.Errorf("partial update clobbered agent_id: %+v", rec)
	}
	if rec.LastSync == nil {
		t.Error("partial update clobbered last_sync")
	}
}

func TestMetadataStore_SlotIsolation(t *testing.T) {
	store, dir := newTestStore(t)

	hash := Hash("sha256:prod")
	if _, err := store.Update("support", Production(), MetadataPatch{ConfigHash: &hash}); err != nil {
		t.Fatal(err)
	}
	prodPath := filepath.Join(dir, "support", "production.json")
	before, err := os.ReadFile(prodPath)
	if err != nil {
		t.Fatal(err)
	}

	stagingHash := Hash("sha256:staging")
	if _, err := store.Update("support", Staging(), MetadataPatch{ConfigHash: &stagingHash}); err != nil {
		t.Fatal(err)
	}

	after, err := os.ReadFile(prodPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("staging update modified production's record")
	}
}

func TestMetadataStore_IndexedSlotKeys(t *testing.T) {
	store, dir := newTestStore(t)

	slot, err := ProductionN(2)
	if err != nil {
		t.Fatal(err)
	}
	hash := Hash("sha256:x")
	if _, err := store.Update("support", slot, MetadataPatch{ConfigHash: &hash}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "support", "production-2.json")); err != nil {
		t.Errorf("expected production-2.json record: %v", err)
	}
}

func TestMetadataStore_CorruptRecord(t *testing.T) {
	store, dir := newTestStore(t)
	if err := os.MkdirAll(filepath.Join(dir, "support"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "support", "staging.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := store.Read("support", Staging())
	var corrupt *MetadataCorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected MetadataCorruptError, got %v", err)
	}

	// Only with explicit opt-in does corruption downgrade to NeverSynced.
	store.TreatCorruptAsMissing()
	if _, err := store.Read("support", Staging()); !errors.Is(err, ErrNotFound) {
		t.Errorf("lenient read: expected ErrNotFound, got %v", err)
	}
}

func TestMetadataRecord_DiskShape(t *testing.T) {
	store, dir := newTestStore(t)

	hash := Hash("sha256:abc")
	if _, err := store.Update("support", Staging(), MetadataPatch{ConfigHash: &hash}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "support", "staging.json"))
	if err != nil {
		t.Fatal(err)
	}
	// Unset fields serialize as explicit null; field names are stable.
	for _, want := range []string{
		`"workspace": "staging"`,
		`"agent_id": null`,
		`"llm_id": null`,
		`"kb_id": null`,
		`"last_sync": null`,
		`"config_hash": "sha256:abc"`,
		`"retell_version": null`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("record missing %s:\n%s", want, data)
		}
	}
}
