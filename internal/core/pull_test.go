package core

import (
	"context"
	"errors"
	"testing"
)

func TestPull_ReconstructsRemoteState(t *testing.T) {
	ctx := context.Background()
	svc := newFakeService()
	syncer, _ := newTestSyncer(t, svc)
	cfg := testConfig()

	res, err := syncer.Push(ctx, "support", cfg, Staging(), false)
	if err != nil {
		t.Fatal(err)
	}

	// Remote drifted: a new company name in the dashboard.
	llm := svc.llms[res.LLMID]
	llm.GeneralPrompt = "Hello from Globex, ask {{caller_name}}"
	svc.llms[res.LLMID] = llm

	pulled, hash, err := syncer.Pull(ctx, "support", cfg, Staging())
	if err != nil {
		t.Fatal(err)
	}
	pc := pulled.LLM.PromptConfig
	if pc == nil {
		t.Fatal("pull should preserve prompt structure via the local hint")
	}
	if v, _ := pc.Variables["company"].Literal(); v != "Globex" {
		t.Errorf("company = %q, want the remote value", v)
	}

	// Pull itself never writes metadata; the hash still points at Acme.
	rec, err := syncer.Store().Read("support", Staging())
	if err != nil {
		t.Fatal(err)
	}
	if rec.StoredHash() == hash {
		t.Error("pull must not advance the stored hash before commit")
	}

	if err := syncer.CommitPull("support", Staging(), hash); err != nil {
		t.Fatal(err)
	}
	rec, err = syncer.Store().Read("support", Staging())
	if err != nil {
		t.Fatal(err)
	}
	if rec.StoredHash() != hash {
		t.Errorf("committed hash = %q, want %q", rec.StoredHash(), hash)
	}
	if rec.StoredAgentID() != res.AgentID || rec.StoredLLMID() != res.LLMID {
		t.Error("commit must not clobber remote ids")
	}

	// After writing the pulled config locally, status settles to in-sync.
	status, err := syncer.Status(ctx, "support", pulled, Staging(), true)
	if err != nil {
		t.Fatal(err)
	}
	if status.State != StateInSync {
		t.Errorf("state after pull+commit = %v, want in-sync", status.State)
	}
}

func TestPull_NeverSyncedFails(t *testing.T) {
	syncer, _ := newTestSyncer(t, newFakeService())

	_, _, err := syncer.Pull(context.Background(), "support", testConfig(), Staging())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
