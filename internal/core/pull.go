package core

import (
	"context"
	"time"
)

// Pull fetches current remote state for (agentRef, slot) and reverse-
// transforms it into a local config, using the existing local config's prompt
// structure as the reconstruction hint. This is the "use-remote" conflict
// choice: the caller overwrites the local file with the result.
//
// Pull does not touch the metadata record; the caller persists the new local
// file first and then calls CommitPull, so a failed file write leaves the
// stored record consistent with what is actually on disk.
func (s *Syncer) Pull(ctx context.Context, agentRef string, local *AgentConfig, slot WorkspaceSlot) (*AgentConfig, Hash, error) {
	stored, err := s.store.Read(agentRef, slot)
	if err != nil {
		return nil, "", err
	}
	remoteCfg, err := s.fetchRemoteConfig(ctx, local, stored)
	if err != nil {
		return nil, "", err
	}
	hash, err := HashConfig(remoteCfg)
	if err != nil {
		return nil, "", err
	}
	return remoteCfg, hash, nil
}

// CommitPull records that the local file now matches the pulled remote state.
func (s *Syncer) CommitPull(agentRef string, slot WorkspaceSlot, hash Hash) error {
	now := time.Now().UTC()
	_, err := s.store.Update(agentRef, slot, MetadataPatch{
		ConfigHash: &hash,
		LastSync:   &now,
	})
	return err
}
