package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/voicelayer/retellsync/internal/core"
	"github.com/voicelayer/retellsync/internal/metastore"
	"github.com/voicelayer/retellsync/internal/remote"
	"github.com/voicelayer/retellsync/internal/workspace"
)

// deps holds shared dependencies for CLI commands.
type deps struct {
	project  *core.Project
	sections *core.DirSectionResolver
	backend  metastore.Backend
	store    *core.MetadataStore
}

// newDeps resolves the project directory and opens the metadata backend.
// Called lazily by commands that need them; the caller must Close.
func newDeps(cmd *cobra.Command) (*deps, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
		dir = cwd
	}
	project, err := core.OpenProject(dir)
	if err != nil {
		return nil, err
	}

	var backend metastore.Backend
	switch kind, _ := cmd.Flags().GetString("store"); kind {
	case "", "file":
		backend = metastore.NewFileBackend(project.MetadataDir())
	case "sqlite":
		backend, err = metastore.NewSQLiteBackend(filepath.Join(project.StateDir(), "metadata.db"))
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown metadata store %q (want file or sqlite)", kind)
	}

	return &deps{
		project:  project,
		sections: core.NewDirSectionResolver(project.PromptsDir()),
		backend:  backend,
		store:    core.NewMetadataStore(backend),
	}, nil
}

func (d *deps) Close() error {
	return d.backend.Close()
}

// localSyncer returns a syncer for operations that never touch the remote.
func (d *deps) localSyncer() *core.Syncer {
	return core.NewSyncer(d.store, nil, d.sections)
}

// syncerFor resolves the slot's credentials and returns a syncer backed by a
// Retell client for that workspace.
func (d *deps) syncerFor(slot core.WorkspaceSlot) (*core.Syncer, error) {
	creds, err := workspace.Resolve(d.project.Dir(), slot)
	if err != nil {
		return nil, err
	}
	client, err := remote.NewClient(remote.ClientConfig{
		APIKey:  creds.APIKey,
		BaseURL: creds.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return core.NewSyncer(d.store, client, d.sections), nil
}
