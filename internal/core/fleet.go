package core

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// FleetResult is the per-agent outcome of a fleet push.
type FleetResult struct {
	Agent  string
	Result *PushResult
	Err    error
}

// PushAll pushes many agents to one slot, in parallel across agents. Each
// agent's push is the same strictly-ordered serial state machine as a single
// push; only the fan-out across independent (agent, slot) pairs is
// concurrent. One agent's failure never stops the others. Results come back
// in input order.
func (s *Syncer) PushAll(ctx context.Context, agents []string, load func(name string) (*AgentConfig, error), slot WorkspaceSlot, force bool, parallelism int) []FleetResult {
	if parallelism < 1 {
		parallelism = 4
	}

	results := make([]FleetResult, len(agents))

	p := pool.New().WithMaxGoroutines(parallelism)
	for i, name := range agents {
		p.Go(func() {
			res := FleetResult{Agent: name}
			cfg, err := load(name)
			if err != nil {
				res.Err = err
			} else {
				res.Result, res.Err = s.Push(ctx, name, cfg, slot, force)
			}
			results[i] = res
		})
	}
	p.Wait()
	return results
}
