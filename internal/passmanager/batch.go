package passmanager

import (
	"golang.org/x/sync/errgroup"

	"github.com/sereinwalker/sysy-ir/internal/ir"
)

// RunBatch optimizes every module in mods concurrently, one goroutine
// per module. Modules share nothing — distinct arenas — so running the
// pass manager over them in parallel is safe. Each module gets its own Manager (hence its own
// Statistics, if the caller wants per-module counts) built from cfg.
func RunBatch(mods []*ir.Module, cfg Config) ([]bool, error) {
	results := make([]bool, len(mods))
	var g errgroup.Group
	for i, mod := range mods {
		i, mod := i, mod
		g.Go(func() error {
			m := NewManager(cfg)
			results[i] = m.RunModule(mod)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
