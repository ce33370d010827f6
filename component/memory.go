package component

import (
	"fmt"

	"github.com/kadirpekel/crewcore/config"
	"github.com/kadirpekel/crewcore/memory"
)

// buildMemory constructs the configured memory.Store set and wraps them in
// a memory.Aggregator, per spec.md §4.7 and config.MemoryConfig's per-kind
// enable flags. A config with every kind disabled yields a nil aggregator
// (no C7 context retrieval or write-back — crew.New's WithContextProvider/
// WithMemoryWriter options are simply omitted in that case).
func buildMemory(cfg config.MemoryConfig) (*memory.Aggregator, error) {
	var stores []memory.Store

	if cfg.LongTermEnabled {
		store, err := memory.NewSQLiteLongTermStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("long-term store: %w", err)
		}
		stores = append(stores, store)
	}
	if cfg.ShortTermEnabled {
		stores = append(stores, memory.NewInMemoryStore(memory.KindShortTerm, 50))
	}
	if cfg.EntityEnabled {
		stores = append(stores, memory.NewInMemoryStore(memory.KindEntity, 0))
	}
	if cfg.ExternalEnabled {
		stores = append(stores, memory.NewInMemoryStore(memory.KindExternal, 0))
	}

	if len(stores) == 0 {
		return nil, nil
	}
	return memory.NewAggregator(stores...).WithTopN(cfg.TopK).WithThreshold(cfg.ScoreThreshold), nil
}
