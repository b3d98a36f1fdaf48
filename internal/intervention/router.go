// Package intervention routes a perceived (emotion, intent, risk)
// triple to one practice module from the configured toolbox.
//
// The routing table and catalog are plain data. The only logic here is
// the lookup chain, the somatic bias, and a random tie-break between
// equally ranked candidates. The random source is injected so tests can
// pin the choice.
package intervention

import (
	"math/rand"
	"time"

	"github.com/cocoro-ai/cocoro/internal/config"
)

// Router picks an intervention module per turn.
type Router struct {
	catalog          map[string]config.Intervention
	table            map[string]map[string][]string
	somaticThreshold int
	somatic          map[string]bool
	rng              *rand.Rand
}

// NewRouter creates a router over the configured catalog and table.
// A nil rng gets a time-seeded source.
func NewRouter(cfg *config.Config, rng *rand.Rand) *Router {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	somatic := make(map[string]bool, len(cfg.Risk.SomaticModules))
	for _, key := range cfg.Risk.SomaticModules {
		somatic[key] = true
	}

	return &Router{
		catalog:          cfg.Interventions,
		table:            cfg.Router,
		somaticThreshold: cfg.Risk.SomaticThreshold,
		somatic:          somatic,
		rng:              rng,
	}
}

// Choose returns the key of the module for this turn.
//
// Lookup degrades like the table itself: unknown emotion falls back to
// neutral, unknown intent to neutral/venting. When the intensity score
// reaches the somatic threshold and the pool contains somatic modules,
// the choice is restricted to those (downshift the body first).
func (r *Router) Choose(emotion, intent string, risk int) string {
	pool := r.pool(emotion, intent)
	if len(pool) == 0 {
		return ""
	}

	if risk >= r.somaticThreshold {
		var priority []string
		for _, key := range pool {
			if r.somatic[key] {
				priority = append(priority, key)
			}
		}
		if len(priority) > 0 {
			return priority[r.rng.Intn(len(priority))]
		}
	}

	return pool[r.rng.Intn(len(pool))]
}

// Module returns the catalog entry for a key.
func (r *Router) Module(key string) (config.Intervention, bool) {
	m, ok := r.catalog[key]
	return m, ok
}

// pool resolves the candidate list through the fallback chain.
func (r *Router) pool(emotion, intent string) []string {
	intents, ok := r.table[emotion]
	if !ok {
		intents = r.table["neutral"]
	}
	if intents == nil {
		return nil
	}

	pool, ok := intents[intent]
	if !ok || len(pool) == 0 {
		if neutral, ok := r.table["neutral"]; ok {
			pool = neutral["venting"]
		}
	}
	return pool
}
