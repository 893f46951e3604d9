// Package perfc implements the performance counter engine: per-CPU-striped
// counters (Basic, Rate, Latency, Distribution, SimpleLatency), registered
// into a DataTree and introspectable at runtime as a JSON tree, per
// spec.md §4.B.
package perfc

import (
	"sort"
	"strings"
	"sync"

	"github.com/hse-go/kvengine/internal/merr"
)

// MaxPathLen bounds a registration path's length; a longer path fails the
// way the original's dt_add fails on ENAMETOOLONG.
const MaxPathLen = 256

// DataTreeRoot is the root path every perfc Set registers under.
const DataTreeRoot = "/data/perfc"

// DataTree is the hierarchical registry of counter Sets, keyed by slash
// path (e.g. "/data/perfc/cn/compaction/c0").
type DataTree struct {
	mu   sync.RWMutex
	sets map[string]*Set
}

// NewDataTree creates an empty registry.
func NewDataTree() *DataTree {
	return &DataTree{sets: make(map[string]*Set)}
}

// Register adds set at path. Fails with bad-argument if path exceeds
// MaxPathLen (ENAMETOOLONG), and with exists if path is already
// registered (EEXIST).
func (t *DataTree) Register(path string, set *Set) error {
	if len(path) > MaxPathLen {
		return merr.New(merr.KindBadArgument, "perfc.Register", "path exceeds MaxPathLen")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.sets[path]; dup {
		return merr.New(merr.KindExists, "perfc.Register", "path already registered: "+path)
	}
	t.sets[path] = set
	return nil
}

// Remove frees the Set registered at path. Not-found if nothing was there.
func (t *DataTree) Remove(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sets[path]; !ok {
		return merr.New(merr.KindNotFound, "perfc.Remove", "no set registered at "+path)
	}
	delete(t.sets, path)
	return nil
}

// Emit walks every registered Set whose path has the given prefix and
// returns a flat path->fields JSON tree. Passing "" emits every set.
func (t *DataTree) Emit(prefix string) map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	paths := make([]string, 0, len(t.sets))
	for p := range t.sets {
		if prefix == "" || strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	out := make(map[string]any, len(paths))
	for _, p := range paths {
		out[p] = t.sets[p].Emit()
	}
	return out
}

// EmitAll is Emit("") — every registered set.
func (t *DataTree) EmitAll() map[string]any {
	return t.Emit("")
}
