// Package config loads YAML overrides for a param.Set using koanf, and
// optionally watches the source file with fsnotify so writable parameters
// can be re-applied live without restarting the owning KVDB. This is the
// bootstrapping path that feeds internal/param's Set/Deserialize from an
// operator-editable file instead of a REST PUT.
package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hse-go/kvengine/internal/merr"
	"github.com/hse-go/kvengine/internal/param"
)

// Loader reads a flat-keyed YAML file and applies its keys as overrides
// onto a param.Set, one key per param spec name.
type Loader struct {
	k    *koanf.Koanf
	path string
}

// NewLoader builds a Loader for the YAML file at path.
func NewLoader(path string) *Loader {
	return &Loader{k: koanf.New("."), path: path}
}

// Load reads the YAML file into the loader's internal key-value store.
// An empty path is a no-op success (no config file configured).
func (l *Loader) Load() error {
	const op = "config.Load"
	if l.path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(l.path), yaml.Parser()); err != nil {
		return merr.Wrap(merr.KindIO, op, err)
	}
	return nil
}

// ApplyOverrides sets every loaded key onto set whose name matches a param
// spec, via set.Set (string form). Keys with no matching spec are
// skipped — the YAML file is allowed to carry keys for other concerns
// (this loader instance only sees one record's overrides). A real
// validation or read-only-field error from Set propagates.
func (l *Loader) ApplyOverrides(set *param.Set) error {
	const op = "config.ApplyOverrides"
	for _, key := range l.k.Keys() {
		val := l.k.Get(key)
		str := fmt.Sprintf("%v", val)
		if err := set.Set(key, str); err != nil {
			if merr.KindOf(err) == merr.KindNotFound {
				continue
			}
			return merr.Wrap(merr.KindOf(err), op, err)
		}
	}
	return nil
}
