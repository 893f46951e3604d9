// Package kvdbmeta persists and loads the top-level KVDB descriptor: the
// CNDB and WAL object id pairs, and each media class's storage path. It is
// a single JSON file, kvdb.meta, in the KVDB home directory — the anchor
// of all other persistent state.
package kvdbmeta

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/hse-go/kvengine/internal/merr"
	"github.com/hse-go/kvengine/internal/vfs"
	"github.com/hse-go/kvengine/kvdbparams"
)

// Version is the closed set of on-media kvdb.meta format versions a
// reader will accept.
type Version int

const (
	Version1 Version = 1
	Version2 Version = 2
)

func validVersion(v Version) bool {
	return v == Version1 || v == Version2
}

// FileName is the fixed name of the meta file within a KVDB home.
const FileName = "kvdb.meta"

// OidPair is a pair of persisted catalog object ids, used for both the
// CNDB and WAL slots (each keeps two ids to support atomic log rollover).
type OidPair struct {
	Oid1 uint64 `json:"oid1"`
	Oid2 uint64 `json:"oid2"`
}

// Meta is the top-level KVDB descriptor.
type Meta struct {
	Version Version                              `json:"version"`
	CNDB    OidPair                              `json:"cndb"`
	WAL     OidPair                              `json:"wal"`
	Storage [kvdbparams.MClassCount]StorageEntry `json:"storage"`
}

// StorageEntry records the on-disk path backing one media class. Path may
// be absolute or relative to the KVDB home.
type StorageEntry struct {
	Path string `json:"path"`
}

func metaPath(home string) string {
	return filepath.Join(home, FileName)
}

// lockFileName is the fixed name of the home-directory lock file, kept
// separate from kvdb.meta so a lock attempt never races a meta rewrite.
const lockFileName = "kvdb.lock"

// LockHome acquires the exclusive home-directory lock that keeps two
// processes from opening the same KVDB concurrently. The returned
// io.Closer must be held for as long as the KVDB is open and released on
// close. KindExists is returned if another process already holds it.
func LockHome(home string) (io.Closer, error) {
	return vfs.LockFile(filepath.Join(home, lockFileName))
}

// Create makes an empty meta file (default Version2, zeroed fields) in
// home. It fails KindExists if one is already present.
func Create(home string) error {
	const op = "kvdbmeta.Create"
	path := metaPath(home)
	if _, err := os.Stat(path); err == nil {
		return merr.New(merr.KindExists, op, "meta file already exists")
	} else if !errors.Is(err, os.ErrNotExist) {
		return merr.Wrap(merr.KindIO, op, err)
	}

	m := &Meta{Version: Version2}
	return Serialize(m, home)
}

// Destroy removes the meta file from home. Missing file is not an error
// (idempotent "already in desired state").
func Destroy(home string) error {
	if err := os.Remove(metaPath(home)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return merr.Wrap(merr.KindIO, "kvdbmeta.Destroy", err)
	}
	return nil
}

// Serialize whole-file JSON-encodes m to home's meta file.
func Serialize(m *Meta, home string) error {
	const op = "kvdbmeta.Serialize"
	if !validVersion(m.Version) {
		return merr.New(merr.KindBadMetadata, op, "unknown meta version")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return merr.Wrap(merr.KindInternal, op, err)
	}
	if err := os.WriteFile(metaPath(home), data, 0o644); err != nil {
		return merr.Wrap(merr.KindIO, op, err)
	}
	return nil
}

// Deserialize whole-file JSON-decodes home's meta file into m.
func Deserialize(m *Meta, home string) error {
	const op = "kvdbmeta.Deserialize"
	data, err := os.ReadFile(metaPath(home))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return merr.New(merr.KindNotFound, op, "no meta file in home")
		}
		return merr.Wrap(merr.KindIO, op, err)
	}
	var decoded Meta
	if err := json.Unmarshal(data, &decoded); err != nil {
		return merr.Wrap(merr.KindBadMetadata, op, err)
	}
	if !validVersion(decoded.Version) {
		return merr.New(merr.KindBadMetadata, op, "unknown meta version")
	}
	*m = decoded
	return nil
}

// RParams is the subset of runtime parameters kvdb.meta both stores and
// restores: nothing beyond the storage paths currently round-trips, since
// every other r-param lives in the param records themselves, not in
// kvdb.meta.
type RParams struct {
	Storage [kvdbparams.MClassCount]StorageEntry
}

// DParams is the subset of destroy-time parameters kvdb.meta supplies: the
// storage paths that must be unlinked alongside the mblock files they
// name.
type DParams struct {
	Storage [kvdbparams.MClassCount]StorageEntry
}

// CParams is the subset of creation parameters from_cparams consumes: the
// per-mclass path a newly created KVDB should persist.
type CParams struct {
	Storage [kvdbparams.MClassCount]StorageEntry
}

// Sync applies rparams's storage paths onto m and persists the result.
func Sync(m *Meta, home string, rparams RParams) error {
	m.Storage = rparams.Storage
	return Serialize(m, home)
}

// FromCParams fills m's per-mclass paths from creation parameters. It does
// not persist; callers call Serialize (or Sync) afterward.
func FromCParams(m *Meta, cparams CParams) {
	m.Storage = cparams.Storage
}

// ToRParams projects m's persisted fields into a runtime parameter record.
func (m *Meta) ToRParams() RParams {
	return RParams{Storage: m.Storage}
}

// ToDParams projects m's persisted fields into a destroy parameter record.
func (m *Meta) ToDParams() DParams {
	return DParams{Storage: m.Storage}
}
