/*
Package kvengine provides the data-plane core of a persistent,
log-structured key-value storage engine for a tiered media-class block
device substrate.

This module covers the engine's hardest internals: C0 ingest (the
in-memory write layer's drain path, package internal/c0ingest), the
mblock block manager and its region-tree free-space allocator (packages
internal/mblock and internal/region), the per-CPU performance counter
framework (internal/perfc), and the schema-driven parameter system that
configures all of the above (internal/param, kvdbparams). The top-level
KVDB descriptor lives in kvdbmeta.

Deliberately out of scope: the compaction scheduler's tree-shape
policies, write-ahead log replay, the CN persistent-layer read path, and
any REST or CLI transport. These are external collaborators; their
interfaces to this core are the exported types of the packages above.

# Concurrency

Region maps, mblock files, and param sets are safe for concurrent use by
multiple goroutines; each documents its own lock ordering where more than
one mutex is involved. Performance counter sets favor per-CPU striping
over a single shared mutex.

# On-disk format

mblock data files and metadata regions are little-endian; kvdb.meta is a
JSON file. None of them is compatible with any other engine's on-disk
formats.
*/
package kvengine
