package lsm

import (
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/nyasuto/mozlsm/internal/record"
)

// fingerprint hashes a record set, order-independent, so scenario tests can
// assert two record sets are identical with one comparison instead of a
// slice-by-slice loop. Test-only: never written to disk, and unrelated to
// the on-disk format, which has no checksum field (SPEC_FULL.md §6).
func fingerprint(recs []record.Record) uint64 {
	sorted := append([]record.Record(nil), recs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return xxh3.Hash(record.EncodeAll(sorted))
}
