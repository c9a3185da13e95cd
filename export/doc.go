// Package export repackages a content tree into count-bounded tar archives.
//
// The tree is flattened into its leaf sequence and cut into contiguous chunks.
// Chunk arithmetic keeps one slot of every chunk in reserve: with a limit of M
// entries, at most M-1 leaves go into a chunk, the chunk count is
// ceil(N/(M-1)), and leaves are then spread ceil(N/chunks) per chunk so the
// last chunk is the smallest. For 25 leaves and M=10 that is three archives of
// 9, 9 and 7 entries.
//
// Every entry is stored uncompressed under its path relative to a common
// ancestor (the parent of the imported directory) in slash form, so that
// joining the ancestor and the entry name yields the source file again. The
// payload is the raw file content; no metadata-only entries are written.
//
// Archive files come from a scratch manager and are never deleted here: if a
// chunk fails the whole export fails, and any archive already written stays
// on disk for the manager to reclaim. Cancellation is checked between chunks
// and returns the archives finished so far, which remain valid.
//
// Alongside the archives the package can write a JSON manifest describing
// every chunk (entry names, sizes, BLAKE3 digests) and validate an archive
// against its sources.
package export
