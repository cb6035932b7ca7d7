// Package thumbs implements the asynchronous, disk-backed thumbnail cache.
//
// Requests are keyed by (source path, size class) where the size class is a
// coarse bucket, not exact pixel dimensions. Concurrent requests for the
// same key coalesce onto a single generation task; at most one generation
// per key is ever in flight. Successful results are persisted under a stable
// hash of the key alongside a provenance sidecar, so warm results survive
// restarts and cleanup can prove which entries are orphaned. Failures are
// returned to every coalesced waiter and never cached.
//
// Images decode through libvips when available (decode-time shrinking),
// falling back to pure-Go decoding with ffmpeg as the last resort for exotic
// formats. Video thumbnails come from a single frame extracted near the
// start of the stream.
package thumbs
