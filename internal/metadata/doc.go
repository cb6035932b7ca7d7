// Package metadata extracts descriptive metadata from individual media
// files: EXIF capture timestamps, GPS coordinates with hemisphere sign
// correction, pixel dimensions read from image headers, and container-level
// video properties probed via ffprobe.
//
// Extraction is strictly best-effort. A file with no EXIF block, a malformed
// timestamp, or a missing ffprobe binary yields a partial record with the
// affected fields unset; no failure escapes the Extract call.
package metadata
