// Package grouper reconstructs logical media items from loose files.
//
// Files residing in the same directory that share a grouping key (the
// filename with any edited-suffix marker and the extension stripped) form one
// item: the plain image is the original, an "-edited"/"_edited" image is the
// edited variant, and a video sharing the key is the live-photo companion.
// A video with no image sibling is a standalone video item.
//
// When several files qualify for the same slot, the most recently modified
// one wins and the losers become standalone items, so nothing is silently
// dropped. The assignment is deterministic regardless of input order.
package grouper
