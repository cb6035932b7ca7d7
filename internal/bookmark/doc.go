// Package bookmark abstracts persistent directory access grants. Catalog
// directories store an opaque token alongside the path; reopening the
// catalog resolves tokens instead of trusting raw paths, which surfaces
// removed mounts at startup rather than at first read.
package bookmark
