// Package scan keeps the catalog consistent with the filesystem. It walks
// watched directory roots, groups files into logical items, upserts them,
// and prunes catalog rows and thumbnail cache entries for files that no
// longer exist. Rescans are triggered at startup and by the directory
// watcher after changes settle.
package scan
