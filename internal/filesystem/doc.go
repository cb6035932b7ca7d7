/*
Package filesystem provides filesystem utilities for catalogs that live on
network mounts.

The retry helpers wrap os.Stat, os.Open, and os.ReadDir with exponential
backoff on NFS stale file handle errors (ESTALE), which typically recover on
the next lookup. All other errors return immediately.

Watcher monitors directory roots with fsnotify and debounces bursts of
events into a single callback, so a large import triggers one rescan instead
of hundreds.
*/
package filesystem
