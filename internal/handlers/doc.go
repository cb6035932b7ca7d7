/*
Package handlers implements the HTTP API: catalog listing and sync status
updates, watched directory management, on-demand thumbnails, import preview
and execution, plus health and version endpoints. It is a thin transport
layer; all behavior lives in the catalog, thumbs, scan, and importer
packages.
*/
package handlers
