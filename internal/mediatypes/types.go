package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType classifies a single file on disk.
type FileType string

const (
	// FileTypeImage represents a supported still-image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a supported video file.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// ItemType classifies a logical media item built from one or more files.
type ItemType string

const (
	// ItemTypePhoto is a still image, optionally with an edited variant.
	ItemTypePhoto ItemType = "photo"
	// ItemTypeLivePhoto is a still image paired with a short companion video.
	ItemTypeLivePhoto ItemType = "livePhoto"
	// ItemTypeVideo is a standalone video.
	ItemTypeVideo ItemType = "video"
)

// SyncStatus tracks the state of an external transfer for a media item.
// The transfer itself is performed outside this catalog.
type SyncStatus string

const (
	// SyncNotApplicable marks items that are never synced.
	SyncNotApplicable SyncStatus = "notApplicable"
	// SyncNotSynced marks items not yet transferred.
	SyncNotSynced SyncStatus = "notSynced"
	// SyncSyncing marks items with an in-flight transfer.
	SyncSyncing SyncStatus = "syncing"
	// SyncSynced marks items transferred successfully.
	SyncSynced SyncStatus = "synced"
	// SyncFailed marks items whose transfer failed.
	SyncFailed SyncStatus = "failed"
)

// ValidItemType reports whether s is a recognized ItemType value.
// Catalog reads use this to skip rows written by unknown future versions.
func ValidItemType(s string) bool {
	switch ItemType(s) {
	case ItemTypePhoto, ItemTypeLivePhoto, ItemTypeVideo:
		return true
	}
	return false
}

// ValidSyncStatus reports whether s is a recognized SyncStatus value.
func ValidSyncStatus(s string) bool {
	switch SyncStatus(s) {
	case SyncNotApplicable, SyncNotSynced, SyncSyncing, SyncSynced, SyncFailed:
		return true
	}
	return false
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
}

// editedSuffixes are the filename markers that identify an edited variant of
// an original capture, checked case-insensitively against the stem.
var editedSuffixes = []string{"-edited", "_edited"}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile returns true if the extension represents a supported media file.
func IsMediaFile(ext string) bool {
	return GetFileType(ext) != FileTypeOther
}

// GroupKey derives the grouping key for a filename: the base name with any
// edited-suffix marker and the extension stripped, lowercased. Files in the
// same directory sharing a key belong to the same logical item.
func GroupKey(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	lower := strings.ToLower(stem)
	for _, suffix := range editedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return lower[:len(lower)-len(suffix)]
		}
	}
	return lower
}

// IsEditedVariant reports whether the filename carries an edited-suffix marker.
func IsEditedVariant(name string) bool {
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, suffix := range editedSuffixes {
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}
	return false
}
