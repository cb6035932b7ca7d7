package catalog

import (
	"time"

	"media-catalog/internal/mediatypes"
)

// MediaItem is a logical grouped unit: one primary file plus optional edited
// and live-companion references. OriginalURL is the natural key; re-inserting
// an item with the same OriginalURL replaces the stored row.
type MediaItem struct {
	ID           int64                `json:"id"`
	OriginalURL  string               `json:"originalUrl"`
	EditedURL    string               `json:"editedUrl,omitempty"`
	LiveVideoURL string               `json:"liveVideoUrl,omitempty"`
	Type         mediatypes.ItemType  `json:"type"`
	Metadata     *Metadata            `json:"metadata,omitempty"`
	SyncStatus   mediatypes.SyncStatus `json:"syncStatus"`
	DirectoryID  int64                `json:"directoryId,omitempty"`
}

// Metadata holds descriptive fields extracted from a media file. Every field
// is independently optional; parse failures at extraction time simply leave
// the corresponding field unset. Extra is an open extension bag for fields
// that do not warrant a schema change (duration, camera make/model/lens, ISO,
// aperture, shutter speed).
type Metadata struct {
	CreatedAt  time.Time      `json:"createdAt,omitempty"`
	ModifiedAt time.Time      `json:"modifiedAt,omitempty"`
	ExifDate   *time.Time     `json:"exifDate,omitempty"`
	Width      *int           `json:"width,omitempty"`
	Height     *int           `json:"height,omitempty"`
	Latitude   *float64       `json:"latitude,omitempty"`
	Longitude  *float64       `json:"longitude,omitempty"`
	Altitude   *float64       `json:"altitude,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// BestDate returns the most trustworthy capture date available: the EXIF
// original-capture timestamp when present, then the filesystem creation
// time, then the modification time.
func (m *Metadata) BestDate() time.Time {
	if m == nil {
		return time.Time{}
	}
	if m.ExifDate != nil && !m.ExifDate.IsZero() {
		return *m.ExifDate
	}
	if !m.CreatedAt.IsZero() {
		return m.CreatedAt
	}
	return m.ModifiedAt
}

// Directory is a watched filesystem root the user granted access to.
// Bookmark is an opaque access-grant token produced by the OS access layer;
// the catalog stores and returns it verbatim.
type Directory struct {
	ID       int64  `json:"id"`
	Path     string `json:"path"`
	Bookmark []byte `json:"-"`
}
