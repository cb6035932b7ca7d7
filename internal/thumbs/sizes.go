package thumbs

// SizeClass is a coarse thumbnail dimension bucket. It is part of the cache
// key, so near-identical pixel requests share one cache slot.
type SizeClass string

const (
	// SizeSmall fits within a 200px bounding box (grid cells).
	SizeSmall SizeClass = "small"
	// SizeMedium fits within a 512px bounding box.
	SizeMedium SizeClass = "medium"
	// SizeLarge fits within a 1024px bounding box (detail views).
	SizeLarge SizeClass = "large"
)

// Bound returns the bounding-box edge in pixels for the size class.
func (s SizeClass) Bound() int {
	switch s {
	case SizeMedium:
		return 512
	case SizeLarge:
		return 1024
	default:
		return 200
	}
}

// ParseSizeClass maps a request string onto a size class, defaulting to
// small for anything unrecognized.
func ParseSizeClass(s string) SizeClass {
	switch SizeClass(s) {
	case SizeMedium:
		return SizeMedium
	case SizeLarge:
		return SizeLarge
	default:
		return SizeSmall
	}
}
