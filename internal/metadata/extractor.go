package metadata

import (
	"bytes"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	_ "golang.org/x/image/webp" // WebP format support
)

// exifTimeLayout is the fixed EXIF timestamp format. EXIF timestamps carry no
// zone; they are interpreted as UTC.
const exifTimeLayout = "2006:01:02 15:04:05"

// Extractor pulls descriptive metadata from a single media file. Extraction
// is best-effort: unreadable or unparseable fields stay nil and never fail
// the call.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract produces a metadata record for the file at path. It never returns
// nil; at minimum the filesystem timestamps are populated when the file can
// be stat'd.
func (e *Extractor) Extract(path string) *catalog.Metadata {
	meta := &catalog.Metadata{}

	if info, err := os.Stat(path); err == nil {
		meta.ModifiedAt = info.ModTime()
		// Creation time is not portably available; modification time is the
		// best stand-in.
		meta.CreatedAt = info.ModTime()
	} else {
		logging.Debug("metadata: cannot stat %s: %v", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch mediatypes.GetFileType(ext) {
	case mediatypes.FileTypeImage:
		e.extractImage(path, meta)
	case mediatypes.FileTypeVideo:
		e.extractVideo(path, meta)
	}

	return meta
}

func (e *Extractor) extractImage(path string, meta *catalog.Metadata) {
	if dims, err := imageDimensions(path); err == nil {
		meta.Width = &dims.width
		meta.Height = &dims.height
	} else {
		logging.Debug("metadata: no dimensions for %s: %v", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		logging.Debug("metadata: cannot open %s: %v", path, err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("metadata: failed to close %s: %v", path, err)
		}
	}()

	x, err := exif.Decode(f)
	if err != nil {
		// Plenty of files simply carry no EXIF block.
		logging.Debug("metadata: no EXIF in %s: %v", path, err)
		return
	}

	meta.ExifDate = exifDate(x)
	meta.Latitude = gpsCoord(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	meta.Longitude = gpsCoord(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	meta.Altitude = gpsAltitude(x)

	extra := map[string]any{}
	if v := tagString(x, exif.Make); v != "" {
		extra["cameraMake"] = v
	}
	if v := tagString(x, exif.Model); v != "" {
		extra["cameraModel"] = v
	}
	if v := tagString(x, exif.LensModel); v != "" {
		extra["lensModel"] = v
	}
	if v, ok := tagInt(x, exif.ISOSpeedRatings); ok {
		extra["iso"] = v
	}
	if v, ok := tagRatFloat(x, exif.FNumber); ok {
		extra["aperture"] = v
	}
	if v := tagRatString(x, exif.ExposureTime); v != "" {
		extra["shutterSpeed"] = v
	}
	if len(extra) > 0 {
		meta.Extra = extra
	}
}

// extractVideo probes container metadata with ffprobe. Frames are never
// decoded here.
func (e *Extractor) extractVideo(path string, meta *catalog.Metadata) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		logging.Debug("metadata: ffprobe not found, skipping video probe for %s", path)
		return
	}

	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logging.Debug("metadata: ffprobe failed for %s: %v - %s", path, err, stderr.String())
		return
	}

	output := stdout.String()
	extra := map[string]any{}

	if dur, ok := jsonNumberField(output, `"duration"`); ok {
		extra["durationSeconds"] = dur
	}
	if w, ok := jsonNumberField(output, `"width"`); ok {
		width := int(w)
		meta.Width = &width
	}
	if h, ok := jsonNumberField(output, `"height"`); ok {
		height := int(h)
		meta.Height = &height
	}
	if ts := jsonStringField(output, `"creation_time"`); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			utc := parsed.UTC()
			meta.ExifDate = &utc
		}
	}

	if len(extra) > 0 {
		meta.Extra = extra
	}
}

// exifDate parses DateTimeOriginal. Parse failure means a nil date, not an
// extraction failure.
func exifDate(x *exif.Exif) *time.Time {
	raw := tagString(x, exif.DateTimeOriginal)
	if raw == "" {
		return nil
	}
	parsed, err := time.ParseInLocation(exifTimeLayout, raw, time.UTC)
	if err != nil {
		logging.Debug("metadata: bad EXIF timestamp %q: %v", raw, err)
		return nil
	}
	return &parsed
}

// gpsCoord converts a degree/minute/second rational triple into decimal
// degrees, with the hemisphere reference (S/W) negating the magnitude.
func gpsCoord(x *exif.Exif, field, refField exif.FieldName) *float64 {
	tag, err := x.Get(field)
	if err != nil {
		return nil
	}
	refTag, err := x.Get(refField)
	if err != nil {
		return nil
	}
	ref, err := refTag.StringVal()
	if err != nil {
		return nil
	}

	deg, ok1 := ratAt(tag, 0)
	min, ok2 := ratAt(tag, 1)
	sec, ok3 := ratAt(tag, 2)
	if !ok1 || !ok2 || !ok3 {
		return nil
	}

	val := deg + min/60 + sec/3600
	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "S", "W":
		val = -val
	}
	return &val
}

func gpsAltitude(x *exif.Exif) *float64 {
	tag, err := x.Get(exif.GPSAltitude)
	if err != nil {
		return nil
	}
	alt, ok := ratAt(tag, 0)
	if !ok {
		return nil
	}
	// GPSAltitudeRef 1 means below sea level.
	if refTag, err := x.Get(exif.GPSAltitudeRef); err == nil {
		if ref, err := refTag.Int(0); err == nil && ref == 1 {
			alt = -alt
		}
	}
	return &alt
}

type dimensions struct {
	width  int
	height int
}

// imageDimensions reads pixel dimensions from the image header without
// decoding pixel data.
func imageDimensions(path string) (*dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("metadata: failed to close %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, err
	}
	return &dimensions{width: config.Width, height: config.Height}, nil
}

func tagString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	val, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(val)
}

func tagInt(x *exif.Exif, field exif.FieldName) (int, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, false
	}
	val, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return val, true
}

func tagRatFloat(x *exif.Exif, field exif.FieldName) (float64, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, false
	}
	return ratAt(tag, 0)
}

// tagRatString renders a rational tag as "num/den" (shutter speeds read
// better that way than as decimals).
func tagRatString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return ""
	}
	return strconv.FormatInt(num, 10) + "/" + strconv.FormatInt(den, 10)
}

func ratAt(tag *tiff.Tag, i int) (float64, bool) {
	num, den, err := tag.Rat2(i)
	if err != nil || den == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}

// jsonNumberField scans ffprobe's JSON output for a numeric or quoted-numeric
// field without building a full decoder for the probe schema.
func jsonNumberField(output, key string) (float64, bool) {
	idx := strings.Index(output, key)
	if idx == -1 {
		return 0, false
	}
	start := strings.Index(output[idx:], ":")
	if start == -1 {
		return 0, false
	}
	start += idx + 1
	end := strings.IndexAny(output[start:], ",}")
	if end == -1 {
		return 0, false
	}
	raw := strings.Trim(strings.TrimSpace(output[start:start+end]), `"`)
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

func jsonStringField(output, key string) string {
	idx := strings.Index(output, key)
	if idx == -1 {
		return ""
	}
	start := strings.Index(output[idx:], ":")
	if start == -1 {
		return ""
	}
	start += idx + 1
	end := strings.IndexAny(output[start:], ",}")
	if end == -1 {
		return ""
	}
	return strings.Trim(strings.TrimSpace(output[start:start+end]), `"`)
}
