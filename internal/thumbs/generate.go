package thumbs

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"

	"media-catalog/internal/logging"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// maxSourceDimension is the largest edge we will fully decode; anything
	// bigger is shrunk during load to keep memory bounded.
	maxSourceDimension = 4096

	// maxSourcePixels caps total decoded pixels (~80MB in RGBA at 20MP).
	maxSourcePixels = 20_000_000
)

// generateImage decodes source and fits it within the size class bounding
// box, honoring EXIF orientation.
func (c *Cache) generateImage(source string, size SizeClass) (image.Image, error) {
	bound := size.Bound()

	// Fast path: libvips shrinks during decode when available.
	if IsVipsAvailable() {
		if img, err := loadWithVips(source, bound, bound); err == nil {
			return img, nil
		} else {
			logging.Debug("vips decode failed for %s: %v, falling back", source, err)
		}
	}

	img, err := loadConstrained(source)
	if err == nil {
		return imaging.Fit(img, bound, bound, imaging.Lanczos), nil
	}

	logging.Debug("imaging decode failed for %s: %v, trying ffmpeg fallback", source, err)

	// ffmpeg decodes formats the Go decoders don't (HEIC and friends).
	img, err = decodeWithFFmpeg(context.Background(), source, nil)
	if err != nil {
		return nil, fmt.Errorf("all image decode methods failed for %s: %w", source, err)
	}
	return imaging.Fit(img, bound, bound, imaging.Lanczos), nil
}

// loadConstrained loads an image with auto-orientation, downscaling very
// large sources at load time to avoid OOM.
func loadConstrained(source string) (image.Image, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	config, _, cfgErr := image.DecodeConfig(f)
	if err := f.Close(); err != nil {
		logging.Warn("failed to close image %s: %v", source, err)
	}

	if cfgErr != nil {
		// Can't size it up front; decode and hope for the best.
		return imaging.Open(source, imaging.AutoOrientation(true))
	}

	width, height := config.Width, config.Height
	if width <= maxSourceDimension && height <= maxSourceDimension && width*height <= maxSourcePixels {
		return imaging.Open(source, imaging.AutoOrientation(true))
	}

	targetWidth, targetHeight := width, height
	if width > maxSourceDimension || height > maxSourceDimension {
		if width > height {
			targetWidth = maxSourceDimension
			targetHeight = height * maxSourceDimension / width
		} else {
			targetHeight = maxSourceDimension
			targetWidth = width * maxSourceDimension / height
		}
	}
	if targetWidth*targetHeight > maxSourcePixels {
		scale := float64(maxSourcePixels) / float64(targetWidth*targetHeight)
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	logging.Info("constraining large image %s from %dx%d to %dx%d", source, width, height, targetWidth, targetHeight)

	img, err := imaging.Open(source, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos), nil
}

// generateVideoFrame extracts a representative frame near the start of the
// video and fits it to the size class.
func (c *Cache) generateVideoFrame(ctx context.Context, source string, size SizeClass) (image.Image, error) {
	img, err := decodeWithFFmpeg(ctx, source, []string{"-ss", "00:00:01"})
	if err != nil {
		// Clips shorter than the seek offset produce nothing; retry from
		// the first frame.
		logging.Debug("ffmpeg seek attempt failed for %s: %v, retrying from start", source, err)
		img, err = decodeWithFFmpeg(ctx, source, nil)
		if err != nil {
			return nil, err
		}
	}

	bound := size.Bound()
	return imaging.Fit(img, bound, bound, imaging.Lanczos), nil
}

// decodeWithFFmpeg pipes one frame out of ffmpeg as PNG and decodes it.
func decodeWithFFmpeg(ctx context.Context, source string, preInputArgs []string) (image.Image, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	args := append([]string{}, preInputArgs...)
	args = append(args,
		"-i", source,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", source)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}
