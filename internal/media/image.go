package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/metrics"

	// Image format decoders
	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxImageDimension is the maximum width or height decoded at full size.
	MaxImageDimension = 8192

	// MaxImagePixels caps decoded pixels (~40MP, about 160MB as RGBA).
	MaxImagePixels = 40_000_000
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{Width: config.Width, Height: config.Height}, nil
}

// decodeWithImaging opens path with EXIF auto-orientation. Sources beyond
// the pixel limits are refused so that a hostile upload cannot exhaust
// memory; the caller falls back to vips, which shrinks while decoding.
func decodeWithImaging(path string) (image.Image, error) {
	if dims, err := GetImageDimensions(path); err == nil {
		if dims.Width > MaxImageDimension || dims.Height > MaxImageDimension ||
			dims.Width*dims.Height > MaxImagePixels {
			return nil, fmt.Errorf("image %dx%d exceeds decode limits", dims.Width, dims.Height)
		}
	}

	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	return imaging.Decode(file, imaging.AutoOrientation(true))
}

// decodeWithFFmpeg asks ffmpeg for the first frame of path as PNG.
func decodeWithFFmpeg(ctx context.Context, runner Runner, path string) (image.Image, error) {
	out, err := runner.Run(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}

// DecodeImage decodes a still image, trying imaging first, then libvips for
// containers the Go decoders cannot read (HEIC, HEIF, AVIF), then ffmpeg.
// box is a hint for vips decode-time shrinking; <= 0 keeps full size.
func DecodeImage(ctx context.Context, runner Runner, path string, box int) (image.Image, error) {
	format, _ := sniffFormat(path)

	var errs []error
	if format != "heif" && format != "avif" {
		img, err := decodeWithImaging(path)
		if err == nil {
			metrics.ThumbnailDecoderUsed.WithLabelValues("imaging").Inc()
			return img, nil
		}
		logging.Debug("imaging decode failed for %s: %v", path, err)
		errs = append(errs, err)
	}

	if IsVipsAvailable() {
		if box <= 0 {
			box = MaxImageDimension
		}
		img, err := LoadImageWithVips(path, box, box)
		if err == nil {
			metrics.ThumbnailDecoderUsed.WithLabelValues("vips").Inc()
			return img, nil
		}
		logging.Debug("vips decode failed for %s: %v", path, err)
		errs = append(errs, err)
	}

	if runner != nil {
		img, err := decodeWithFFmpeg(ctx, runner, path)
		if err == nil {
			metrics.ThumbnailDecoderUsed.WithLabelValues("ffmpeg").Inc()
			return img, nil
		}
		logging.Debug("ffmpeg decode failed for %s: %v", path, err)
		errs = append(errs, err)
	}

	return nil, fmt.Errorf("all image decode methods failed for %s (format %s): %v", path, format, errs)
}

// Flatten composites img onto an opaque white background. JPEG has no
// alpha channel, and palette or transparent sources would otherwise encode
// with black where they were clear.
func Flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// FitBox scales img to fit a size x size box. Sizes <= 0 and images that
// already fit are returned unchanged.
func FitBox(img image.Image, size int) image.Image {
	if size <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= size && b.Dy() <= size {
		return img
	}
	return imaging.Fit(img, size, size, imaging.Lanczos)
}

// EncodeJPEG writes img as JPEG. quality is clamped to 1..100.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

// sniffFormat inspects the magic bytes of a file.
func sniffFormat(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "unknown", err
	}
	defer func() {
		_ = file.Close()
	}()

	header := make([]byte, 32)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "unknown", err
	}
	return sniffHeader(header[:n]), nil
}

func sniffHeader(header []byte) string {
	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return "jpeg"

	case len(header) >= 8 && bytes.Equal(header[:4], []byte{0x89, 'P', 'N', 'G'}):
		return "png"

	case len(header) >= 4 && string(header[:4]) == "GIF8":
		return "gif"

	case len(header) >= 12 && string(header[:4]) == "RIFF" && string(header[8:12]) == "WEBP":
		return "webp"

	case len(header) >= 2 && header[0] == 'B' && header[1] == 'M':
		return "bmp"

	case len(header) >= 4 && (bytes.Equal(header[:4], []byte{'I', 'I', 0x2A, 0x00}) ||
		bytes.Equal(header[:4], []byte{'M', 'M', 0x00, 0x2A})):
		return "tiff"

	case len(header) >= 12 && string(header[4:8]) == "ftyp":
		switch string(header[8:12]) {
		case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
			return "heif"
		case "avif", "avis":
			return "avif"
		}
		return "mp4-container"
	}

	return "unknown"
}
