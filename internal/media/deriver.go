package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"
	"time"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
	"media-cloud/internal/metrics"
	"media-cloud/internal/settings"
)

// Kind classifies a derivation outcome.
type Kind string

const (
	KindOK          Kind = "ok"
	KindUnsupported Kind = "unsupported"
	KindDecode      Kind = "decode"
	KindEncode      Kind = "encode"
	KindSampler     Kind = "sampler"
)

// Result is the outcome of a derivation. Failures never escape as panics
// or bare errors so that bulk callers can count and continue.
type Result struct {
	OK   bool
	Kind Kind
	Err  error
}

func failed(kind Kind, err error) Result {
	return Result{Kind: kind, Err: err}
}

// Deriver produces JPEG previews for originals.
type Deriver struct {
	runner Runner
	// frameOffset is the seek position for video stills.
	frameOffset time.Duration
}

// NewDeriver returns a Deriver that shells out through runner.
func NewDeriver(runner Runner) *Deriver {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Deriver{runner: runner, frameOffset: time.Second}
}

// Derive writes the preview of src to dst atomically, bounded by
// s.PreviewSize and encoded at s.PreviewQuality.
func (d *Deriver) Derive(ctx context.Context, src, dst string, s settings.Settings) (res Result) {
	start := time.Now()
	fileType := mediatypes.GetFileType(mediatypes.Ext(src))

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Thumbnail derivation panicked for %s: %v", src, r)
			res = failed(KindDecode, fmt.Errorf("panic while deriving %s: %v", src, r))
		}
		label := string(fileType)
		if fileType == mediatypes.FileTypeOther {
			label = "image"
		}
		metrics.ThumbnailDerivationsTotal.WithLabelValues(label, string(res.Kind)).Inc()
		metrics.ThumbnailDerivationDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		if !res.OK {
			logging.Warn("Could not derive thumbnail for %s (%s): %v", src, res.Kind, res.Err)
		}
	}()

	var img image.Image
	switch fileType {
	case mediatypes.FileTypeImage:
		decoded, err := DecodeImage(ctx, d.runner, src, s.PreviewSize)
		if err != nil {
			return failed(KindDecode, err)
		}
		img = FitBox(decoded, s.PreviewSize)
	case mediatypes.FileTypeVideo:
		frame, err := d.sampleFrame(ctx, src, s.PreviewSize)
		if err != nil {
			return failed(KindSampler, err)
		}
		img = frame
	default:
		return failed(KindUnsupported, fmt.Errorf("unsupported file type: %s", mediatypes.Ext(src)))
	}

	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, Flatten(img), s.PreviewQuality); err != nil {
		return failed(KindEncode, fmt.Errorf("failed to encode thumbnail: %w", err))
	}
	if err := filesystem.WriteFileAtomic(dst, buf.Bytes(), 0o644); err != nil {
		return failed(KindEncode, fmt.Errorf("failed to write thumbnail: %w", err))
	}

	logging.Debug("Thumbnail written: %s (%d bytes)", dst, buf.Len())
	return Result{OK: true, Kind: KindOK}
}

// sampleFrame grabs one frame at frameOffset, retrying from the start for
// clips shorter than the offset.
func (d *Deriver) sampleFrame(ctx context.Context, src string, size int) (image.Image, error) {
	img, err := d.grabFrame(ctx, src, size, d.frameOffset)
	if err == nil {
		return img, nil
	}
	logging.Debug("Frame at %v failed for %s: %v, retrying from start", d.frameOffset, src, err)

	img, retryErr := d.grabFrame(ctx, src, size, 0)
	if retryErr != nil {
		return nil, fmt.Errorf("frame sampling failed: %w", retryErr)
	}
	return img, nil
}

func (d *Deriver) grabFrame(ctx context.Context, src string, size int, offset time.Duration) (image.Image, error) {
	args := []string{"-v", "error"}
	if offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(offset.Seconds(), 'f', -1, 64))
	}
	args = append(args, "-i", src, "-vframes", "1")
	if size > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:-2", size))
	}
	args = append(args, "-f", "image2pipe", "-vcodec", "png", "-")

	out, err := d.runner.Run(ctx, "ffmpeg", args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame for %s", src)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg frame: %w", err)
	}
	return img, nil
}

// ResizeForDisplay decodes an image original and re-encodes it as JPEG
// bounded by maxSize (<= 0 keeps the original resolution).
func (d *Deriver) ResizeForDisplay(ctx context.Context, src string, maxSize, quality int) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("panic while resizing %s: %v", src, r)
		}
	}()

	img, err := DecodeImage(ctx, d.runner, src, maxSize)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, Flatten(FitBox(img, maxSize)), quality); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", src, err)
	}
	return buf.Bytes(), nil
}
