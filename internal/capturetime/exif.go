package capturetime

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/dsoprea/go-exif/v3"
	heicexif "github.com/dsoprea/go-heic-exif-extractor"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure"
	pngstructure "github.com/dsoprea/go-png-image-structure"
	tiffstructure "github.com/dsoprea/go-tiff-image-structure"
	riimage "github.com/dsoprea/go-utility/image"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
)

// exifDateLayout is the EXIF date format. It carries no zone and is read
// as local time.
const exifDateLayout = "2006:01:02 15:04:05"

// dateTags in priority order. DateTimeDigitized is the EXIF name of what
// most tools call CreateDate.
var dateTags = []string{"DateTimeOriginal", "CreateDate", "DateTimeDigitized", "DateTime"}

type exifParser interface {
	Parse(rs io.ReadSeeker, size int) (ec riimage.MediaContext, err error)
}

func getExifParser(ext string) exifParser {
	switch ext {
	case ".jpg", ".jpeg":
		return jpegstructure.NewJpegMediaParser()
	case ".png":
		return pngstructure.NewPngMediaParser()
	case ".tiff", ".tif":
		return tiffstructure.NewTiffMediaParser()
	case ".heic", ".heif":
		return heicexif.NewHeicExifMediaParser()
	default:
		return nil
	}
}

// ExifExtractor reads the capture date from embedded EXIF. It tries the
// container-specific parser first and falls back to a brute-force search
// for the EXIF header.
type ExifExtractor struct{}

// Extract implements Extractor.
func (ExifExtractor) Extract(_ context.Context, path string) (t time.Time, ok bool) {
	// The dsoprea parsers panic on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			logging.Debug("EXIF parser panicked on %s: %v", path, r)
			t, ok = time.Time{}, false
		}
	}()

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return time.Time{}, false
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logging.Warn("error closing %s: %v", path, closeErr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return time.Time{}, false
	}

	var exifData []byte
	if parser := getExifParser(mediatypes.Ext(path)); parser != nil {
		if res, pErr := parser.Parse(f, int(info.Size())); pErr == nil {
			_, exifData, _ = res.Exif()
		} else {
			logging.Debug("Structured EXIF parse of %s failed, trying brute force: %v", path, pErr)
		}
	}

	if len(exifData) == 0 {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return time.Time{}, false
		}
		exifData, err = exif.SearchAndExtractExifWithReader(f)
		if err != nil && !errors.Is(err, exif.ErrNoExif) {
			logging.Debug("EXIF search in %s failed: %v", path, err)
		}
	}
	if len(exifData) == 0 {
		return time.Time{}, false
	}

	entries, _, err := exif.GetFlatExifData(exifData, nil)
	if err != nil {
		logging.Debug("Failed to parse EXIF entries of %s: %v", path, err)
		return time.Time{}, false
	}

	values := make(map[string]string, len(entries))
	for _, tag := range entries {
		if tag.TagName == "" {
			continue
		}
		if v := strings.TrimSpace(strings.ReplaceAll(tag.FormattedFirst, "\x00", "")); v != "" {
			// First occurrence wins; IFD0 comes before the EXIF sub-IFD.
			if _, seen := values[tag.TagName]; !seen {
				values[tag.TagName] = v
			}
		}
	}

	return pickExifDate(values)
}

// pickExifDate returns the first parseable date in tag priority order.
func pickExifDate(values map[string]string) (time.Time, bool) {
	for _, name := range dateTags {
		v, ok := values[name]
		if !ok {
			continue
		}
		t, err := time.ParseInLocation(exifDateLayout, v, time.Local)
		if err == nil && plausible(t) {
			return t, true
		}
	}
	return time.Time{}, false
}
