package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType represents the kind of media a stored original holds.
type FileType string

const (
	// FileTypeImage represents a still image.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video clip.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents a file the library does not ingest.
	FileTypeOther FileType = "other"
)

// ThumbnailExt is the extension every derived thumbnail carries.
const ThumbnailExt = ".jpg"

// ImageExtensions is the supported set of image containers.
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

// VideoExtensions is the supported set of video containers.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// ExifExtensions are the containers searched for embedded EXIF capture dates.
var ExifExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".heic": true,
	".heif": true,
	".png":  true,
	".tiff": true,
	".tif":  true,
}

// ResizableExtensions are served through the on-demand resizer.
// Anything else is returned as the raw original.
var ResizableExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".webp": true,
}

// BrowserUploadExtensions are the files an upload through the file browser
// also records in the gallery.
var BrowserUploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".mp4":  true,
	".mov":  true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
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

	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",

	".mp3":  "audio/mpeg",
	".json": "application/json",
}

// Ext returns the lowercased extension of name, including the leading dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// GetFileType returns the FileType for a given lowercase extension.
func GetFileType(ext string) FileType {
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	return FileTypeOther
}

// Classify returns the FileType of a filename by its extension. The bool is
// false when the file is outside the supported set.
func Classify(filename string) (FileType, bool) {
	t := GetFileType(Ext(filename))
	return t, t != FileTypeOther
}

// GetMimeType returns the MIME type for a given lowercase extension, or
// "application/octet-stream" if it is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// ThumbnailName derives the thumbnail file name for an original: the base
// name with its extension stripped plus ThumbnailExt. "a.jpg" and "a.png"
// map to the same thumbnail.
func ThumbnailName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ThumbnailExt
}

// IsSafeName reports whether name is a plain file name that cannot escape
// the directory it is joined to. Dots inside a name ("trip..beach.jpg")
// are fine; only the "." and ".." elements themselves are rejected.
func IsSafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// IsHidden reports whether a file name is a dotfile.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
