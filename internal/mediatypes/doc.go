// Package mediatypes holds the dependency-free vocabulary shared by the
// storage, derivation and HTTP layers: which extensions are images or
// videos, how a thumbnail is named, and which names are safe to serve.
//
// Classify is the single gate used by ingestion and rescan:
//
//	fileType, ok := mediatypes.Classify("holiday.heic") // image, true
//	fileType, ok = mediatypes.Classify("notes.txt")     // other, false
//
// ThumbnailName strips the extension and appends ".jpg", so two originals
// that differ only in extension share a thumbnail.
package mediatypes
