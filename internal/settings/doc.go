// Package settings stores the thumbnail and resized-original parameters in
// a small JSON document. Reads merge the file over Defaults; updates only
// touch recognized keys and are written atomically.
package settings
