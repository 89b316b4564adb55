// Package media turns originals into JPEG previews.
//
// Deriver.Derive writes a thumbnail for an image or video original and
// reports the outcome as a Result instead of an error, so rescans and bulk
// generation can continue past bad files. Images are decoded with imaging,
// then libvips for containers Go cannot read, then ffmpeg. Videos are
// sampled with ffmpeg one second in, or at the first frame for shorter
// clips. Every preview is flattened onto white before JPEG encoding.
//
// External binaries are invoked through a Runner so tests can stub them.
package media
