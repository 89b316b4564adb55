// Package collage draws memory collages: photos fitted, optionally framed,
// rotated and scattered without heavy overlap over a generated background,
// with the date stamped at the bottom.
package collage
