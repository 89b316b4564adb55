package collage

import (
	"image"
	"image/color"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// stampScale enlarges the bitmap font to stay readable on a full-size collage.
const stampScale = 3

// StampDate writes the date of t near the bottom left of img.
func StampDate(img *image.NRGBA, t time.Time) *image.NRGBA {
	text := t.Format("02.01.2006")
	face := basicfont.Face7x13

	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()
	label := imaging.New(width, height, color.Transparent)

	d := font.Drawer{
		Dst:  label,
		Src:  image.NewUniform(color.NRGBA{R: 15, G: 15, B: 15, A: 255}),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)

	big := imaging.Resize(label, width*stampScale, height*stampScale, imaging.NearestNeighbor)
	b := img.Bounds()
	x := (b.Dx() - big.Bounds().Dx()) / 8
	y := b.Dy() - 60 - big.Bounds().Dy()/2
	return imaging.Overlay(img, big, image.Pt(x, y), 0.6)
}
