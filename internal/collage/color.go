package collage

import (
	"fmt"
	"image"
	"image/color"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/disintegration/imaging"
)

// DominantColor returns the most prominent colour of img as #rrggbb. When
// k-means finds nothing (for example on a plain white image) the average
// colour is used.
func DominantColor(img image.Image) string {
	colors, err := prominentcolor.Kmeans(img)
	if err == nil && len(colors) > 0 {
		c := colors[0].Color
		return hex(uint8(c.R), uint8(c.G), uint8(c.B))
	}

	avg := imaging.Resize(img, 1, 1, imaging.Lanczos)
	c := color.NRGBAModel.Convert(avg.At(0, 0)).(color.NRGBA)
	return hex(c.R, c.G, c.B)
}

func hex(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
