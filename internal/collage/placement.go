package collage

import (
	"image"
	"math/rand/v2"
)

// Placement limits.
const (
	PlacementAttempts = 500
	PlacementMargin   = 30
	MaxOverlapRatio   = 0.15
)

// photoSizes is the bounding box of each photo by number of photos.
var photoSizes = map[int]int{2: 800, 3: 650, 4: 550, 5: 480}

// PhotoSize returns the square a photo is fitted into when n photos share
// the collage.
func PhotoSize(n int) int {
	if size, ok := photoSizes[n]; ok {
		return size
	}
	return 600
}

// Overlaps reports whether the part of a covered by b exceeds maxRatio of
// a's area.
func Overlaps(a, b image.Rectangle, maxRatio float64) bool {
	inter := a.Intersect(b)
	if inter.Empty() {
		return false
	}
	area := a.Dx() * a.Dy()
	if area <= 0 {
		return false
	}
	return float64(inter.Dx()*inter.Dy())/float64(area) > maxRatio
}

// Place looks for a position of a size-sized box inside canvas, keeping
// margin from the edges, that overlaps none of placed too much. It tries
// at most attempts random positions.
func Place(rng *rand.Rand, canvas image.Rectangle, size image.Point, placed []image.Rectangle, attempts, margin int) (image.Rectangle, bool) {
	maxX := canvas.Dx() - size.X - margin
	maxY := canvas.Dy() - size.Y - margin
	if maxX < margin || maxY < margin {
		return image.Rectangle{}, false
	}

	for i := 0; i < attempts; i++ {
		x := canvas.Min.X + margin + rng.IntN(maxX-margin+1)
		y := canvas.Min.Y + margin + rng.IntN(maxY-margin+1)
		box := image.Rect(x, y, x+size.X, y+size.Y)

		free := true
		for _, other := range placed {
			if Overlaps(box, other, MaxOverlapRatio) {
				free = false
				break
			}
		}
		if free {
			return box, true
		}
	}
	return image.Rectangle{}, false
}
