package collage

import (
	"math/rand/v2"
	"strings"
)

// backgroundPrompts are the styles a collage background is drawn in.
// {color} is replaced with one of the dominant colours of the photos.
var backgroundPrompts = []string{
	"A minimalist abstract background, vintage 35mm filmstrip, soft gradients, {color} and pastel palette, light leaks, cinematic, fine grain, 8k.",
	"A dreamy, retro-style abstract background, 70s sunset, warm {color} palette, smooth gradients, hazy clouds, sunburst effect, nostalgic film grain, ethereal, high resolution.",
	"A modern, tech-style abstract background, clean layered dynamic curved and straight lines, monochrome base with sharp vibrant {color} accents, holographic elements, smooth highlights, minimalist vector art, Behance HD.",
	"A serene minimalist organic background, large soft amorphous shapes like liquid ink bleeds, blended with smooth gradients in a soft {color} palette, subtle paper texture, bokeh effect, calm, high quality.",
	"An artistic abstract background, modern canvas painting style, energetic broad textured brushstrokes, calligraphic linear patterns, harmonious {color} scheme, light canvas texture, balanced composition.",
	"A clean modern graphic design background, soft gradient {color} base, simple icon-like vector shapes (thin circles, planet outlines), sparsely placed with gentle drop shadows, fine grain texture, rule of thirds.",
	"A soft pastel abstract background, delicate minimalist botanical illustrations, simple line-art flower silhouettes, smoothly blended {color} gradient, subtle grain, ethereal glow for depth.",
	"A minimal architectural-style abstract background, layered framed square and rectangle shapes of varying opacities, on a smooth gradient {color} base, soft shadows, light grain, sharp highlights on edges.",
	"A beautiful watercolor-style abstract background, heavily blended textured brushstrokes in {color} palette, organic gradient transitions, visible high-quality paper grain, realistic water smudges, artistic.",
	"A minimal abstract composition, modern art style, random organic ink splatters, irregular hand-drawn stripes, on a soft off-white paper texture, limited palette of black, gold, and one accent color (teal or rust), delicate grain.",
}

// BackgroundPrompt picks a style at random and fills in one of colors.
func BackgroundPrompt(rng *rand.Rand, colors []string) string {
	tpl := backgroundPrompts[rng.IntN(len(backgroundPrompts))]
	color := "pastel"
	if len(colors) > 0 {
		color = colors[rng.IntN(len(colors))]
	}
	return strings.ReplaceAll(tpl, "{color}", color)
}
