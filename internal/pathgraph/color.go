package pathgraph

import (
	"fmt"
	"math"
	"slices"
)

type rgb struct{ r, g, b float64 }

func (c rgb) hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.r), channel(c.g), channel(c.b))
}

func channel(v float64) int {
	return int(math.Max(0, math.Min(255, math.Round(v))))
}

var (
	nodeStart  = rgb{255, 255, 255}
	nodeAccent = rgb{0, 166, 255}
)

const (
	// edgeAlpha is appended to blended edge colors (0xe6/0xff ~ 90% opacity).
	edgeAlpha        = "e6"
	TransparentColor = "#00000000"
	SolidBlack       = "#000000ff"
)

// outcomePalette is the base color per outcome label. Labels not listed use
// unknownOutcomeColor.
var outcomePalette = map[string]rgb{
	OutcomeError:           {255, 0, 0},
	OutcomeOK:              {0, 255, 0},
	OutcomeInitialHint:     {0, 0, 255},
	OutcomeHintLevelChange: {0, 0, 255},
	OutcomeJIT:             {255, 255, 0},
	OutcomeFreebieJIT:      {255, 255, 0},
}

var unknownOutcomeColor = rgb{0, 0, 0}

func outcomeColor(label string) rgb {
	if c, ok := outcomePalette[label]; ok {
		return c
	}
	return unknownOutcomeColor
}

// NodeColor interpolates from white at rank 0 to the accent blue at
// rank == totalSteps.
func NodeColor(rank, totalSteps int) string {
	if totalSteps <= 0 {
		return nodeStart.hex()
	}
	t := float64(rank) / float64(totalSteps)
	return rgb{
		r: nodeStart.r + (nodeAccent.r-nodeStart.r)*t,
		g: nodeStart.g + (nodeAccent.g-nodeStart.g)*t,
		b: nodeStart.b + (nodeAccent.b-nodeStart.b)*t,
	}.hex()
}

// EdgeColor blends outcome colors weighted by their counts.
//
// In error mode OK outcomes are ignored; an edge that only saw OK is drawn
// solid black.
func EdgeColor(h OutcomeHistogram, errorMode bool) string {
	if len(h) == 0 {
		return TransparentColor
	}

	labels := make([]string, 0, len(h))
	for label, count := range h {
		if count <= 0 {
			continue
		}
		if errorMode && label == OutcomeOK {
			continue
		}
		labels = append(labels, label)
	}
	slices.Sort(labels)

	if len(labels) == 0 {
		if errorMode && h[OutcomeOK] > 0 {
			return SolidBlack
		}
		return TransparentColor
	}

	var mix rgb
	total := 0
	for _, label := range labels {
		c := outcomeColor(label)
		n := float64(h[label])
		mix.r += c.r * n
		mix.g += c.g * n
		mix.b += c.b * n
		total += h[label]
	}
	w := float64(total)
	return rgb{mix.r / w, mix.g / w, mix.b / w}.hex() + edgeAlpha
}
