package util

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// WhiteMagnitude is the Euclidean norm of (255, 255, 255).
var WhiteMagnitude = Magnitude([3]uint8{255, 255, 255})

func RgbToHsb(r, g, b uint8) (uint16, uint16, uint16) {
	red := float64(r) / 255.0
	green := float64(g) / 255.0
	blue := float64(b) / 255.0

	max := math.Max(red, math.Max(green, blue))
	min := math.Min(red, math.Min(green, blue))
	delta := max - min

	var h, s, v float64
	v = max // Brightness is the max of RGB

	if delta == 0 {
		h = 0
		s = 0
	} else {
		s = delta / max // Saturation is degree of variation from grey.

		deltaR := (((max - red) / 6) + (delta / 2)) / delta
		deltaG := (((max - green) / 6) + (delta / 2)) / delta
		deltaB := (((max - blue) / 6) + (delta / 2)) / delta

		if red == max {
			h = deltaB - deltaG
		} else if green == max {
			h = (1.0 / 3.0) + deltaR - deltaB
		} else if blue == max {
			h = (2.0 / 3.0) + deltaG - deltaR
		}

		if h < 0 {
			h += 1
		}
		if h > 1 {
			h -= 1
		}
	}

	hue := uint16(math.Round(h * 0xFFFF))
	saturation := uint16(math.Round(s * 0xFFFF))
	brightness := uint16(math.Round(v * 0xFFFF))

	return hue, saturation, brightness
}

// Magnitude is the Euclidean norm of a three channel color, used as a cheap
// brightness proxy. Channel order does not matter.
func Magnitude(c [3]uint8) float64 {
	return floats.Norm([]float64{float64(c[0]), float64(c[1]), float64(c[2])}, 2)
}

// GrayDistance scores how far a color is from the gray axis:
// |c0-c1| + |c1-c2| + |c2-c0|. Gray scores 0.
func GrayDistance(c [3]uint8) int {
	a, b, d := int(c[0]), int(c[1]), int(c[2])
	return abs(a-b) + abs(b-d) + abs(d-a)
}

// Quantize rounds v to the nearest multiple of step, capped at 255.
func Quantize(v uint8, step int) uint8 {
	if step <= 1 {
		return v
	}
	q := (int(v) + step/2) / step * step
	if q > math.MaxUint8 {
		q -= step
	}
	return uint8(q)
}

// RelativeBrightness is the percentage of full white a color's magnitude
// reaches, truncated.
func RelativeBrightness(c [3]uint8) int {
	return int(Magnitude(c) / WhiteMagnitude * 100)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
