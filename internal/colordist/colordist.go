// Package colordist implements the four pixel-to-palette distance metrics
// selectable at optimiser construction: Euclidean RGB, YUV-weighted,
// CIE94, and CIEDE2000. The metric is chosen once and is immutable for
// the run, per spec.md §3. Grounded on the teacher's rgb.go-style plain
// numeric conversions (no external colour-science dependency exists
// anywhere in the example pack; this is a justified stdlib-only package —
// see DESIGN.md).
package colordist

import "math"

// RGB is an 8-bit-per-channel colour, matching a 128-entry palette entry.
type RGB struct {
	R, G, B uint8
}

// Metric selects the distance function used to build the palette-error
// table. The zero value is Euclidean.
type Metric int

const (
	Euclidean Metric = iota
	YUVWeighted
	CIE94
	CIEDE2000
)

// Func computes the scalar distance between a target colour and a
// candidate palette colour under the given metric.
func Func(m Metric) func(target, candidate RGB) float64 {
	switch m {
	case YUVWeighted:
		return yuvDistance
	case CIE94:
		return cie94Distance
	case CIEDE2000:
		return ciede2000Distance
	default:
		return euclideanDistance
	}
}

func euclideanDistance(a, b RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return dr*dr + dg*dg + db*db
}

// yuvComponents converts an 8-bit RGB triple to ITU-R BT.601 YUV.
func yuvComponents(c RGB) (y, u, v float64) {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	y = 0.299*r + 0.587*g + 0.114*b
	u = -0.14713*r - 0.28886*g + 0.436*b
	v = 0.615*r - 0.51499*g - 0.10001*b
	return
}

// YUV is the exported form of yuvComponents, used by the dual-frame
// coordinator to precompute the pair-sum/pair-diff lookup tables
// (spec.md §4.9).
func YUV(c RGB) (y, u, v float64) { return yuvComponents(c) }

// yuvWeights balance luma against chroma; chroma differences are less
// visually salient on the target display than luma differences.
const (
	yuvLumaWeight   = 2.0
	yuvChromaWeight = 1.0
)

func yuvDistance(a, b RGB) float64 {
	ya, ua, va := yuvComponents(a)
	yb, ub, vb := yuvComponents(b)
	dy := ya - yb
	du := ua - ub
	dv := va - vb
	return yuvLumaWeight*dy*dy + yuvChromaWeight*(du*du+dv*dv)
}

// rgbToLab converts sRGB to CIE L*a*b* via the D65 XYZ intermediate.
func rgbToLab(c RGB) (l, a, b float64) {
	lin := func(v uint8) float64 {
		f := float64(v) / 255.0
		if f <= 0.04045 {
			return f / 12.92
		}
		return math.Pow((f+0.055)/1.055, 2.4)
	}
	r, g, bch := lin(c.R), lin(c.G), lin(c.B)

	x := r*0.4124564 + g*0.3575761 + bch*0.1804375
	y := r*0.2126729 + g*0.7151522 + bch*0.0721750
	z := r*0.0193339 + g*0.1191920 + bch*0.9503041

	const xn, yn, zn = 0.95047, 1.0, 1.08883
	f := func(t float64) float64 {
		if t > 216.0/24389.0 {
			return math.Cbrt(t)
		}
		return (24389.0/27.0*t + 16.0) / 116.0
	}
	fx, fy, fz := f(x/xn), f(y/yn), f(z/zn)

	l = 116*fy - 16
	a = 500 * (fx - fy)
	b = 200 * (fy - fz)
	return
}

func cie94Distance(target, candidate RGB) float64 {
	const kL, k1, k2 = 1.0, 0.045, 0.015
	l1, a1, b1 := rgbToLab(target)
	l2, a2, b2 := rgbToLab(candidate)

	dl := l1 - l2
	c1 := math.Sqrt(a1*a1 + b1*b1)
	c2 := math.Sqrt(a2*a2 + b2*b2)
	dc := c1 - c2
	da := a1 - a2
	db := b1 - b2
	dhSq := da*da + db*db - dc*dc
	if dhSq < 0 {
		dhSq = 0
	}

	sl := 1.0
	sc := 1 + k1*c1
	sh := 1 + k2*c1

	tl := dl / (kL * sl)
	tc := dc / sc
	th := math.Sqrt(dhSq) / sh
	return tl*tl + tc*tc + th*th
}

// ciede2000Distance implements the CIEDE2000 formula (Sharma et al. 2005).
func ciede2000Distance(target, candidate RGB) float64 {
	l1, a1, b1 := rgbToLab(target)
	l2, a2, b2 := rgbToLab(candidate)

	avgL := (l1 + l2) / 2
	c1 := math.Sqrt(a1*a1 + b1*b1)
	c2 := math.Sqrt(a2*a2 + b2*b2)
	avgC := (c1 + c2) / 2

	c7 := math.Pow(avgC, 7)
	g := 0.5 * (1 - math.Sqrt(c7/(c7+math.Pow(25, 7))))

	a1p := a1 * (1 + g)
	a2p := a2 * (1 + g)

	c1p := math.Sqrt(a1p*a1p + b1*b1)
	c2p := math.Sqrt(a2p*a2p + b2*b2)
	avgCp := (c1p + c2p) / 2

	hue := func(a, b float64) float64 {
		if a == 0 && b == 0 {
			return 0
		}
		h := math.Atan2(b, a) * 180 / math.Pi
		if h < 0 {
			h += 360
		}
		return h
	}
	h1p := hue(a1p, b1)
	h2p := hue(a2p, b2)

	dLp := l2 - l1
	dCp := c2p - c1p

	var dhp float64
	switch {
	case c1p*c2p == 0:
		dhp = 0
	case math.Abs(h2p-h1p) <= 180:
		dhp = h2p - h1p
	case h2p-h1p > 180:
		dhp = h2p - h1p - 360
	default:
		dhp = h2p - h1p + 360
	}
	dHp := 2 * math.Sqrt(c1p*c2p) * math.Sin(dhp*math.Pi/360)

	var avgHp float64
	switch {
	case c1p*c2p == 0:
		avgHp = h1p + h2p
	case math.Abs(h1p-h2p) <= 180:
		avgHp = (h1p + h2p) / 2
	case h1p+h2p < 360:
		avgHp = (h1p + h2p + 360) / 2
	default:
		avgHp = (h1p + h2p - 360) / 2
	}

	t := 1 - 0.17*math.Cos((avgHp-30)*math.Pi/180) +
		0.24*math.Cos(2*avgHp*math.Pi/180) +
		0.32*math.Cos((3*avgHp+6)*math.Pi/180) -
		0.20*math.Cos((4*avgHp-63)*math.Pi/180)

	dTheta := 30 * math.Exp(-math.Pow((avgHp-275)/25, 2))
	avgCp7 := math.Pow(avgCp, 7)
	rc := 2 * math.Sqrt(avgCp7/(avgCp7+math.Pow(25, 7)))
	sl := 1 + (0.015*math.Pow(avgL-50, 2))/math.Sqrt(20+math.Pow(avgL-50, 2))
	sc := 1 + 0.045*avgCp
	sh := 1 + 0.015*avgCp*t
	rt := -math.Sin(2*dTheta*math.Pi/180) * rc

	const kL, kC, kH = 1.0, 1.0, 1.0
	lTerm := dLp / (kL * sl)
	cTerm := dCp / (kC * sc)
	hTerm := dHp / (kH * sh)

	de := math.Sqrt(lTerm*lTerm + cTerm*cTerm + hTerm*hTerm + rt*cTerm*hTerm)
	return de * de
}
