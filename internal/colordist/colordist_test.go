package colordist

import "testing"

func TestIdenticalColoursHaveZeroDistance(t *testing.T) {
	c := RGB{R: 120, G: 64, B: 200}
	for _, m := range []Metric{Euclidean, YUVWeighted, CIE94, CIEDE2000} {
		if d := Func(m)(c, c); d > 1e-6 {
			t.Errorf("metric %v: distance(c,c) = %v, want ~0", m, d)
		}
	}
}

func TestEuclideanDistanceSymmetric(t *testing.T) {
	a := RGB{R: 10, G: 20, B: 30}
	b := RGB{R: 200, G: 5, B: 90}
	if Func(Euclidean)(a, b) != Func(Euclidean)(b, a) {
		t.Errorf("euclidean distance is not symmetric")
	}
}

func TestEuclideanDistanceKnownValue(t *testing.T) {
	a := RGB{R: 0, G: 0, B: 0}
	b := RGB{R: 3, G: 4, B: 0}
	if got, want := euclideanDistance(a, b), 25.0; got != want {
		t.Errorf("euclideanDistance = %v, want %v", got, want)
	}
}

func TestYUVExportedMatchesInternal(t *testing.T) {
	c := RGB{R: 50, G: 100, B: 150}
	y1, u1, v1 := YUV(c)
	y2, u2, v2 := yuvComponents(c)
	if y1 != y2 || u1 != u2 || v1 != v2 {
		t.Errorf("YUV() diverged from yuvComponents(): (%v,%v,%v) vs (%v,%v,%v)", y1, u1, v1, y2, u2, v2)
	}
}

func TestMetricZeroValueIsEuclidean(t *testing.T) {
	var zero Metric
	if zero != Euclidean {
		t.Fatalf("Metric zero value changed away from Euclidean")
	}
}

func TestCIEDE2000GrayscaleMonotonic(t *testing.T) {
	black := RGB{R: 0, G: 0, B: 0}
	white := RGB{R: 255, G: 255, B: 255}
	dist := Func(CIEDE2000)
	near := dist(black, RGB{R: 10, G: 10, B: 10})
	far := dist(black, white)
	if near >= far {
		t.Errorf("CIEDE2000: a near-black shade should be closer to black than white is: near=%v far=%v", near, far)
	}
}
