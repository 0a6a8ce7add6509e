package positioning

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// collinearTolerance bounds |det| relative to the row norms of the
// trilateration system. Below it the beacons are treated as collinear.
const collinearTolerance = 1e-6

// minCentroidDistance keeps a beacon sitting on top of the user from
// getting an infinite weight.
const minCentroidDistance = 0.1

// Trilaterate solves for the horizontal position that is d[i] meters from
// each of the three points, using the linear system obtained by subtracting
// the circle equations of points 1-2 and 2-3. Z comes from the first point.
// It reports false for degenerate (near-collinear or coincident) geometry.
func Trilaterate(p [3]Point, d [3]float64) (Point, bool) {
	a := 2 * (p[1].X - p[0].X)
	b := 2 * (p[1].Y - p[0].Y)
	c := d[0]*d[0] - d[1]*d[1] - p[0].X*p[0].X + p[1].X*p[1].X - p[0].Y*p[0].Y + p[1].Y*p[1].Y

	e := 2 * (p[2].X - p[1].X)
	f := 2 * (p[2].Y - p[1].Y)
	g := d[1]*d[1] - d[2]*d[2] - p[1].X*p[1].X + p[2].X*p[2].X - p[1].Y*p[1].Y + p[2].Y*p[2].Y

	scale := math.Hypot(a, b) * math.Hypot(e, f)
	if scale == 0 {
		return Point{}, false
	}

	A := mat.NewDense(2, 2, []float64{a, b, e, f})
	if math.Abs(mat.Det(A)) < collinearTolerance*scale {
		return Point{}, false
	}

	var xy mat.VecDense
	if err := xy.SolveVec(A, mat.NewVecDense(2, []float64{c, g})); err != nil {
		return Point{}, false
	}

	x, y := xy.AtVec(0), xy.AtVec(1)
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return Point{}, false
	}
	return Point{X: x, Y: y, Z: p[0].Z}, true
}

// WeightedCentroid averages the points weighted by inverse distance. The
// floor is the plain mean of the points' floors.
func WeightedCentroid(points []Point, distances []float64) Point {
	if len(points) == 0 {
		return Point{}
	}

	weights := make([]float64, len(points))
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	zs := make([]float64, len(points))
	for i, p := range points {
		weights[i] = 1 / math.Max(distances[i], minCentroidDistance)
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}

	total := floats.Sum(weights)
	return Point{
		X: floats.Dot(weights, xs) / total,
		Y: floats.Dot(weights, ys) / total,
		Z: stat.Mean(zs, nil),
	}
}
