package locate

import (
	"math"
	"math/rand"

	"github.com/LdDl/posedrift/drift"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// minHomographyPoints is number of correspondences defining projective mapping
const minHomographyPoints = 4

// Homography is a 3x3 projective mapping normalized so that H[2][2] = 1
type Homography struct {
	m *mat.Dense
}

// NewHomography creates homography from row-major values
func NewHomography(values [9]float64) Homography {
	return Homography{m: mat.NewDense(3, 3, values[:])}
}

// At returns element of row i and column j
func (h Homography) At(i, j int) float64 {
	return h.m.At(i, j)
}

// Project maps point through homography. False is returned for points mapped to infinity
func (h Homography) Project(p drift.Point) (drift.Point, bool) {
	src := mat.NewVecDense(3, []float64{p.X, p.Y, 1})
	var dst mat.VecDense
	dst.MulVec(h.m, src)
	w := dst.AtVec(2)
	if math.Abs(w) < 1e-12 {
		return drift.Point{}, false
	}
	return drift.Point{X: dst.AtVec(0) / w, Y: dst.AtVec(1) / w}, true
}

// computeHomography solves for H (with H[2][2] fixed to 1) mapping src[i] -> dst[i].
// Four pairs give exact solution, more pairs give least squares one.
func computeHomography(src, dst []drift.Point) (Homography, error) {
	n := len(src)
	if n != len(dst) {
		return Homography{}, errors.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	if n < minHomographyPoints {
		return Homography{}, errors.Errorf("need at least %d points, got %d", minHomographyPoints, n)
	}
	a := mat.NewDense(2*n, 8, nil)
	b := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i
		// x' = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
		a.SetRow(r, []float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x})
		b.SetVec(r, x)
		// y' = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
		a.SetRow(r+1, []float64{0, 0, 0, X, Y, 1, -X * y, -Y * y})
		b.SetVec(r+1, y)
	}
	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Homography{}, errors.Wrap(err, "Can't solve homography system")
	}
	values := [9]float64{}
	for i := 0; i < 8; i++ {
		values[i] = h.AtVec(i)
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return Homography{}, errors.New("homography is not finite")
		}
	}
	values[8] = 1
	return NewHomography(values), nil
}

// EstimateHomography finds homography src -> dst robust to outliers (RANSAC over 4-point samples).
// Pair is an inlier when its reprojection error does not exceed threshold (in pixels).
// Result is refined by least squares over all inliers. Returns homography and indices of inliers.
func EstimateHomography(src, dst []drift.Point, threshold float64, iterations int, rng *rand.Rand) (Homography, []int, error) {
	n := len(src)
	if n != len(dst) {
		return Homography{}, nil, errors.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	if n < minHomographyPoints {
		return Homography{}, nil, errors.Errorf("need at least %d points, got %d", minHomographyPoints, n)
	}
	if iterations < 1 {
		iterations = 1
	}
	bestInliers := []int{}
	var bestHomography Homography
	sampleSrc := make([]drift.Point, minHomographyPoints)
	sampleDst := make([]drift.Point, minHomographyPoints)
	for iter := 0; iter < iterations; iter++ {
		indices := rng.Perm(n)[:minHomographyPoints]
		for i, idx := range indices {
			sampleSrc[i] = src[idx]
			sampleDst[i] = dst[idx]
		}
		candidate, err := computeHomography(sampleSrc, sampleDst)
		if err != nil {
			continue
		}
		inliers := countInliers(candidate, src, dst, threshold)
		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
			bestHomography = candidate
		}
		// Nothing to improve
		if len(bestInliers) == n {
			break
		}
	}
	if len(bestInliers) < minHomographyPoints {
		return Homography{}, nil, errors.Errorf("RANSAC found %d inliers only", len(bestInliers))
	}

	inlierSrc := make([]drift.Point, len(bestInliers))
	inlierDst := make([]drift.Point, len(bestInliers))
	for i, idx := range bestInliers {
		inlierSrc[i] = src[idx]
		inlierDst[i] = dst[idx]
	}
	refined, err := computeHomography(inlierSrc, inlierDst)
	if err != nil {
		return bestHomography, bestInliers, nil
	}
	return refined, bestInliers, nil
}

func countInliers(h Homography, src, dst []drift.Point, threshold float64) []int {
	inliers := make([]int, 0, len(src))
	for i := range src {
		projected, ok := h.Project(src[i])
		if !ok {
			continue
		}
		if math.Hypot(projected.X-dst[i].X, projected.Y-dst[i].Y) <= threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}
