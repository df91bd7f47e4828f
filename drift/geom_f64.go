package drift

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// areaEpsilon is the smallest enclosed area (doubled, as accumulated by the
// shoelace sum) that still yields a usable centroid.
const areaEpsilon = 1e-7

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}

// Add returns p+q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Round rounds both coordinates to the nearest integer pixel
func (p Point) Round() Point {
	return Point{X: math.Round(p.X), Y: math.Round(p.Y)}
}

// Polygon is an ordered, implicitly closed sequence of vertices.
type Polygon []Point

// NewPolygonFrom builds polygon from integer pixel coordinates
func NewPolygonFrom(points ...image.Point) Polygon {
	polygon := make(Polygon, len(points))
	for i, pt := range points {
		polygon[i] = NewPointFrom(pt)
	}
	return polygon
}

// Centroid returns area-weighted center of the polygon (shoelace formula).
// Collinear, zero-area and self-cancelling polygons give zero Point and ErrDegenerateGeometry:
// such result must not be recorded.
func Centroid(polygon Polygon) (Point, error) {
	if len(polygon) < 3 {
		return Point{}, errors.Wrapf(ErrDegenerateGeometry, "polygon has %d vertices", len(polygon))
	}
	accumulatedArea := 0.0
	centerX := 0.0
	centerY := 0.0
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		temp := polygon[i].X*polygon[j].Y - polygon[j].X*polygon[i].Y
		accumulatedArea += temp
		centerX += (polygon[i].X + polygon[j].X) * temp
		centerY += (polygon[i].Y + polygon[j].Y) * temp
	}
	if math.Abs(accumulatedArea) < areaEpsilon {
		return Point{}, errors.Wrapf(ErrDegenerateGeometry, "enclosed area %g", accumulatedArea/2)
	}
	accumulatedArea *= 3
	return Point{
		X: centerX / accumulatedArea,
		Y: centerY / accumulatedArea,
	}, nil
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(p1.X-p2.X, 2) + math.Pow(p1.Y-p2.Y, 2))
}

// orientation is the signed area of triangle (start, expected, actual) in image coordinates (Y axis points down).
// Positive value means that actual point lies counter-clockwise from the start->expected ray as seen on screen.
func orientation(start, expected, actual Point) float64 {
	return (expected.Y-start.Y)*(actual.X-expected.X) - (expected.X-start.X)*(actual.Y-expected.Y)
}
