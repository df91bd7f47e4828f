package locate

import (
	"image"
	"testing"

	"github.com/LdDl/posedrift/drift"
	"github.com/pkg/errors"
)

// shiftedExtractor emulates feature matching of template placed into the scene at (dx, dy)
type shiftedExtractor struct {
	dx, dy   float64
	outliers int
	err      error
}

func (extractor shiftedExtractor) Match(template, scene *image.Gray, k int) ([]KeyPoint, []KeyPoint, [][]Match, error) {
	if extractor.err != nil {
		return nil, nil, nil, extractor.err
	}
	templateKeyPoints := make([]KeyPoint, 0)
	sceneKeyPoints := make([]KeyPoint, 0)
	bounds := template.Bounds()
	for x := 2; x < bounds.Dx(); x += 9 {
		for y := 3; y < bounds.Dy(); y += 7 {
			templateKeyPoints = append(templateKeyPoints, KeyPoint{X: float64(x), Y: float64(y), Size: 31, Angle: 15})
			sceneKeyPoints = append(sceneKeyPoints, KeyPoint{X: float64(x) + extractor.dx, Y: float64(y) + extractor.dy, Size: 31, Angle: 15})
		}
	}
	n := len(templateKeyPoints)
	matches := make([][]Match, 0, n+extractor.outliers)
	for i := 0; i < n; i++ {
		matches = append(matches, []Match{
			{QueryIdx: i, TrainIdx: i, Distance: 10},
			{QueryIdx: i, TrainIdx: (i + 1) % n, Distance: 60},
		})
	}
	// Outliers: unique, but far from true location and with different orientation
	for i := 0; i < extractor.outliers; i++ {
		sceneKeyPoints = append(sceneKeyPoints, KeyPoint{X: float64(7 * i), Y: float64(300 - 11*i), Size: 31, Angle: 200})
		matches = append(matches, []Match{
			{QueryIdx: n + i, TrainIdx: i % n, Distance: 12},
			{QueryIdx: n + i, TrainIdx: (i + 3) % n, Distance: 70},
		})
	}
	return templateKeyPoints, sceneKeyPoints, matches, nil
}

func TestFeatureLocalizerFindsShiftedTemplate(t *testing.T) {
	template := image.NewGray(image.Rect(0, 0, 40, 30))
	scene := image.NewGray(image.Rect(0, 0, 320, 240))
	localizer := NewFeatureLocalizer(shiftedExtractor{dx: 100, dy: 50, outliers: 3}, DefaultOptions(), nil)

	polygon, err := localizer.LocalizeTemplate(template, scene)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := drift.Polygon{{X: 100, Y: 80}, {X: 140, Y: 80}, {X: 140, Y: 50}, {X: 100, Y: 50}}
	if len(polygon) != len(expected) {
		t.Fatalf("Expected %d corners, got %d", len(expected), len(polygon))
	}
	for i := range expected {
		if polygon[i] != expected[i] {
			t.Errorf("Corner %d: expected %v, got %v", i, expected[i], polygon[i])
		}
	}

	centroid, err := drift.Centroid(polygon)
	if err != nil {
		t.Fatalf("Can't compute centroid: %v", err)
	}
	if centroid.X != 120 || centroid.Y != 65 {
		t.Errorf("Expected centroid (120, 65), got %v", centroid)
	}
}

func TestFeatureLocalizerNotFound(t *testing.T) {
	scene := image.NewGray(image.Rect(0, 0, 320, 240))
	cases := []struct {
		name      string
		template  *image.Gray
		extractor FeatureExtractor
	}{
		{"extractor failure", image.NewGray(image.Rect(0, 0, 40, 30)), shiftedExtractor{err: errors.New("no descriptors")}},
		// Only two keypoints fit
		{"too few matches", image.NewGray(image.Rect(0, 0, 12, 8)), shiftedExtractor{dx: 10, dy: 10}},
		{"empty template", image.NewGray(image.Rect(0, 0, 0, 0)), shiftedExtractor{}},
		{"nil template", nil, shiftedExtractor{}},
	}
	for _, c := range cases {
		localizer := NewFeatureLocalizer(c.extractor, DefaultOptions(), nil)
		polygon, err := localizer.LocalizeTemplate(c.template, scene)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", c.name, err)
		}
		if polygon != nil {
			t.Errorf("%s: expected nil polygon, got %v", c.name, polygon)
		}
	}
}

func TestLocalizerFunc(t *testing.T) {
	var localizer Localizer = LocalizerFunc(func(template, scene *image.Gray) (drift.Polygon, error) {
		return nil, ErrNotFound
	})
	if _, err := localizer.LocalizeTemplate(nil, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
