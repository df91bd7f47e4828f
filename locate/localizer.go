package locate

import (
	"image"
	"io"
	"log/slog"
	"math/rand"

	"github.com/LdDl/posedrift/drift"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when template can't be confidently located in the scene
var ErrNotFound = errors.New("template not found")

// Localizer finds template in the scene. Result is a quadrilateral of template corners in scene coordinates:
// bottom-left, bottom-right, top-right, top-left
type Localizer interface {
	LocalizeTemplate(template, scene *image.Gray) (drift.Polygon, error)
}

// LocalizerFunc is an adapter to use ordinary function as Localizer
type LocalizerFunc func(template, scene *image.Gray) (drift.Polygon, error)

// LocalizeTemplate calls f(template, scene)
func (f LocalizerFunc) LocalizeTemplate(template, scene *image.Gray) (drift.Polygon, error) {
	return f(template, scene)
}

// FeatureExtractor detects keypoints in both images and matches descriptors.
// For every scene keypoint it returns up to k nearest template descriptors (best first):
// Match.QueryIdx indexes sceneKeyPoints, Match.TrainIdx indexes templateKeyPoints
type FeatureExtractor interface {
	Match(template, scene *image.Gray, k int) (templateKeyPoints, sceneKeyPoints []KeyPoint, matches [][]Match, err error)
}

// Options are parameters of feature based localization
type Options struct {
	// Neighbours per scene descriptor. Default 2
	K int
	// Ratio test threshold. Default 0.8
	UniquenessThreshold float64
	// Scale histogram bin (ratio). Default 1.5
	ScaleIncrement float64
	// Rotation histogram bin (degrees). Default 20
	RotationBins int
	// Matches required before and after size/orientation voting. Default 4
	MinMatches int
	// Max reprojection error of homography inliers (pixels). Default 2
	RansacThreshold float64
	// Default 2000
	RansacIterations int
	// Seed of RANSAC sampling, so repeated runs give the same polygon
	Seed int64
}

// DefaultOptions returns parameters used for ORB features
func DefaultOptions() Options {
	return Options{
		K:                   2,
		UniquenessThreshold: 0.80,
		ScaleIncrement:      1.5,
		RotationBins:        20,
		MinMatches:          4,
		RansacThreshold:     2.0,
		RansacIterations:    2000,
		Seed:                1,
	}
}

// FeatureLocalizer implements Localizer on top of keypoint matching and homography estimation
type FeatureLocalizer struct {
	extractor FeatureExtractor
	options   Options
	logger    *slog.Logger
}

// NewFeatureLocalizer creates new instance of FeatureLocalizer. Nil logger discards messages
func NewFeatureLocalizer(extractor FeatureExtractor, options Options, logger *slog.Logger) *FeatureLocalizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if options.MinMatches < minHomographyPoints {
		options.MinMatches = minHomographyPoints
	}
	if options.K < 2 {
		options.K = 2
	}
	return &FeatureLocalizer{
		extractor: extractor,
		options:   options,
		logger:    logger,
	}
}

// LocalizeTemplate locates template in the scene. Any failure is reported as ErrNotFound
func (localizer *FeatureLocalizer) LocalizeTemplate(template, scene *image.Gray) (drift.Polygon, error) {
	if template == nil || scene == nil || template.Bounds().Empty() || scene.Bounds().Empty() {
		return nil, errors.Wrap(ErrNotFound, "empty image")
	}
	templateKeyPoints, sceneKeyPoints, matches, err := localizer.extractor.Match(template, scene, localizer.options.K)
	if err != nil {
		return nil, errors.Wrapf(ErrNotFound, "feature matching failed: %v", err)
	}

	mask := make([]bool, len(matches))
	for i := range mask {
		mask[i] = true
	}
	VoteForUniqueness(matches, localizer.options.UniquenessThreshold, mask)
	nonZeroCount := CountNonZero(mask)
	localizer.logger.Debug("unique matches", "template_keypoints", len(templateKeyPoints), "scene_keypoints", len(sceneKeyPoints), "matches", nonZeroCount)
	if nonZeroCount < localizer.options.MinMatches {
		return nil, errors.Wrapf(ErrNotFound, "%d unique matches", nonZeroCount)
	}
	nonZeroCount = VoteForSizeAndOrientation(templateKeyPoints, sceneKeyPoints, matches, mask, localizer.options.ScaleIncrement, localizer.options.RotationBins)
	localizer.logger.Debug("consistent matches", "matches", nonZeroCount)
	if nonZeroCount < localizer.options.MinMatches {
		return nil, errors.Wrapf(ErrNotFound, "%d matches consistent in size and orientation", nonZeroCount)
	}

	src := make([]drift.Point, 0, nonZeroCount)
	dst := make([]drift.Point, 0, nonZeroCount)
	for i, ok := range mask {
		if !ok {
			continue
		}
		best := matches[i][0]
		src = append(src, drift.Point{X: templateKeyPoints[best.TrainIdx].X, Y: templateKeyPoints[best.TrainIdx].Y})
		dst = append(dst, drift.Point{X: sceneKeyPoints[best.QueryIdx].X, Y: sceneKeyPoints[best.QueryIdx].Y})
	}
	rng := rand.New(rand.NewSource(localizer.options.Seed))
	homography, inliers, err := EstimateHomography(src, dst, localizer.options.RansacThreshold, localizer.options.RansacIterations, rng)
	if err != nil {
		return nil, errors.Wrapf(ErrNotFound, "homography: %v", err)
	}
	localizer.logger.Debug("homography estimated", "inliers", len(inliers))

	polygon, err := ProjectCorners(homography, template.Bounds().Dx(), template.Bounds().Dy())
	if err != nil {
		return nil, errors.Wrap(ErrNotFound, err.Error())
	}
	return polygon, nil
}

// ProjectCorners maps template rectangle (width x height) through homography.
// Corners are bottom-left, bottom-right, top-right, top-left, rounded to integer pixels
func ProjectCorners(homography Homography, width, height int) (drift.Polygon, error) {
	w := float64(width)
	h := float64(height)
	corners := drift.Polygon{
		{X: 0, Y: h},
		{X: w, Y: h},
		{X: w, Y: 0},
		{X: 0, Y: 0},
	}
	polygon := make(drift.Polygon, len(corners))
	for i, corner := range corners {
		projected, ok := homography.Project(corner)
		if !ok {
			return nil, errors.Errorf("corner %v is mapped to infinity", corner)
		}
		polygon[i] = projected.Round()
	}
	return polygon, nil
}
