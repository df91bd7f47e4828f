//go:build withcv
// +build withcv

package locate

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ORB detector defaults
const (
	DefaultORBFeatures    = 9000
	DefaultORBScaleFactor = 1.5
	DefaultORBLevels      = 4
)

// ORBExtractor is FeatureExtractor backed by OpenCV: ORB keypoints and brute-force Hamming matcher
type ORBExtractor struct {
	features    int
	scaleFactor float64
	levels      int
}

// NewORBExtractor creates new instance of ORBExtractor
func NewORBExtractor(features int, scaleFactor float64, levels int) *ORBExtractor {
	return &ORBExtractor{
		features:    features,
		scaleFactor: scaleFactor,
		levels:      levels,
	}
}

// NewDefaultORBExtractor creates ORBExtractor with 9000 features, scale factor 1.5 and 4 pyramid levels
func NewDefaultORBExtractor() *ORBExtractor {
	return NewORBExtractor(DefaultORBFeatures, DefaultORBScaleFactor, DefaultORBLevels)
}

// Match implements FeatureExtractor
func (extractor *ORBExtractor) Match(template, scene *image.Gray, k int) ([]KeyPoint, []KeyPoint, [][]Match, error) {
	templateMat, err := gocv.ImageGrayToMatGray(template)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "Can't convert template")
	}
	defer templateMat.Close()
	sceneMat, err := gocv.ImageGrayToMatGray(scene)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "Can't convert scene")
	}
	defer sceneMat.Close()

	orb := gocv.NewORBWithParams(extractor.features, float32(extractor.scaleFactor), extractor.levels, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20)
	defer orb.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	templateKeyPoints, templateDescriptors := orb.DetectAndCompute(templateMat, mask)
	defer templateDescriptors.Close()
	sceneKeyPoints, sceneDescriptors := orb.DetectAndCompute(sceneMat, mask)
	defer sceneDescriptors.Close()
	if templateDescriptors.Empty() || sceneDescriptors.Empty() {
		return nil, nil, nil, errors.Errorf("no descriptors: template %d keypoints, scene %d keypoints", len(templateKeyPoints), len(sceneKeyPoints))
	}

	matcher := gocv.NewBFMatcherWithParams(gocv.NormHamming, false)
	defer matcher.Close()
	knn := matcher.KnnMatch(sceneDescriptors, templateDescriptors, k)

	matches := make([][]Match, len(knn))
	for i, neighbours := range knn {
		matches[i] = make([]Match, len(neighbours))
		for j, m := range neighbours {
			matches[i][j] = Match{QueryIdx: m.QueryIdx, TrainIdx: m.TrainIdx, Distance: m.Distance}
		}
	}
	return convertKeyPoints(templateKeyPoints), convertKeyPoints(sceneKeyPoints), matches, nil
}

func convertKeyPoints(keyPoints []gocv.KeyPoint) []KeyPoint {
	converted := make([]KeyPoint, len(keyPoints))
	for i, kp := range keyPoints {
		converted[i] = KeyPoint{X: kp.X, Y: kp.Y, Size: kp.Size, Angle: kp.Angle}
	}
	return converted
}
