package locate

import (
	"math"
)

// VoteForUniqueness applies ratio test: match survives when its best distance
// is not greater than threshold * second best distance.
// Matches without second neighbour are dropped, since their uniqueness can't be proven.
func VoteForUniqueness(matches [][]Match, threshold float64, mask []bool) {
	for i := range mask {
		if !mask[i] {
			continue
		}
		if i >= len(matches) || len(matches[i]) < 2 {
			mask[i] = false
			continue
		}
		best := matches[i][0].Distance
		second := matches[i][1].Distance
		if second <= 0 || best/second > threshold {
			mask[i] = false
		}
	}
}

// VoteForSizeAndOrientation keeps matches that agree on relative scale and rotation.
// Every surviving match votes into 2D histogram of log10(scene size / template size) (bin width log10(scaleIncrement))
// and rotation difference (bin width rotationBins degrees). Matches falling into bins holding no more than
// half of the peak bin count are dropped.
// Returns number of surviving matches.
func VoteForSizeAndOrientation(templateKeyPoints, sceneKeyPoints []KeyPoint, matches [][]Match, mask []bool, scaleIncrement float64, rotationBins int) int {
	type vote struct {
		idx      int
		logScale float64
		rotation float64
	}
	votes := make([]vote, 0, len(mask))
	minScale := math.MaxFloat64
	maxScale := -math.MaxFloat64
	for i := range mask {
		if !mask[i] {
			continue
		}
		if i >= len(matches) || len(matches[i]) == 0 {
			mask[i] = false
			continue
		}
		best := matches[i][0]
		if best.TrainIdx < 0 || best.TrainIdx >= len(templateKeyPoints) || best.QueryIdx < 0 || best.QueryIdx >= len(sceneKeyPoints) {
			mask[i] = false
			continue
		}
		model := templateKeyPoints[best.TrainIdx]
		observed := sceneKeyPoints[best.QueryIdx]
		if model.Size <= 0 || observed.Size <= 0 {
			mask[i] = false
			continue
		}
		logScale := math.Log10(observed.Size / model.Size)
		rotation := math.Mod(observed.Angle-model.Angle, 360)
		if rotation < 0 {
			rotation += 360
		}
		votes = append(votes, vote{idx: i, logScale: logScale, rotation: rotation})
		minScale = math.Min(minScale, logScale)
		maxScale = math.Max(maxScale, logScale)
	}
	if len(votes) == 0 {
		return 0
	}

	scaleBinSize := math.Log10(scaleIncrement)
	scaleBinCount := 1
	if scaleBinSize > 0 {
		scaleBinCount = int(math.Ceil((maxScale - minScale) / scaleBinSize))
		if scaleBinCount < 1 {
			scaleBinCount = 1
		}
	}
	if rotationBins <= 0 {
		rotationBins = 360
	}
	rotationBinCount := int(math.Ceil(360.0 / float64(rotationBins)))

	binOf := func(v vote) int {
		scaleBin := 0
		if scaleBinSize > 0 {
			scaleBin = int((v.logScale - minScale) / scaleBinSize)
		}
		if scaleBin >= scaleBinCount {
			scaleBin = scaleBinCount - 1
		}
		rotationBin := int(v.rotation / float64(rotationBins))
		if rotationBin >= rotationBinCount {
			rotationBin = rotationBinCount - 1
		}
		return scaleBin*rotationBinCount + rotationBin
	}

	histogram := make([]int, scaleBinCount*rotationBinCount)
	peak := 0
	for _, v := range votes {
		bin := binOf(v)
		histogram[bin]++
		if histogram[bin] > peak {
			peak = histogram[bin]
		}
	}
	threshold := float64(peak) * 0.5
	survived := 0
	for _, v := range votes {
		if float64(histogram[binOf(v)]) <= threshold {
			mask[v.idx] = false
			continue
		}
		survived++
	}
	return survived
}
