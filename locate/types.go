package locate

// KeyPoint is a detected feature: position, diameter of meaningful neighbourhood and orientation (degrees, [0; 360))
type KeyPoint struct {
	X     float64
	Y     float64
	Size  float64
	Angle float64
}

// Match pairs a scene descriptor (QueryIdx) with a template descriptor (TrainIdx)
type Match struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}

// CountNonZero returns number of set mask elements
func CountNonZero(mask []bool) int {
	count := 0
	for _, ok := range mask {
		if ok {
			count++
		}
	}
	return count
}
