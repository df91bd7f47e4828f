package drift

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultHistoryLimit is max number of centroids kept per reference
const DefaultHistoryLimit = 150

// smoother is implemented by kalman_filter.Kalman2D
type smoother interface {
	Predict()
	Update(x, y float64) error
	GetState() (float64, float64)
}

// History is an append-only sequence of centroids of a single reference.
// First element is the baseline, last element is the current position.
type History struct {
	baselineID  uuid.UUID
	track       []Point
	maxTrackLen int
	smoothed    Point
	tracker     smoother
}

// NewHistory creates empty history. Zero or negative maxTrackLen means unbounded history.
// Limit is never less than two: baseline and current position
func NewHistory(maxTrackLen int) *History {
	capacity := maxTrackLen
	if capacity <= 0 || capacity > DefaultHistoryLimit {
		capacity = DefaultHistoryLimit
	}
	return &History{
		track:       make([]Point, 0, capacity),
		maxTrackLen: maxTrackLen,
	}
}

// Append records new centroid. The very first centroid (since creation or last reset) becomes the baseline.
func (history *History) Append(centroid Point) error {
	if len(history.track) == 0 {
		history.baselineID = uuid.New()
		history.track = append(history.track, centroid)
		history.smoothed = centroid

		/* Kalman filter props */
		// Reference is expected to stay still, so no control input
		ux := 0.0
		uy := 0.0
		stdDevA := 2.0
		stdDevMx := 0.1
		stdDevMy := 0.1
		history.tracker = kalman_filter.NewKalman2D(1.0, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(centroid.X, centroid.Y))
		return nil
	}
	history.tracker.Predict()
	err := history.tracker.Update(centroid.X, centroid.Y)
	if err != nil {
		return errors.Wrap(err, "Can't update centroid smoother")
	}
	stateX, stateY := history.tracker.GetState()
	history.smoothed = Point{X: stateX, Y: stateY}
	history.track = append(history.track, centroid)
	// Trim oldest non-baseline position: baseline must survive
	limit := history.maxTrackLen
	if limit > 0 && limit < 2 {
		limit = 2
	}
	if limit > 0 && len(history.track) > limit {
		history.track = append(history.track[:1], history.track[2:]...)
	}
	return nil
}

// Reset drops every recorded position. Next appended centroid becomes the new baseline
func (history *History) Reset() {
	history.track = history.track[:0]
	history.baselineID = uuid.Nil
	history.smoothed = Point{}
	history.tracker = nil
}

// Len returns number of recorded positions
func (history *History) Len() int {
	return len(history.track)
}

// Empty reports whether there is no baseline yet
func (history *History) Empty() bool {
	return len(history.track) == 0
}

// Baseline returns first recorded position
func (history *History) Baseline() (Point, bool) {
	if len(history.track) == 0 {
		return Point{}, false
	}
	return history.track[0], true
}

// Current returns last recorded position
func (history *History) Current() (Point, bool) {
	if len(history.track) == 0 {
		return Point{}, false
	}
	return history.track[len(history.track)-1], true
}

// Smoothed returns Kalman-filtered current position
func (history *History) Smoothed() (Point, bool) {
	if len(history.track) == 0 {
		return Point{}, false
	}
	return history.smoothed, true
}

// BaselineID returns identifier of the current baseline. It changes every time history gets a new baseline
func (history *History) BaselineID() uuid.UUID {
	return history.baselineID
}

// GetTrack returns copy of recorded positions
func (history *History) GetTrack() []Point {
	track := make([]Point, len(history.track))
	copy(track, history.track)
	return track
}

// GetMaxTrackLen returns history's max length
func (history *History) GetMaxTrackLen() int {
	return history.maxTrackLen
}

// SetMaxTrackLen sets history's max length. Already recorded positions are trimmed on next append
func (history *History) SetMaxTrackLen(newMaxTrackLen int) {
	history.maxTrackLen = newMaxTrackLen
}

// ReferenceOffset returns vector from primary baseline to secondary baseline.
// Only baselines are used, never current positions.
func ReferenceOffset(primary, secondary *History) (Point, error) {
	primaryBase, ok := primary.Baseline()
	if !ok {
		return Point{}, errors.Wrap(ErrInsufficientHistory, "no primary baseline")
	}
	secondaryBase, ok := secondary.Baseline()
	if !ok {
		return Point{}, errors.Wrap(ErrInsufficientHistory, "no secondary baseline")
	}
	return secondaryBase.Sub(primaryBase), nil
}
