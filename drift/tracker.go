package drift

import (
	"io"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

// Reference identifies one of two tracked features
type Reference uint16

const (
	// Primary is the anchor reference: translation is measured on it
	Primary Reference = iota
	// Secondary defines expected orientation relative to primary
	Secondary
)

func (ref Reference) String() string {
	switch ref {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// ParseReference parses "primary" / "secondary"
func ParseReference(s string) (Reference, error) {
	switch s {
	case "primary":
		return Primary, nil
	case "secondary":
		return Secondary, nil
	default:
		return 0, errors.Errorf("unknown reference '%s'", s)
	}
}

// Tracker is alignment tracker: it owns histories of both references and computes deviation report.
// Histories are guarded by single mutex, so reports are consistent with resets.
type Tracker struct {
	mu        sync.Mutex
	histories [2]*History
	// Deviation thresholds. Default 5px / 2deg
	tolerance Tolerance
	// Use Kalman-filtered current positions instead of raw ones. Default false
	smoothing bool
	logger    *slog.Logger
}

// TrackerOption configures Tracker
type TrackerOption func(*Tracker)

// WithTolerance overrides deviation thresholds
func WithTolerance(tolerance Tolerance) TrackerOption {
	return func(tracker *Tracker) {
		tracker.tolerance = tolerance
	}
}

// WithHistoryLimit limits number of kept centroids per reference. Zero means unbounded
func WithHistoryLimit(limit int) TrackerOption {
	return func(tracker *Tracker) {
		for _, history := range tracker.histories {
			history.SetMaxTrackLen(limit)
		}
	}
}

// WithSmoothing turns on Kalman smoothing of current positions
func WithSmoothing(smoothing bool) TrackerOption {
	return func(tracker *Tracker) {
		tracker.smoothing = smoothing
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(tracker *Tracker) {
		if logger != nil {
			tracker.logger = logger
		}
	}
}

// NewTracker creates new instance of Tracker
func NewTracker(options ...TrackerOption) *Tracker {
	tracker := &Tracker{
		histories: [2]*History{
			NewHistory(DefaultHistoryLimit),
			NewHistory(DefaultHistoryLimit),
		},
		tolerance: DefaultTolerance(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(tracker)
	}
	return tracker
}

func (tracker *Tracker) history(ref Reference) (*History, error) {
	if ref != Primary && ref != Secondary {
		return nil, errors.Errorf("unknown reference %d", ref)
	}
	return tracker.histories[ref], nil
}

// Record computes centroid of localized polygon and appends it to reference's history.
// Degenerate polygons are not recorded.
func (tracker *Tracker) Record(ref Reference, polygon Polygon) (Point, error) {
	centroid, err := Centroid(polygon)
	if err != nil {
		tracker.logger.Debug("skip localization", "reference", ref.String(), "error", err)
		return Point{}, errors.Wrapf(err, "Can't record %s reference", ref)
	}
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	history, err := tracker.history(ref)
	if err != nil {
		return Point{}, err
	}
	baseline := history.Empty()
	err = history.Append(centroid)
	if err != nil {
		return Point{}, errors.Wrapf(err, "Can't record %s reference", ref)
	}
	if baseline {
		tracker.logger.Info("baseline recorded", "reference", ref.String(), "x", centroid.X, "y", centroid.Y, "baseline_id", history.BaselineID().String())
	}
	return centroid, nil
}

// RecordPrimary is shorthand for Record(Primary, polygon)
func (tracker *Tracker) RecordPrimary(polygon Polygon) (Point, error) {
	return tracker.Record(Primary, polygon)
}

// RecordSecondary is shorthand for Record(Secondary, polygon)
func (tracker *Tracker) RecordSecondary(polygon Polygon) (Point, error) {
	return tracker.Record(Secondary, polygon)
}

// Reset clears reference's history. Next recorded centroid becomes new baseline
func (tracker *Tracker) Reset(ref Reference) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	history, err := tracker.history(ref)
	if err != nil {
		return
	}
	history.Reset()
	tracker.logger.Info("history reset", "reference", ref.String())
}

// ResetPrimary is shorthand for Reset(Primary)
func (tracker *Tracker) ResetPrimary() {
	tracker.Reset(Primary)
}

// ResetSecondary is shorthand for Reset(Secondary)
func (tracker *Tracker) ResetSecondary() {
	tracker.Reset(Secondary)
}

// ReferenceOffset returns vector from primary baseline to secondary baseline
func (tracker *Tracker) ReferenceOffset() (Point, error) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return ReferenceOffset(tracker.histories[Primary], tracker.histories[Secondary])
}

// History returns copy of reference's recorded positions (baseline first)
func (tracker *Tracker) History(ref Reference) []Point {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	history, err := tracker.history(ref)
	if err != nil {
		return nil
	}
	return history.GetTrack()
}

// Report computes deviation of current positions from baselines.
// ErrInsufficientHistory is returned until both references have a baseline.
func (tracker *Tracker) Report() (Report, error) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	primary := tracker.histories[Primary]
	secondary := tracker.histories[Secondary]
	if _, err := ReferenceOffset(primary, secondary); err != nil {
		return Report{}, err
	}
	basePrimary, _ := primary.Baseline()
	baseSecondary, _ := secondary.Baseline()
	currentPrimary, _ := primary.Current()
	currentSecondary, _ := secondary.Current()
	if tracker.smoothing {
		currentPrimary, _ = primary.Smoothed()
		currentSecondary, _ = secondary.Smoothed()
	}
	report := ComputeDeviation(basePrimary, currentPrimary, baseSecondary, currentSecondary, tracker.tolerance)
	report.PrimaryBaselineID = primary.BaselineID()
	report.SecondaryBaselineID = secondary.BaselineID()
	if !report.Empty() {
		tracker.logger.Warn("pose deviation", "lines", report.Lines())
	}
	return report, nil
}
