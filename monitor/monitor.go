// Package monitor runs the per-frame pipeline: locate both reference templates in the scene,
// record their centroids and compute the deviation report.
package monitor

import (
	"image"
	"io"
	"log/slog"

	"github.com/LdDl/posedrift/drift"
	"github.com/LdDl/posedrift/gallery"
	"github.com/LdDl/posedrift/locate"
	"github.com/pkg/errors"
)

// SceneKey is gallery name of the current scene
const SceneKey = "scene"

// TemplateKey returns gallery name of reference's template
func TemplateKey(ref drift.Reference) string {
	return "template " + ref.String()
}

// Observation is localized reference in a single frame
type Observation struct {
	Polygon  drift.Polygon
	Centroid drift.Point
}

// Frame is the outcome of a single check
type Frame struct {
	// Nil when reference is not defined or not found in the scene
	Primary   *Observation
	Secondary *Observation
	Report    drift.Report
	// Why there is no report: drift.ErrInsufficientHistory until both baselines exist
	Err error
}

// Monitor ties together image storage, localizer and alignment tracker
type Monitor struct {
	gallery   *gallery.Gallery
	localizer locate.Localizer
	tracker   *drift.Tracker
	logger    *slog.Logger
}

// New creates new instance of Monitor. Nil logger discards messages
func New(g *gallery.Gallery, localizer locate.Localizer, tracker *drift.Tracker, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Monitor{
		gallery:   g,
		localizer: localizer,
		tracker:   tracker,
		logger:    logger,
	}
}

// Tracker returns underlying alignment tracker
func (m *Monitor) Tracker() *drift.Tracker {
	return m.tracker
}

// SetScene replaces current scene
func (m *Monitor) SetScene(scene image.Image) error {
	_, err := m.gallery.Put(SceneKey, scene)
	return errors.Wrap(err, "Can't set scene")
}

// DefineReference cuts template out of the current scene, drops reference's history and records new baseline.
// Template is kept even if it can't be located: next frames may still find it.
func (m *Monitor) DefineReference(ref drift.Reference, rect image.Rectangle) (Observation, error) {
	if _, err := m.gallery.CropROI(SceneKey, rect, TemplateKey(ref)); err != nil {
		return Observation{}, errors.Wrapf(err, "Can't define %s reference", ref)
	}
	m.tracker.Reset(ref)
	scene, err := m.gallery.Gray(SceneKey)
	if err != nil {
		return Observation{}, err
	}
	observation, err := m.observe(ref, scene)
	if err != nil {
		return Observation{}, errors.Wrapf(err, "Can't record %s baseline", ref)
	}
	m.logger.Info("reference defined", "reference", ref.String(), "rect", rect.String(), "x", observation.Centroid.X, "y", observation.Centroid.Y)
	return *observation, nil
}

// RemoveReference forgets reference's template and history
func (m *Monitor) RemoveReference(ref drift.Reference) {
	m.gallery.Delete(TemplateKey(ref))
	m.tracker.Reset(ref)
}

// Check locates defined references in the new scene and reports deviation.
// When a defined reference is not observed, Frame.Err wraps the cause and no report is computed
// for the frame. Histories are not touched by failed references.
func (m *Monitor) Check(scene image.Image) (Frame, error) {
	if err := m.SetScene(scene); err != nil {
		return Frame{}, err
	}
	sceneGray := gallery.ToGray(scene)
	frame := Frame{}
	var observeErr error
	for _, ref := range []drift.Reference{drift.Primary, drift.Secondary} {
		if !m.gallery.Has(TemplateKey(ref)) {
			continue
		}
		observation, err := m.observe(ref, sceneGray)
		if err != nil {
			m.logger.Warn("reference is not observed", "reference", ref.String(), "error", err)
			if observeErr == nil {
				observeErr = errors.Wrapf(err, "%s reference", ref)
			}
			continue
		}
		if ref == drift.Primary {
			frame.Primary = observation
		} else {
			frame.Secondary = observation
		}
	}
	if observeErr != nil {
		frame.Err = observeErr
		return frame, nil
	}
	frame.Report, frame.Err = m.tracker.Report()
	return frame, nil
}

func (m *Monitor) observe(ref drift.Reference, scene *image.Gray) (*Observation, error) {
	template, err := m.gallery.Gray(TemplateKey(ref))
	if err != nil {
		return nil, err
	}
	polygon, err := m.localizer.LocalizeTemplate(template, scene)
	if err != nil {
		return nil, err
	}
	centroid, err := m.tracker.Record(ref, polygon)
	if err != nil {
		return nil, err
	}
	return &Observation{Polygon: polygon, Centroid: centroid}, nil
}
