package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/LdDl/posedrift/config"
	"github.com/LdDl/posedrift/drift"
	"github.com/LdDl/posedrift/gallery"
	"github.com/LdDl/posedrift/monitor"
	"github.com/pkg/errors"
)

func runImages(cfg *config.Config, tracker *drift.Tracker, logger *slog.Logger, scenes []string) error {
	localizer, err := newLocalizer(cfg, logger)
	if err != nil {
		return err
	}
	g := gallery.New()
	m := monitor.New(g, localizer, tracker, logger)

	load := func(path string) error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "Can't open scene")
		}
		defer f.Close()
		return g.Load(monitor.SceneKey, f)
	}

	if err := load(scenes[0]); err != nil {
		return err
	}
	rois := []struct {
		ref drift.Reference
		roi string
	}{
		{drift.Primary, *primaryROI},
		{drift.Secondary, *secondaryROI},
	}
	for _, r := range rois {
		ref, roi := r.ref, r.roi
		if roi == "" {
			continue
		}
		rect, err := parseRect(roi)
		if err != nil {
			return err
		}
		if _, err := m.DefineReference(ref, rect); err != nil {
			logger.Warn("reference is not defined", "reference", ref.String(), "error", err)
		}
	}

	for _, path := range scenes[1:] {
		if err := load(path); err != nil {
			return err
		}
		scene, err := g.Get(monitor.SceneKey)
		if err != nil {
			return err
		}
		frame, err := m.Check(scene)
		if err != nil {
			return err
		}
		if frame.Err != nil {
			fmt.Printf("%s: %v\n", path, frame.Err)
			continue
		}
		if frame.Report.Empty() {
			fmt.Printf("%s: aligned\n", path)
			continue
		}
		fmt.Printf("%s: %s\n", path, strings.Join(frame.Report.Lines(), "; "))
	}
	return nil
}
