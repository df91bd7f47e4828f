//go:build withcv
// +build withcv

package main

import (
	"log/slog"

	"github.com/LdDl/posedrift/config"
	"github.com/LdDl/posedrift/locate"
)

func newLocalizer(cfg *config.Config, logger *slog.Logger) (locate.Localizer, error) {
	extractor := locate.NewORBExtractor(cfg.Features, cfg.ScaleFactor, cfg.Levels)
	return locate.NewFeatureLocalizer(extractor, cfg.LocateOptions(), logger), nil
}
