//go:build !withcv
// +build !withcv

package main

import (
	"log/slog"

	"github.com/LdDl/posedrift/config"
	"github.com/LdDl/posedrift/locate"
	"github.com/pkg/errors"
)

func newLocalizer(cfg *config.Config, logger *slog.Logger) (locate.Localizer, error) {
	return nil, errors.New("image mode requires build with -tags withcv")
}
