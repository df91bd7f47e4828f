// Command driftcheck reports pose drift of two tracked references.
//
// Replay mode (default) reads localization results as JSON lines:
//
//	{"reset": ["secondary"], "primary": [[x, y], ...], "secondary": [[x, y], ...]}
//
// Missing or null polygon means the reference has not been found in that frame.
// Every input line produces one JSON line with the deviation report.
//
// Image mode (binaries built with -tags withcv) takes scene images as arguments:
// references are cut out of the first scene with -primary and -secondary rectangles,
// every next scene is checked against them.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"image"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/LdDl/posedrift/config"
	"github.com/LdDl/posedrift/drift"
	"github.com/LdDl/posedrift/locate"
	"github.com/pkg/errors"
)

var (
	configPath   = flag.String("config", "driftcheck.json", "Path to JSON config")
	inputPath    = flag.String("input", "-", "JSON lines with localization results ('-' is stdin)")
	logLevel     = flag.String("log-level", "info", "debug, info, warn or error")
	primaryROI   = flag.String("primary", "", "Primary reference region in the first scene: x0,y0,x1,y1")
	secondaryROI = flag.String("secondary", "", "Secondary reference region in the first scene: x0,y0,x1,y1")
)

func main() {
	flag.Parse()
	logger := NewLogger(parseLevel(*logLevel))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("config is not loaded, using defaults", "path", *configPath, "error", err)
	}
	if cfg.Debug {
		logger = NewLogger(slog.LevelDebug)
	}
	tracker := drift.NewTracker(append(cfg.TrackerOptions(), drift.WithLogger(logger))...)

	if flag.NArg() > 0 {
		err = runImages(cfg, tracker, logger, flag.Args())
	} else {
		err = runReplay(tracker, logger)
	}
	if err != nil {
		logger.Error("driftcheck failed", "error", err)
		os.Exit(1)
	}
}

// NewLogger returns a structured slog.Logger with the given level.
func NewLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func runReplay(tracker *drift.Tracker, logger *slog.Logger) error {
	var input io.Reader = os.Stdin
	if *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			return errors.Wrap(err, "Can't open input")
		}
		defer f.Close()
		input = f
	}
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	return replay(input, out, tracker, logger)
}

// frameRecord is a single line of replay input
type frameRecord struct {
	Reset     []string     `json:"reset"`
	Primary   [][2]float64 `json:"primary"`
	Secondary [][2]float64 `json:"secondary"`
}

type pointOutput struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// frameOutput is a single line of output
type frameOutput struct {
	Frame     int          `json:"frame"`
	Primary   *pointOutput `json:"primary,omitempty"`
	Secondary *pointOutput `json:"secondary,omitempty"`
	Lines     []string     `json:"lines"`
	Error     string       `json:"error,omitempty"`
}

func replay(input io.Reader, output io.Writer, tracker *drift.Tracker, logger *slog.Logger) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(output)
	frame := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		frame++
		var record frameRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return errors.Wrapf(err, "Can't parse frame %d", frame)
		}
		for _, name := range record.Reset {
			ref, err := drift.ParseReference(name)
			if err != nil {
				return errors.Wrapf(err, "Frame %d", frame)
			}
			tracker.Reset(ref)
		}
		result := frameOutput{Frame: frame, Lines: []string{}}
		var primaryErr, secondaryErr error
		result.Primary, primaryErr = recordPolygon(tracker, drift.Primary, record.Primary, logger)
		result.Secondary, secondaryErr = recordPolygon(tracker, drift.Secondary, record.Secondary, logger)
		switch {
		case primaryErr != nil:
			result.Error = primaryErr.Error()
		case secondaryErr != nil:
			result.Error = secondaryErr.Error()
		case result.Primary == nil && len(tracker.History(drift.Primary)) > 0:
			result.Error = errors.Wrapf(locate.ErrNotFound, "%s reference", drift.Primary).Error()
		case result.Secondary == nil && len(tracker.History(drift.Secondary)) > 0:
			result.Error = errors.Wrapf(locate.ErrNotFound, "%s reference", drift.Secondary).Error()
		default:
			report, err := tracker.Report()
			if err != nil {
				result.Error = err.Error()
			} else {
				result.Lines = report.Lines()
			}
		}
		if err := enc.Encode(result); err != nil {
			return errors.Wrap(err, "Can't write report")
		}
	}
	return errors.Wrap(scanner.Err(), "Can't read input")
}

// recordPolygon records reference's polygon if frame carries one.
// Discarded polygon is returned as error so no deviation is reported for the frame.
func recordPolygon(tracker *drift.Tracker, ref drift.Reference, vertices [][2]float64, logger *slog.Logger) (*pointOutput, error) {
	if vertices == nil {
		return nil, nil
	}
	polygon := make(drift.Polygon, len(vertices))
	for i, v := range vertices {
		polygon[i] = drift.Point{X: v[0], Y: v[1]}
	}
	centroid, err := tracker.Record(ref, polygon)
	if err != nil {
		logger.Warn("localization discarded", "reference", ref.String(), "error", err)
		return nil, errors.Wrapf(err, "%s reference", ref)
	}
	return &pointOutput{X: centroid.X, Y: centroid.Y}, nil
}

// parseRect parses "x0,y0,x1,y1"
func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, errors.Errorf("rectangle should be x0,y0,x1,y1, got '%s'", s)
	}
	values := [4]int{}
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return image.Rectangle{}, errors.Wrapf(err, "bad rectangle '%s'", s)
		}
		values[i] = v
	}
	return image.Rect(values[0], values[1], values[2], values[3]), nil
}
