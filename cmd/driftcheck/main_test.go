package main

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/LdDl/posedrift/drift"
)

func TestReplay(t *testing.T) {
	input := strings.Join([]string{
		`{"primary": [[-10, 10], [10, 10], [10, -10], [-10, -10]]}`,
		``,
		`{"secondary": [[10, 10], [30, 10], [30, -10], [10, -10]]}`,
		`{"primary": [[-4, 10], [16, 10], [16, -10], [-4, -10]], "secondary": [[16, 10], [36, 10], [36, -10], [16, -10]]}`,
		`{"primary": [[0, 0], [1, 1], [2, 2]], "secondary": null}`,
		`{"reset": ["secondary"]}`,
	}, "\n")
	var output bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := replay(strings.NewReader(input), &output, drift.NewTracker(), logger); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 reports, got %d: %s", len(lines), output.String())
	}
	frames := make([]frameOutput, len(lines))
	for i, line := range lines {
		if err := json.Unmarshal([]byte(line), &frames[i]); err != nil {
			t.Fatalf("Can't parse output line %d: %v", i, err)
		}
	}

	if frames[0].Error == "" || frames[0].Primary == nil || frames[0].Primary.X != 0 {
		t.Errorf("Frame 1: expected primary baseline and insufficient history, got %+v", frames[0])
	}
	if frames[1].Secondary == nil || !strings.Contains(frames[1].Error, "not found") || len(frames[1].Lines) != 0 {
		t.Errorf("Frame 2: expected secondary baseline and missing primary, got %+v", frames[1])
	}
	if len(frames[2].Lines) != 1 || frames[2].Lines[0] != "Translation: X_Diff = 6, Y_Diff = 0" {
		t.Errorf("Frame 3: expected translation, got %+v", frames[2])
	}
	if frames[3].Primary != nil || frames[3].Secondary != nil {
		t.Errorf("Frame 4: degenerate polygon must be discarded, got %+v", frames[3])
	}
	if len(frames[3].Lines) != 0 || !strings.Contains(frames[3].Error, "degenerate") {
		t.Errorf("Frame 4: no deviation should be reported for discarded frame, got %+v", frames[3])
	}
	if frames[4].Error == "" {
		t.Errorf("Frame 5: expected no report after reset, got %+v", frames[4])
	}
}

func TestReplayBadInput(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var output bytes.Buffer
	if err := replay(strings.NewReader(`{"primary": `), &output, drift.NewTracker(), logger); err == nil {
		t.Error("Expected parse error")
	}
	if err := replay(strings.NewReader(`{"reset": ["tertiary"]}`), &output, drift.NewTracker(), logger); err == nil {
		t.Error("Expected unknown reference error")
	}
}

func TestParseRect(t *testing.T) {
	rect, err := parseRect("10, 20,30,40")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rect != image.Rect(10, 20, 30, 40) {
		t.Errorf("Unexpected rect: %v", rect)
	}
	for _, s := range []string{"", "1,2,3", "a,b,c,d"} {
		if _, err := parseRect(s); err == nil {
			t.Errorf("Expected error for '%s'", s)
		}
	}
}
