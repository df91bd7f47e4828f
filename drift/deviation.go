package drift

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

const (
	// DefaultTranslationTolerance is max allowed centroid shift along each axis (in pixels)
	DefaultTranslationTolerance = 5.0
	// DefaultRotationTolerance is max allowed rotation (in degrees)
	DefaultRotationTolerance = 2.0
)

// Tolerance holds thresholds of the deviation check.
// Shifts and angles equal to threshold are still within tolerance.
type Tolerance struct {
	Translation float64
	Rotation    float64
}

// DefaultTolerance returns 5px / 2deg thresholds
func DefaultTolerance() Tolerance {
	return Tolerance{
		Translation: DefaultTranslationTolerance,
		Rotation:    DefaultRotationTolerance,
	}
}

// Direction is handedness of rotation in image coordinates
type Direction uint16

const (
	// Clockwise covers zero orientation as well
	Clockwise Direction = iota
	CounterClockwise
)

func (direction Direction) String() string {
	switch direction {
	case CounterClockwise:
		return "Anticlockwise"
	default:
		return "Clockwise"
	}
}

// Translation is shift of the primary reference from its baseline
type Translation struct {
	DX float64
	DY float64
}

func (translation Translation) String() string {
	return fmt.Sprintf("Translation: X_Diff = %g, Y_Diff = %g", translation.DX, translation.DY)
}

// Rotation is angle between expected and actual secondary reference position as seen from the primary one
type Rotation struct {
	// Degrees, rounded to 2 decimals
	Angle     float64
	Direction Direction
}

func (rotation Rotation) String() string {
	return fmt.Sprintf("Rotation: Angle = %g deg %s", rotation.Angle, rotation.Direction)
}

// Report is the result of deviation check. Nil field means that deviation is within tolerance
type Report struct {
	Translation *Translation
	Rotation    *Rotation
	// Baselines the report is computed against
	PrimaryBaselineID   uuid.UUID
	SecondaryBaselineID uuid.UUID
}

// Empty reports whether object stays within tolerance
func (report Report) Empty() bool {
	return report.Translation == nil && report.Rotation == nil
}

// Lines returns human readable deviation lines: translation first, rotation second
func (report Report) Lines() []string {
	lines := make([]string, 0, 2)
	if report.Translation != nil {
		lines = append(lines, report.Translation.String())
	}
	if report.Rotation != nil {
		lines = append(lines, report.Rotation.String())
	}
	return lines
}

// ComputeDeviation compares current positions of both references against their baselines.
// Secondary reference is expected at currentPrimary + (baseSecondary - basePrimary) when object moved by pure translation.
func ComputeDeviation(basePrimary, currentPrimary, baseSecondary, currentSecondary Point, tolerance Tolerance) Report {
	report := Report{}
	offset := currentPrimary.Sub(basePrimary)
	if math.Abs(offset.X) > tolerance.Translation || math.Abs(offset.Y) > tolerance.Translation {
		report.Translation = &Translation{DX: offset.X, DY: offset.Y}
	}
	expectedSecondary := currentPrimary.Add(baseSecondary.Sub(basePrimary))
	angle := roundTo(rotationAngle(currentPrimary, expectedSecondary, currentSecondary), 2)
	if angle > tolerance.Rotation {
		direction := Clockwise
		if orientation(currentPrimary, expectedSecondary, currentSecondary) > 0 {
			direction = CounterClockwise
		}
		report.Rotation = &Rotation{Angle: angle, Direction: direction}
	}
	return report
}

// rotationAngle returns angle (in degrees) at start vertex of triangle (start, expected, actual) via law of cosines.
// Zero-length sides mean there is nothing to rotate: angle is zero.
func rotationAngle(start, expected, actual Point) float64 {
	l1 := euclideanDistance(start, expected)
	l2 := euclideanDistance(start, actual)
	l3 := euclideanDistance(actual, expected)
	if l1 == 0 || l2 == 0 {
		return 0
	}
	cos := (math.Pow(l1, 2) + math.Pow(l2, 2) - math.Pow(l3, 2)) / (2 * l1 * l2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

func roundTo(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}
