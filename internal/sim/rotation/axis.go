package rotation

import (
	"strings"

	"voxeldisplay.ai/internal/sim/mathx"
)

type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

const numAxes = 3

var axisNames = [numAxes]string{"X", "Y", "Z"}

func (a Axis) Valid() bool { return a < numAxes }

func (a Axis) String() string {
	if !a.Valid() {
		return "?"
	}
	return axisNames[a]
}

// ParseAxis accepts x, y or z in any case.
func ParseAxis(s string) (Axis, bool) {
	switch strings.ToUpper(s) {
	case "X":
		return AxisX, true
	case "Y":
		return AxisY, true
	case "Z":
		return AxisZ, true
	}
	return 0, false
}

// Amount is a quarter-turn count: 0, 90, 180 or 270 degrees.
type Amount uint8

const (
	Amount0 Amount = iota
	Amount90
	Amount180
	Amount270
)

const numAmounts = 4

func (a Amount) Valid() bool  { return a < numAmounts }
func (a Amount) Degrees() int { return int(a) * 90 }

// AmountFromDegrees only accepts exactly 0, 90, 180 or 270.
func AmountFromDegrees(deg int) (Amount, bool) {
	switch deg {
	case 0, 90, 180, 270:
		return Amount(deg / 90), true
	}
	return 0, false
}

// AmountFromQuarterTurns converts a client-provided rotation value into a
// stable quarter-turn count. It accepts either quarter-turns or degrees
// (multiples of 90).
func AmountFromQuarterTurns(r int) Amount {
	// Treat large multiples of 90 as degrees.
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	return Amount(mathx.Mod(r, numAmounts))
}

// AxisDef holds the precomputed transforms for one axis and the offsets that
// snap a rotated unit render back into its original axis-aligned cell.
type AxisDef struct {
	Axis       Axis
	Transforms [numAmounts]mathx.Quaternion
	Offsets    [numAmounts]mathx.Vec3
}

var axisDefs = [numAxes]AxisDef{
	newAxisDef(AxisX, mathx.Vec3{X: 1},
		mathx.Vec3{}, mathx.Vec3{Z: -1}, mathx.Vec3{Y: -1, Z: -1}, mathx.Vec3{Y: -1}),
	newAxisDef(AxisY, mathx.Vec3{Y: 1},
		mathx.Vec3{}, mathx.Vec3{X: -1}, mathx.Vec3{X: -1, Z: -1}, mathx.Vec3{Z: -1}),
	newAxisDef(AxisZ, mathx.Vec3{Z: 1},
		mathx.Vec3{}, mathx.Vec3{Y: -1}, mathx.Vec3{X: -1, Y: -1}, mathx.Vec3{X: -1}),
}

func newAxisDef(axis Axis, unit mathx.Vec3, offsets ...mathx.Vec3) AxisDef {
	d := AxisDef{Axis: axis}
	for i := 0; i < numAmounts; i++ {
		d.Transforms[i] = mathx.FromAxisAngle(unit, float64(i*90))
		d.Offsets[i] = offsets[i]
	}
	return d
}

// DefOf returns a copy of the axis definition; ok is false for unknown axes.
func DefOf(a Axis) (AxisDef, bool) {
	if !a.Valid() {
		return AxisDef{}, false
	}
	return axisDefs[a], true
}
