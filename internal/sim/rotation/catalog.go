// Package rotation is the catalog of axis-aligned display rotations and its
// JSON, binary and YAML tree codecs.
//
// A State is one of twelve fixed (axis, quarter-turn) pairs. Their ordering
// (X_0..X_270, Y_0..Y_270, Z_0..Z_270) is the binary wire format and must
// never change.
package rotation

import (
	"fmt"
	"strings"

	"voxeldisplay.ai/internal/sim/mathx"
)

// State is an ordinal into the catalog. Only Valid, String and the encoders
// accept a value outside it; the accessors panic on one.
type State uint8

const (
	X0 State = iota
	X90
	X180
	X270
	Y0
	Y90
	Y180
	Y270
	Z0
	Z90
	Z180
	Z270
)

const NumStates = numAxes * numAmounts

// PoseContext is the render transform stack a State is applied to.
type PoseContext interface {
	MulPose(q mathx.Quaternion)
	Translate(x, y, z float64)
}

type entry struct {
	axis      Axis
	amount    Amount
	name      string
	transform mathx.Quaternion
	offset    mathx.Vec3
}

var (
	catalog = buildCatalog()
	byName  = indexNames(catalog[:])
)

func buildCatalog() [NumStates]entry {
	var out [NumStates]entry
	for i := range out {
		out[i] = newEntry(Axis(i/numAmounts), Amount(i%numAmounts))
	}
	return out
}

func newEntry(axis Axis, amount Amount) entry {
	if !amount.Valid() {
		panic(fmt.Sprintf("rotation amount %d is out of bounds, must be 0-3 (0, 90, 180, 270 degrees)", amount))
	}
	def, ok := DefOf(axis)
	if !ok {
		panic(fmt.Sprintf("rotation axis %d is out of bounds", axis))
	}
	return entry{
		axis:      axis,
		amount:    amount,
		name:      fmt.Sprintf("%s_%d", axis, amount.Degrees()),
		transform: def.Transforms[amount],
		offset:    def.Offsets[amount],
	}
}

func indexNames(entries []entry) map[string]State {
	m := make(map[string]State, len(entries))
	for i, e := range entries {
		m[e.name] = State(i)
	}
	return m
}

// All returns the catalog in wire order.
func All() []State {
	out := make([]State, NumStates)
	for i := range out {
		out[i] = State(i)
	}
	return out
}

func Lookup(axis Axis, amount Amount) (State, bool) {
	if !axis.Valid() || !amount.Valid() {
		return 0, false
	}
	return State(int(axis)*numAmounts + int(amount)), true
}

// ByName matches a canonical name case-insensitively.
func ByName(name string) (State, bool) {
	s, ok := byName[strings.ToUpper(name)]
	return s, ok
}

func (s State) Valid() bool { return s < NumStates }

func (s State) Axis() Axis         { return catalog[s].axis }
func (s State) Amount() Amount     { return catalog[s].amount }
func (s State) Degrees() int       { return catalog[s].amount.Degrees() }
func (s State) Ordinal() int       { return int(s) }
func (s State) Offset() mathx.Vec3 { return catalog[s].offset }

func (s State) Transform() mathx.Quaternion { return catalog[s].transform }

// Name is the canonical "{AXIS}_{DEGREES}" form.
func (s State) Name() string { return catalog[s].name }

func (s State) String() string {
	if !s.Valid() {
		return fmt.Sprintf("State(%d)", uint8(s))
	}
	return catalog[s].name
}

// Next advances one quarter-turn around the same axis, wrapping 270 to 0.
// A state outside the catalog is returned unchanged.
func (s State) Next() State {
	if !s.Valid() {
		return s
	}
	e := catalog[s]
	n, _ := Lookup(e.axis, (e.amount+1)%numAmounts)
	return n
}

// Apply rotates ctx and then translates it by the state's offset. The offsets
// assume the rotation is already applied, so the order is fixed. A state
// outside the catalog leaves ctx untouched.
func (s State) Apply(ctx PoseContext) {
	if !s.Valid() {
		return
	}
	e := &catalog[s]
	ctx.MulPose(e.transform)
	ctx.Translate(e.offset.X, e.offset.Y, e.offset.Z)
}
