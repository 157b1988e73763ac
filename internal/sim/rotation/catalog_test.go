package rotation

import (
	"fmt"
	"testing"

	"voxeldisplay.ai/internal/sim/mathx"
)

func TestCatalog_WireOrderAndNames(t *testing.T) {
	want := []string{
		"X_0", "X_90", "X_180", "X_270",
		"Y_0", "Y_90", "Y_180", "Y_270",
		"Z_0", "Z_90", "Z_180", "Z_270",
	}
	all := All()
	if len(all) != NumStates || NumStates != 12 {
		t.Fatalf("len(All())=%d NumStates=%d want 12", len(all), NumStates)
	}
	for i, s := range all {
		if s.Ordinal() != i {
			t.Fatalf("All()[%d].Ordinal()=%d", i, s.Ordinal())
		}
		if s.Name() != want[i] {
			t.Fatalf("All()[%d].Name()=%q want %q", i, s.Name(), want[i])
		}
		if got := fmt.Sprintf("%s_%d", s.Axis(), s.Degrees()); got != s.Name() {
			t.Fatalf("name %q does not match axis/degrees %q", s.Name(), got)
		}
	}
	if Z270.Name() != "Z_270" || X0.Name() != "X_0" {
		t.Fatalf("constants out of order: X0=%s Z270=%s", X0, Z270)
	}
}

func TestLookup_TotalAndInjective(t *testing.T) {
	seen := map[State]bool{}
	for a := AxisX; a <= AxisZ; a++ {
		for m := Amount0; m <= Amount270; m++ {
			s, ok := Lookup(a, m)
			if !ok {
				t.Fatalf("Lookup(%s,%d) not found", a, m)
			}
			if seen[s] {
				t.Fatalf("Lookup(%s,%d)=%s already returned", a, m, s)
			}
			seen[s] = true
			if s.Axis() != a || s.Amount() != m {
				t.Fatalf("Lookup(%s,%d) returned %s with axis=%s amount=%d", a, m, s, s.Axis(), s.Amount())
			}
		}
	}
	if len(seen) != NumStates {
		t.Fatalf("distinct states=%d want %d", len(seen), NumStates)
	}
	if _, ok := Lookup(AxisX, 4); ok {
		t.Fatalf("expected amount 4 rejected")
	}
	if _, ok := Lookup(Axis(3), Amount0); ok {
		t.Fatalf("expected axis 3 rejected")
	}
}

func TestByName_CaseInsensitive(t *testing.T) {
	for _, in := range []string{"X_90", "x_90", "X_90"} {
		s, ok := ByName(in)
		if !ok || s != X90 {
			t.Fatalf("ByName(%q)=%v,%v want X_90", in, s, ok)
		}
	}
	if _, ok := ByName("X_45"); ok {
		t.Fatalf("expected X_45 unknown")
	}
}

func TestNewEntry_PanicsOnOutOfRangeAmount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for amount 4")
		}
	}()
	newEntry(AxisX, 4)
}

func TestNewEntry_PanicsOnUnknownAxis(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for axis 3")
		}
	}()
	newEntry(Axis(3), Amount0)
}

func TestOutOfCatalogState_ApplyAndNext(t *testing.T) {
	for _, s := range []State{NumStates, 200, 255} {
		p := &recordingPose{}
		s.Apply(p)
		if len(p.calls) != 0 {
			t.Fatalf("%s.Apply calls=%v want none", s, p.calls)
		}
		if got := s.Next(); got != s {
			t.Fatalf("%s.Next()=%s want unchanged", s, got)
		}
	}
}

type recordingPose struct {
	calls []string
	rot   mathx.Quaternion
	off   mathx.Vec3
}

func (p *recordingPose) MulPose(q mathx.Quaternion) {
	p.calls = append(p.calls, "rotate")
	p.rot = q
}

func (p *recordingPose) Translate(x, y, z float64) {
	p.calls = append(p.calls, "translate")
	p.off = mathx.Vec3{X: x, Y: y, Z: z}
}

func TestApply_RotatesThenTranslates(t *testing.T) {
	p := &recordingPose{}
	X90.Apply(p)
	if len(p.calls) != 2 || p.calls[0] != "rotate" || p.calls[1] != "translate" {
		t.Fatalf("calls=%v want [rotate translate]", p.calls)
	}
	def, _ := DefOf(AxisX)
	if p.rot != def.Transforms[1] {
		t.Fatalf("rotation=%v want %v", p.rot, def.Transforms[1])
	}
	if p.off != (mathx.Vec3{Z: -1}) {
		t.Fatalf("offset=%v want (0,0,-1)", p.off)
	}
}

func TestTransforms_QuarterTurns(t *testing.T) {
	cases := []struct {
		s    State
		in   mathx.Vec3
		want mathx.Vec3
	}{
		{s: X0, in: mathx.Vec3{Y: 1}, want: mathx.Vec3{Y: 1}},
		{s: X90, in: mathx.Vec3{Y: 1}, want: mathx.Vec3{Z: 1}},
		{s: X180, in: mathx.Vec3{Y: 1}, want: mathx.Vec3{Y: -1}},
		{s: X270, in: mathx.Vec3{Y: 1}, want: mathx.Vec3{Z: -1}},
		{s: Y90, in: mathx.Vec3{Z: 1}, want: mathx.Vec3{X: 1}},
		{s: Z90, in: mathx.Vec3{X: 1}, want: mathx.Vec3{Y: 1}},
	}
	for _, c := range cases {
		got := c.s.Transform().Rotate(c.in)
		if !got.ApproxEqual(c.want, 1e-9) {
			t.Fatalf("%s rotate %v = %v want %v", c.s, c.in, got, c.want)
		}
	}
}

func TestOffsets_Table(t *testing.T) {
	cases := map[State]mathx.Vec3{
		X0: {}, X90: {Z: -1}, X180: {Y: -1, Z: -1}, X270: {Y: -1},
		Y0: {}, Y90: {X: -1}, Y180: {X: -1, Z: -1}, Y270: {Z: -1},
		Z0: {}, Z90: {Y: -1}, Z180: {X: -1, Y: -1}, Z270: {X: -1},
	}
	for s, want := range cases {
		if s.Offset() != want {
			t.Fatalf("%s offset=%v want %v", s, s.Offset(), want)
		}
	}
}

func TestNext_CyclesSameAxis(t *testing.T) {
	cases := []struct{ in, want State }{
		{X0, X90}, {X270, X0}, {Y180, Y270}, {Z270, Z0},
	}
	for _, c := range cases {
		if got := c.in.Next(); got != c.want {
			t.Fatalf("%s.Next()=%s want %s", c.in, got, c.want)
		}
	}
}

func TestAmountFromQuarterTurns_AcceptsDegreesAndQuarterTurns(t *testing.T) {
	cases := []struct {
		in   int
		want Amount
	}{
		{in: 0, want: 0},
		{in: 1, want: 1},
		{in: 3, want: 3},
		{in: 4, want: 0},
		{in: -1, want: 3},
		{in: 90, want: 1},
		{in: 180, want: 2},
		{in: 270, want: 3},
		{in: 360, want: 0},
		{in: -90, want: 3},
	}
	for _, c := range cases {
		if got := AmountFromQuarterTurns(c.in); got != c.want {
			t.Fatalf("AmountFromQuarterTurns(%d)=%d want %d", c.in, got, c.want)
		}
	}
}

func TestAmountFromDegrees_OnlyQuarterTurns(t *testing.T) {
	for _, d := range []int{-1, 1, 45, 360, -90} {
		if _, ok := AmountFromDegrees(d); ok {
			t.Fatalf("AmountFromDegrees(%d) accepted", d)
		}
	}
	if a, ok := AmountFromDegrees(270); !ok || a != Amount270 {
		t.Fatalf("AmountFromDegrees(270)=%d,%v", a, ok)
	}
}

func TestParseAxis(t *testing.T) {
	if a, ok := ParseAxis("y"); !ok || a != AxisY {
		t.Fatalf("ParseAxis(y)=%s,%v", a, ok)
	}
	if _, ok := ParseAxis("w"); ok {
		t.Fatalf("expected w rejected")
	}
}
