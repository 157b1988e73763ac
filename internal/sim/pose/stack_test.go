package pose

import (
	"testing"

	"voxeldisplay.ai/internal/sim/mathx"
	"voxeldisplay.ai/internal/sim/rotation"
)

var unitCube = []mathx.Vec3{
	{}, {X: 1}, {Y: 1}, {Z: 1},
	{X: 1, Y: 1}, {X: 1, Z: 1}, {Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1},
}

func inUnitCube(p mathx.Vec3) bool {
	const eps = 1e-9
	in := func(v float64) bool { return v > -eps && v < 1+eps }
	return in(p.X) && in(p.Y) && in(p.Z)
}

func TestApply_KeepsUnitCubeAligned(t *testing.T) {
	for _, s := range rotation.All() {
		st := NewStack()
		s.Apply(st)
		for _, c := range unitCube {
			if p := st.TransformPoint(c); !inUnitCube(p) {
				t.Fatalf("%s maps corner %v to %v outside the unit cube", s, c, p)
			}
		}
	}
}

func TestApply_OrderMatters(t *testing.T) {
	// The offset is applied to geometry first, so (0,0,1) is pulled to the origin before rotating.
	st := NewStack()
	rotation.X90.Apply(st)
	got := st.TransformPoint(mathx.Vec3{Y: 0, Z: 1})
	want := mathx.Vec3{Y: 0, Z: 0}
	if !got.ApproxEqual(want, 1e-9) {
		t.Fatalf("X_90 (0,0,1) -> %v want %v", got, want)
	}

	// The reverse order (translate, then rotate) does not stay aligned.
	rev := NewStack()
	off := rotation.X90.Offset()
	rev.Translate(off.X, off.Y, off.Z)
	rev.MulPose(rotation.X90.Transform())
	if p := rev.TransformPoint(mathx.Vec3{Y: 1, Z: 1}); inUnitCube(p) {
		t.Fatalf("translate-then-rotate unexpectedly aligned: %v", p)
	}
}

func TestStack_PushPop(t *testing.T) {
	st := NewStack()
	st.Push()
	st.Translate(1, 2, 3)
	if got := st.TransformPoint(mathx.Vec3{}); got != (mathx.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("translated origin=%v", got)
	}
	st.Pop()
	if got := st.TransformPoint(mathx.Vec3{}); got != (mathx.Vec3{}) {
		t.Fatalf("after pop origin=%v", got)
	}
	st.Pop()
	if st.Depth() != 1 {
		t.Fatalf("Depth()=%d want 1", st.Depth())
	}
}
