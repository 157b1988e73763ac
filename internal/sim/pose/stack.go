// Package pose is a matrix stack that display rotations are applied to.
package pose

import "voxeldisplay.ai/internal/sim/mathx"

type Stack struct {
	mats []mathx.Mat4
}

func NewStack() *Stack {
	return &Stack{mats: []mathx.Mat4{mathx.Identity()}}
}

func (s *Stack) Push() { s.mats = append(s.mats, s.Last()) }

// Pop drops the top matrix. The base matrix is never popped.
func (s *Stack) Pop() {
	if len(s.mats) > 1 {
		s.mats = s.mats[:len(s.mats)-1]
	}
}

func (s *Stack) Depth() int { return len(s.mats) }

func (s *Stack) Last() mathx.Mat4 { return s.mats[len(s.mats)-1] }

// MulPose post-multiplies the top matrix, so the rotation applies to
// geometry before anything already on the stack.
func (s *Stack) MulPose(q mathx.Quaternion) {
	top := &s.mats[len(s.mats)-1]
	*top = top.Mul(mathx.FromQuaternion(q))
}

func (s *Stack) Translate(x, y, z float64) {
	top := &s.mats[len(s.mats)-1]
	*top = top.Mul(mathx.Translation(x, y, z))
}

func (s *Stack) TransformPoint(p mathx.Vec3) mathx.Vec3 { return s.Last().TransformPoint(p) }
