package mathx

import "math"

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) ApproxEqual(o Vec3, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps && math.Abs(v.Z-o.Z) <= eps
}

// Quaternion is a unit rotation quaternion (X,Y,Z vector part, W scalar part).
type Quaternion struct {
	X, Y, Z, W float64
}

func IdentityQuaternion() Quaternion { return Quaternion{W: 1} }

// FromAxisAngle builds the rotation of deg degrees around the unit axis.
func FromAxisAngle(axis Vec3, deg float64) Quaternion {
	half := deg * math.Pi / 360
	s := math.Sin(half)
	return Quaternion{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: math.Cos(half)}
}

// Mul returns q*o (apply o first, then q).
func (q Quaternion) Mul(o Quaternion) Quaternion {
	return Quaternion{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

func (q Quaternion) Conjugate() Quaternion { return Quaternion{-q.X, -q.Y, -q.Z, q.W} }

func (q Quaternion) Rotate(v Vec3) Vec3 {
	p := q.Mul(Quaternion{X: v.X, Y: v.Y, Z: v.Z}).Mul(q.Conjugate())
	return Vec3{p.X, p.Y, p.Z}
}

// ApproxEqual treats q and -q as the same rotation.
func (q Quaternion) ApproxEqual(o Quaternion, eps float64) bool {
	same := math.Abs(q.X-o.X) <= eps && math.Abs(q.Y-o.Y) <= eps && math.Abs(q.Z-o.Z) <= eps && math.Abs(q.W-o.W) <= eps
	flip := math.Abs(q.X+o.X) <= eps && math.Abs(q.Y+o.Y) <= eps && math.Abs(q.Z+o.Z) <= eps && math.Abs(q.W+o.W) <= eps
	return same || flip
}

// Mat4 is a row-major affine transform; points are column vectors.
type Mat4 [4][4]float64

func Identity() Mat4 {
	return Mat4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
}

func Translation(x, y, z float64) Mat4 {
	m := Identity()
	m[0][3], m[1][3], m[2][3] = x, y, z
	return m
}

func FromQuaternion(q Quaternion) Mat4 {
	xx, yy, zz := q.X*q.X, q.Y*q.Y, q.Z*q.Z
	xy, xz, yz := q.X*q.Y, q.X*q.Z, q.Y*q.Z
	wx, wy, wz := q.W*q.X, q.W*q.Y, q.W*q.Z
	return Mat4{
		{1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy), 0},
		{2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx), 0},
		{2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy), 0},
		{0, 0, 0, 1},
	}
}

// Mul returns m*o; as a transform it applies o first.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i][k] * o[k][j]
			}
			r[i][j] = s
		}
	}
	return r
}

func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3],
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3],
	}
}
