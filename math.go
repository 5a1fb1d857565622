package g3d

import (
	"math"

	"golang.org/x/image/math/f32"
)

// Matrices are row-major (element (r, c) at m[4*r+c]) and transform column
// vectors: p' = M * p. Quaternions are stored as (x, y, z, w).

// IdentityQuat is the rotation that leaves a node unrotated.
var IdentityQuat = f32.Vec4{0, 0, 0, 1}

// Identity returns the 4x4 identity matrix.
func Identity() f32.Mat4 {
	return f32.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// MulMat4 returns a * b.
func MulMat4(a, b f32.Mat4) f32.Mat4 {
	var m f32.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[4*r+k] * b[4*k+c]
			}
			m[4*r+c] = sum
		}
	}
	return m
}

// Compose builds a transform from translation, rotation and scale (T * R * S).
func Compose(pos f32.Vec3, q f32.Vec4, scale f32.Vec3) f32.Mat4 {
	rot := quatToMat3(q)
	return f32.Mat4{
		rot[0] * scale[0], rot[1] * scale[1], rot[2] * scale[2], pos[0],
		rot[3] * scale[0], rot[4] * scale[1], rot[5] * scale[2], pos[1],
		rot[6] * scale[0], rot[7] * scale[1], rot[8] * scale[2], pos[2],
		0, 0, 0, 1,
	}
}

// Decompose splits an affine transform into translation, rotation and scale.
// A negative determinant is folded into the X scale.
func Decompose(m f32.Mat4) (pos f32.Vec3, q f32.Vec4, scale f32.Vec3) {
	pos = f32.Vec3{m[3], m[7], m[11]}

	sx := length3(f32.Vec3{m[0], m[4], m[8]})
	sy := length3(f32.Vec3{m[1], m[5], m[9]})
	sz := length3(f32.Vec3{m[2], m[6], m[10]})
	if det3(m) < 0 {
		sx = -sx
	}
	scale = f32.Vec3{sx, sy, sz}

	var rot [9]float32
	for r := 0; r < 3; r++ {
		rot[3*r+0] = safeDiv(m[4*r+0], sx)
		rot[3*r+1] = safeDiv(m[4*r+1], sy)
		rot[3*r+2] = safeDiv(m[4*r+2], sz)
	}
	q = quatFromMat3(rot)
	return pos, q, scale
}

// Invert returns the inverse of m. The second result is false when m is
// singular, in which case the identity is returned.
func Invert(m f32.Mat4) (f32.Mat4, bool) {
	var a [16]float64
	for i := range m {
		a[i] = float64(m[i])
	}
	var inv [16]float64

	inv[0] = a[5]*a[10]*a[15] - a[5]*a[11]*a[14] - a[9]*a[6]*a[15] + a[9]*a[7]*a[14] + a[13]*a[6]*a[11] - a[13]*a[7]*a[10]
	inv[4] = -a[4]*a[10]*a[15] + a[4]*a[11]*a[14] + a[8]*a[6]*a[15] - a[8]*a[7]*a[14] - a[12]*a[6]*a[11] + a[12]*a[7]*a[10]
	inv[8] = a[4]*a[9]*a[15] - a[4]*a[11]*a[13] - a[8]*a[5]*a[15] + a[8]*a[7]*a[13] + a[12]*a[5]*a[11] - a[12]*a[7]*a[9]
	inv[12] = -a[4]*a[9]*a[14] + a[4]*a[10]*a[13] + a[8]*a[5]*a[14] - a[8]*a[6]*a[13] - a[12]*a[5]*a[10] + a[12]*a[6]*a[9]
	inv[1] = -a[1]*a[10]*a[15] + a[1]*a[11]*a[14] + a[9]*a[2]*a[15] - a[9]*a[3]*a[14] - a[13]*a[2]*a[11] + a[13]*a[3]*a[10]
	inv[5] = a[0]*a[10]*a[15] - a[0]*a[11]*a[14] - a[8]*a[2]*a[15] + a[8]*a[3]*a[14] + a[12]*a[2]*a[11] - a[12]*a[3]*a[10]
	inv[9] = -a[0]*a[9]*a[15] + a[0]*a[11]*a[13] + a[8]*a[1]*a[15] - a[8]*a[3]*a[13] - a[12]*a[1]*a[11] + a[12]*a[3]*a[9]
	inv[13] = a[0]*a[9]*a[14] - a[0]*a[10]*a[13] - a[8]*a[1]*a[14] + a[8]*a[2]*a[13] + a[12]*a[1]*a[10] - a[12]*a[2]*a[9]
	inv[2] = a[1]*a[6]*a[15] - a[1]*a[7]*a[14] - a[5]*a[2]*a[15] + a[5]*a[3]*a[14] + a[13]*a[2]*a[7] - a[13]*a[3]*a[6]
	inv[6] = -a[0]*a[6]*a[15] + a[0]*a[7]*a[14] + a[4]*a[2]*a[15] - a[4]*a[3]*a[14] - a[12]*a[2]*a[7] + a[12]*a[3]*a[6]
	inv[10] = a[0]*a[5]*a[15] - a[0]*a[7]*a[13] - a[4]*a[1]*a[15] + a[4]*a[3]*a[13] + a[12]*a[1]*a[7] - a[12]*a[3]*a[5]
	inv[14] = -a[0]*a[5]*a[14] + a[0]*a[6]*a[13] + a[4]*a[1]*a[14] - a[4]*a[2]*a[13] - a[12]*a[1]*a[6] + a[12]*a[2]*a[5]
	inv[3] = -a[1]*a[6]*a[11] + a[1]*a[7]*a[10] + a[5]*a[2]*a[11] - a[5]*a[3]*a[10] - a[9]*a[2]*a[7] + a[9]*a[3]*a[6]
	inv[7] = a[0]*a[6]*a[11] - a[0]*a[7]*a[10] - a[4]*a[2]*a[11] + a[4]*a[3]*a[10] + a[8]*a[2]*a[7] - a[8]*a[3]*a[6]
	inv[11] = -a[0]*a[5]*a[11] + a[0]*a[7]*a[9] + a[4]*a[1]*a[11] - a[4]*a[3]*a[9] - a[8]*a[1]*a[7] + a[8]*a[3]*a[5]
	inv[15] = a[0]*a[5]*a[10] - a[0]*a[6]*a[9] - a[4]*a[1]*a[10] + a[4]*a[2]*a[9] + a[8]*a[1]*a[6] - a[8]*a[2]*a[5]

	det := a[0]*inv[0] + a[1]*inv[4] + a[2]*inv[8] + a[3]*inv[12]
	if math.Abs(det) < 1e-12 {
		return Identity(), false
	}
	det = 1 / det

	var out f32.Mat4
	for i := range inv {
		out[i] = float32(inv[i] * det)
	}
	return out, true
}

// Perspective returns a right-handed projection mapping view depth
// [-near, -far] to clip depth [0, 1].
func Perspective(fovYDeg, aspect, near, far float32) f32.Mat4 {
	f := float32(1 / math.Tan(float64(fovYDeg)*math.Pi/360))
	if aspect == 0 {
		aspect = 1
	}
	nf := 1 / (near - far)
	return f32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, far * nf, near * far * nf,
		0, 0, -1, 0,
	}
}

// TransformPoint applies m to the point p (w = 1).
func TransformPoint(m f32.Mat4, p f32.Vec3) f32.Vec3 {
	x := m[0]*p[0] + m[1]*p[1] + m[2]*p[2] + m[3]
	y := m[4]*p[0] + m[5]*p[1] + m[6]*p[2] + m[7]
	z := m[8]*p[0] + m[9]*p[1] + m[10]*p[2] + m[11]
	w := m[12]*p[0] + m[13]*p[1] + m[14]*p[2] + m[15]
	if w != 0 && w != 1 {
		return f32.Vec3{x / w, y / w, z / w}
	}
	return f32.Vec3{x, y, z}
}

// TransformDirection applies the upper 3x3 of m to d and normalizes it.
func TransformDirection(m f32.Mat4, d f32.Vec3) f32.Vec3 {
	return normalize3(f32.Vec3{
		m[0]*d[0] + m[1]*d[1] + m[2]*d[2],
		m[4]*d[0] + m[5]*d[1] + m[6]*d[2],
		m[8]*d[0] + m[9]*d[1] + m[10]*d[2],
	})
}

// QuatFromAxisAngle returns the rotation of angle radians around axis.
func QuatFromAxisAngle(axis f32.Vec3, angle float32) f32.Vec4 {
	axis = normalize3(axis)
	s := float32(math.Sin(float64(angle) / 2))
	c := float32(math.Cos(float64(angle) / 2))
	return f32.Vec4{axis[0] * s, axis[1] * s, axis[2] * s, c}
}

// MulQuat returns a * b, the rotation b followed by a.
func MulQuat(a, b f32.Vec4) f32.Vec4 {
	return f32.Vec4{
		a[3]*b[0] + a[0]*b[3] + a[1]*b[2] - a[2]*b[1],
		a[3]*b[1] - a[0]*b[2] + a[1]*b[3] + a[2]*b[0],
		a[3]*b[2] + a[0]*b[1] - a[1]*b[0] + a[2]*b[3],
		a[3]*b[3] - a[0]*b[0] - a[1]*b[1] - a[2]*b[2],
	}
}

// RotateVec3 rotates v by the unit quaternion q.
func RotateVec3(q f32.Vec4, v f32.Vec3) f32.Vec3 {
	m := quatToMat3(q)
	return f32.Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

func conjugate(q f32.Vec4) f32.Vec4 {
	return f32.Vec4{-q[0], -q[1], -q[2], q[3]}
}

func normalizeQuat(q f32.Vec4) f32.Vec4 {
	l := float32(math.Sqrt(float64(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])))
	if l == 0 {
		return IdentityQuat
	}
	return f32.Vec4{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// quatToMat3 returns the row-major 3x3 rotation of q.
func quatToMat3(q f32.Vec4) [9]float32 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z
	return [9]float32{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy),
	}
}

// quatFromMat3 converts a pure rotation matrix to a quaternion.
func quatFromMat3(m [9]float32) f32.Vec4 {
	m11, m12, m13 := float64(m[0]), float64(m[1]), float64(m[2])
	m21, m22, m23 := float64(m[3]), float64(m[4]), float64(m[5])
	m31, m32, m33 := float64(m[6]), float64(m[7]), float64(m[8])

	var x, y, z, w float64
	switch trace := m11 + m22 + m33; {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		w = 0.25 / s
		x = (m32 - m23) * s
		y = (m13 - m31) * s
		z = (m21 - m12) * s
	case m11 > m22 && m11 > m33:
		s := 2 * math.Sqrt(1+m11-m22-m33)
		w = (m32 - m23) / s
		x = 0.25 * s
		y = (m12 + m21) / s
		z = (m13 + m31) / s
	case m22 > m33:
		s := 2 * math.Sqrt(1+m22-m11-m33)
		w = (m13 - m31) / s
		x = (m12 + m21) / s
		y = 0.25 * s
		z = (m23 + m32) / s
	default:
		s := 2 * math.Sqrt(1+m33-m11-m22)
		w = (m21 - m12) / s
		x = (m13 + m31) / s
		y = (m23 + m32) / s
		z = 0.25 * s
	}
	return normalizeQuat(f32.Vec4{float32(x), float32(y), float32(z), float32(w)})
}

func det3(m f32.Mat4) float32 {
	return m[0]*(m[5]*m[10]-m[6]*m[9]) -
		m[1]*(m[4]*m[10]-m[6]*m[8]) +
		m[2]*(m[4]*m[9]-m[5]*m[8])
}

func add3(a, b f32.Vec3) f32.Vec3           { return f32.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func sub3(a, b f32.Vec3) f32.Vec3           { return f32.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func scale3(a f32.Vec3, s float32) f32.Vec3 { return f32.Vec3{a[0] * s, a[1] * s, a[2] * s} }
func dot3(a, b f32.Vec3) float32            { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross3(a, b f32.Vec3) f32.Vec3 {
	return f32.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func length3(a f32.Vec3) float32 {
	return float32(math.Sqrt(float64(dot3(a, a))))
}

func normalize3(a f32.Vec3) f32.Vec3 {
	l := length3(a)
	if l == 0 {
		return a
	}
	return scale3(a, 1/l)
}

func safeDiv(a, b float32) float32 {
	if b == 0 {
		return 0
	}
	return a / b
}
