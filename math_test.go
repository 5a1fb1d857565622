package g3d

import (
	"math"
	"testing"

	"golang.org/x/image/math/f32"
)

func nearVec3(a, b f32.Vec3) bool {
	return near(a[0], b[0]) && near(a[1], b[1]) && near(a[2], b[2])
}

func nearMat4(a, b f32.Mat4) bool {
	for i := range a {
		if !near(a[i], b[i]) {
			return false
		}
	}
	return true
}

// sameRotation reports whether two unit quaternions describe the same
// rotation (q and -q are equivalent).
func sameRotation(a, b f32.Vec4) bool {
	d := a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
	return near(float32(math.Abs(float64(d))), 1)
}

func TestMulMat4Identity(t *testing.T) {
	m := Compose(f32.Vec3{1, 2, 3}, QuatFromAxisAngle(f32.Vec3{0, 1, 0}, 0.7), f32.Vec3{2, 2, 2})
	if got := MulMat4(Identity(), m); got != m {
		t.Errorf("I*M = %v, want %v", got, m)
	}
	if got := MulMat4(m, Identity()); got != m {
		t.Errorf("M*I = %v, want %v", got, m)
	}
}

func TestComposeDecompose(t *testing.T) {
	tests := []struct {
		name  string
		pos   f32.Vec3
		rot   f32.Vec4
		scale f32.Vec3
	}{
		{"identity", f32.Vec3{}, IdentityQuat, f32.Vec3{1, 1, 1}},
		{"translate", f32.Vec3{1, -2, 3}, IdentityQuat, f32.Vec3{1, 1, 1}},
		{"rotate y", f32.Vec3{}, QuatFromAxisAngle(f32.Vec3{0, 1, 0}, math.Pi/3), f32.Vec3{1, 1, 1}},
		{"all", f32.Vec3{4, 5, 6}, QuatFromAxisAngle(f32.Vec3{1, 1, 0}, 1.2), f32.Vec3{2, 0.5, 3}},
		{"half turn", f32.Vec3{}, QuatFromAxisAngle(f32.Vec3{0, 0, 1}, math.Pi), f32.Vec3{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, rot, scale := Decompose(Compose(tt.pos, tt.rot, tt.scale))
			if !nearVec3(pos, tt.pos) {
				t.Errorf("position = %v, want %v", pos, tt.pos)
			}
			if !sameRotation(rot, tt.rot) {
				t.Errorf("rotation = %v, want %v", rot, tt.rot)
			}
			if !nearVec3(scale, tt.scale) {
				t.Errorf("scale = %v, want %v", scale, tt.scale)
			}
		})
	}
}

func TestInvert(t *testing.T) {
	m := Compose(f32.Vec3{3, -1, 2}, QuatFromAxisAngle(f32.Vec3{0, 1, 1}, 0.9), f32.Vec3{1, 2, 3})
	inv, ok := Invert(m)
	if !ok {
		t.Fatal("Invert reported a regular matrix as singular")
	}
	if got := MulMat4(m, inv); !nearMat4(got, Identity()) {
		t.Errorf("M*inv(M) = %v, want identity", got)
	}

	var singular f32.Mat4
	if got, ok := Invert(singular); ok || got != Identity() {
		t.Errorf("Invert(zero) = %v, %v; want identity, false", got, ok)
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := Perspective(90, 1, 1, 10)
	clip := func(z float32) float32 {
		zc := p[10]*z + p[11]
		w := p[14]*z + p[15]
		return zc / w
	}
	if got := clip(-1); !near(got, 0) {
		t.Errorf("near plane depth = %v, want 0", got)
	}
	if got := clip(-10); !near(got, 1) {
		t.Errorf("far plane depth = %v, want 1", got)
	}
	if p[0] != p[5] {
		t.Errorf("square aspect should scale x and y equally: %v vs %v", p[0], p[5])
	}
}

func TestQuaternionRotation(t *testing.T) {
	q := QuatFromAxisAngle(f32.Vec3{0, 0, 1}, math.Pi/2)
	if got := RotateVec3(q, f32.Vec3{1, 0, 0}); !nearVec3(got, f32.Vec3{0, 1, 0}) {
		t.Errorf("rotate x by 90 deg around z = %v, want (0, 1, 0)", got)
	}

	// b then a.
	a := QuatFromAxisAngle(f32.Vec3{0, 1, 0}, math.Pi/2)
	b := QuatFromAxisAngle(f32.Vec3{1, 0, 0}, math.Pi/2)
	v := f32.Vec3{0, 1, 0}
	want := RotateVec3(a, RotateVec3(b, v))
	if got := RotateVec3(MulQuat(a, b), v); !nearVec3(got, want) {
		t.Errorf("RotateVec3(a*b) = %v, want %v", got, want)
	}
}

func TestTransformPointAndDirection(t *testing.T) {
	m := Compose(f32.Vec3{1, 2, 3}, IdentityQuat, f32.Vec3{2, 2, 2})
	if got := TransformPoint(m, f32.Vec3{1, 1, 1}); !nearVec3(got, f32.Vec3{3, 4, 5}) {
		t.Errorf("TransformPoint = %v, want (3, 4, 5)", got)
	}
	if got := TransformDirection(m, f32.Vec3{0, 0, 5}); !nearVec3(got, f32.Vec3{0, 0, 1}) {
		t.Errorf("TransformDirection = %v, want (0, 0, 1)", got)
	}
}
