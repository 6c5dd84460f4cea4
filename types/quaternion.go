package types

import "github.com/chewxy/math32"

// Quaternion implementation taken from https://github.com/go-gl/mathgl/blob/master/mgl32/quat.go
type Quat struct {
	V Vec3
	W float32
}

// Create identity quaternion.
func QuatIdent() Quat {
	return Quat{
		V: Vec3{},
		W: 1.0,
	}
}

// Create a quaternion from an axis vector and an angle.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	sin, cos := math32.Sincos(angle * 0.5)
	return Quat{
		V: axis.Normalize().Mul(sin),
		W: cos,
	}
}

// Create a quaternion from euler angles (radians). The rotations are
// applied in X, Y, Z order.
func QuatFromEuler(rot Vec3) Quat {
	qx := QuatFromAxisAngle(Vec3{1, 0, 0}, rot[0])
	qy := QuatFromAxisAngle(Vec3{0, 1, 0}, rot[1])
	qz := QuatFromAxisAngle(Vec3{0, 0, 1}, rot[2])
	return qz.Mul(qy.Mul(qx)).Normalize()
}

// Rotates a vector by the rotation this quaternion represents.
func (q1 Quat) Rotate(v Vec3) Vec3 {
	cross := q1.V.Cross(v)
	// v + 2q_w * (q_v x v) + 2q_v x (q_v x v)
	return v.Add(cross.Mul(2 * q1.W)).Add(q1.V.Mul(2).Cross(cross))
}

// Multiplies two quaternions. Multiplication is not commutative.
func (q1 Quat) Mul(q2 Quat) Quat {
	return Quat{
		q1.V.Cross(q2.V).Add(q2.V.Mul(q1.W)).Add(q1.V.Mul(q2.W)),
		q1.W*q2.W - q1.V.Dot(q2.V),
	}
}

// Returns the Length of the quaternion.
func (q1 Quat) Len() float32 {
	return math32.Sqrt(q1.W*q1.W + q1.V.LenSq())
}

// Normalizes the quaternion, returning its versor (unit quaternion).
func (q1 Quat) Normalize() Quat {
	length := q1.Len()
	if math32.Abs(1-length) < floatCmpEpsilon {
		return q1
	}
	if length == 0 {
		return QuatIdent()
	}
	if math32.IsInf(length, 1) {
		length = math32.MaxFloat32
	}

	return Quat{q1.V.Mul(1 / length), q1.W / length}
}

// The inverse of a quaternion.
func (q1 Quat) Inverse() Quat {
	scaler := 1.0 / (q1.V.Dot(q1.V) + q1.W*q1.W)
	return Quat{
		q1.V.Mul(-scaler),
		q1.W * scaler,
	}
}

// Returns the homogeneous 3D rotation matrix corresponding to the quaternion.
func (q1 Quat) Mat4() Mat4 {
	w, x, y, z := q1.W, q1.V[0], q1.V[1], q1.V[2]
	return Mat4{
		1 - 2*y*y - 2*z*z, 2*x*y + 2*w*z, 2*x*z - 2*w*y, 0,
		2*x*y - 2*w*z, 1 - 2*x*x - 2*z*z, 2*y*z + 2*w*x, 0,
		2*x*z + 2*w*y, 2*y*z - 2*w*x, 1 - 2*x*x - 2*y*y, 0,
		0, 0, 0, 1,
	}
}
