package simd

import "github.com/go-gl/mathgl/mgl64"

// Frame is a 4x4 matrix held as four basis lanes. Lane 3 carries the
// translation. The flat layout matches mgl64.Mat4, so lane i is column i.
type Frame [4]D4

func IdentityFrame() Frame {
	return Frame{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

func FrameFromMat4(m mgl64.Mat4) Frame {
	return Frame{
		Loadu4d(m[0:4]),
		Loadu4d(m[4:8]),
		Loadu4d(m[8:12]),
		Loadu4d(m[12:16]),
	}
}

func (f *Frame) Mat4() mgl64.Mat4 {
	var m mgl64.Mat4
	for i := 0; i < 4; i++ {
		copy(m[i*4:i*4+4], f[i][:])
	}
	return m
}

func (f *Frame) Translation() D4 {
	return f[3]
}

// Rotate4d applies only the basis lanes of frame to the x, y, z lanes of offset.
func Rotate4d(offset D4, frame *Frame) D4 {
	xxx := Splat4d(offset, 0)
	yyy := Splat4d(offset, 1)
	zzz := Splat4d(offset, 2)
	return Fmadd4d(zzz, frame[2],
		Fmadd4d(yyy, frame[1],
			Mul4d(xxx, frame[0])))
}

// Transform4d applies frame to offset, lane 3 acting as the homogeneous weight.
func Transform4d(offset D4, frame *Frame) D4 {
	xxx := Splat4d(offset, 0)
	yyy := Splat4d(offset, 1)
	zzz := Splat4d(offset, 2)
	www := Splat4d(offset, 3)
	return Fmadd4d(www, frame[3],
		Fmadd4d(zzz, frame[2],
			Fmadd4d(yyy, frame[1],
				Mul4d(xxx, frame[0]))))
}

// Multiply4x4 computes frame *= child.
func Multiply4x4(frame *Frame, child *Frame) {
	mx := Transform4d(child[0], frame)
	my := Transform4d(child[1], frame)
	mz := Transform4d(child[2], frame)
	frame[3] = Transform4d(child[3], frame)
	frame[0] = mx
	frame[1] = my
	frame[2] = mz
}

// Multiply4x4To writes parent * child into output. output may alias neither input.
func Multiply4x4To(output *Frame, child *Frame, parent *Frame) {
	output[0] = Transform4d(child[0], parent)
	output[1] = Transform4d(child[1], parent)
	output[2] = Transform4d(child[2], parent)
	output[3] = Transform4d(child[3], parent)
}
