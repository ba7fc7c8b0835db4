package manip

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/xformedit/simd"
	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/xform"
)

// EvaluateCoordinateFrameForIndex composes ops[:index] at t, first op
// outermost. The result is the frame the op at index operates within.
func EvaluateCoordinateFrameForIndex(ops []xform.Op, index int, t usd.TimeCode) (mgl64.Mat4, error) {
	if index < 0 || index > len(ops) {
		return mgl64.Ident4(), errors.Errorf("frame index %d out of range [0, %d]", index, len(ops))
	}
	frame := simd.IdentityFrame()
	for _, op := range ops[:index] {
		m, err := op.GetOpTransform(t)
		if err != nil {
			return mgl64.Ident4(), errors.Wrapf(err, "Failed to evaluate frame")
		}
		child := simd.FrameFromMat4(m)
		simd.Multiply4x4(&frame, &child)
	}
	return frame.Mat4(), nil
}
