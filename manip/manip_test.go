package manip

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/xformedit/sdf"
	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/xform"
)

func TestParseSpace(t *testing.T) {
	for _, s := range []Space{PreTransform, PostTransform, World, Transform} {
		parsed, err := ParseSpace(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	s, err := ParseSpace("WORLD")
	require.NoError(t, err)
	assert.Equal(t, World, s)
	_, err = ParseSpace("screen")
	assert.Error(t, err)
	assert.Equal(t, "invalid", Space(7).String())
}

func definePrim(t *testing.T, s *usd.Stage, path sdf.Path) usd.Prim {
	prim, err := s.DefinePrim(path, "Xform")
	require.NoError(t, err)
	return prim
}

// authorStack builds translate(tr), rotateZ(angle), scale(sc) on prim.
func authorStack(t *testing.T, prim usd.Prim, tr mgl64.Vec3, angle float32, sc mgl32.Vec3) []xform.Op {
	xf := xform.New(prim)
	top, err := xf.AddTranslateOp(xform.PrecisionDouble, "")
	require.NoError(t, err)
	require.NoError(t, top.Set(tr, usd.DefaultTime()))
	rop, err := xf.AddXformOp(xform.OpRotateZ, xform.PrecisionFloat, "", false)
	require.NoError(t, err)
	require.NoError(t, rop.Set(angle, usd.DefaultTime()))
	sop, err := xf.AddXformOp(xform.OpScale, xform.PrecisionFloat, "", false)
	require.NoError(t, err)
	require.NoError(t, sop.Set(sc, usd.DefaultTime()))
	ops := []xform.Op{top, rop, sop}
	require.NoError(t, xf.SetXformOpOrder(ops, false))
	return ops
}

func TestEvaluateCoordinateFrame(t *testing.T) {
	s := usd.NewInMemory()
	prim := definePrim(t, s, "/A")
	ops := authorStack(t, prim, mgl64.Vec3{1, 2, 3}, 90, mgl32.Vec3{2, 2, 2})

	m, err := EvaluateCoordinateFrameForIndex(ops, 0, usd.DefaultTime())
	require.NoError(t, err)
	assert.Equal(t, mgl64.Ident4(), m)

	m, err = EvaluateCoordinateFrameForIndex(ops, 1, usd.DefaultTime())
	require.NoError(t, err)
	assert.True(t, m.ApproxEqual(mgl64.Translate3D(1, 2, 3)))

	local, _, err := xform.New(prim).GetLocalTransformation(usd.DefaultTime())
	require.NoError(t, err)
	m, err = EvaluateCoordinateFrameForIndex(ops, len(ops), usd.DefaultTime())
	require.NoError(t, err)
	assert.True(t, m.ApproxEqualThreshold(local, 1e-12))

	_, err = EvaluateCoordinateFrameForIndex(ops, 4, usd.DefaultTime())
	assert.Error(t, err)
}

func TestBind(t *testing.T) {
	s := usd.NewInMemory()
	prim := definePrim(t, s, "/A")

	_, err := Bind(prim, "", usd.DefaultTime())
	assert.Equal(t, ErrOpNotFound, errors.Cause(err))

	authorStack(t, prim, mgl64.Vec3{1, 2, 3}, 0, mgl32.Vec3{1, 1, 1})
	m, err := Bind(prim, "", usd.DefaultTime())
	require.NoError(t, err)
	assert.Equal(t, 0, m.Index())
	assert.Len(t, m.Ops(), 3)
	v, err := m.Translation()
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, v)

	_, err = Bind(prim, xform.RotatePivot, usd.DefaultTime())
	assert.Equal(t, ErrOpNotFound, errors.Cause(err))

	m, err = BindOp(prim, "xformOp:scale", usd.DefaultTime())
	require.NoError(t, err)
	assert.Equal(t, 2, m.Index())
	_, err = m.Translation()
	assert.Error(t, err)
}

func TestBindMatrixOp(t *testing.T) {
	s := usd.NewInMemory()
	prim := definePrim(t, s, "/M")
	xf := xform.New(prim)
	op, err := xf.AddXformOp(xform.OpTransform, xform.PrecisionDouble, "", false)
	require.NoError(t, err)
	mat := mgl64.HomogRotate3DY(mgl64.DegToRad(30)).Mul4(mgl64.Scale3D(2, 2, 2))
	mat.SetCol(3, mgl64.Vec4{4, 5, 6, 1})
	require.NoError(t, op.Set(mat, usd.DefaultTime()))
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{op}, false))

	m, err := Bind(prim, "", usd.DefaultTime())
	require.NoError(t, err)
	assert.Equal(t, xform.OpTransform, m.Op().OpType())
	v, err := m.Translation()
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{4, 5, 6}, v)

	require.NoError(t, m.ApplyPreTransformDelta(mgl64.Vec3{1, 0, -1}))
	got, ok := op.Get(usd.DefaultTime())
	require.True(t, ok)
	expected := mat
	expected.SetCol(3, mgl64.Vec4{5, 5, 5, 1})
	assert.Equal(t, expected, got, "only the translation column changes")
}

func TestApplyKeepsPrecision(t *testing.T) {
	s := usd.NewInMemory()
	prim := definePrim(t, s, "/H")
	xf := xform.New(prim)
	op, err := xf.AddTranslateOp(xform.PrecisionHalf, "")
	require.NoError(t, err)
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{op}, false))

	b, err := BindOrCreate(prim, "", usd.At(10))
	require.NoError(t, err)
	assert.False(t, b.Created)
	assert.False(t, b.HadSamples)
	assert.True(t, b.Time().IsDefault(), "static op is edited at default time")

	require.NoError(t, b.ApplyPreTransformDelta(mgl64.Vec3{0.5, 1, 2}))
	assert.Equal(t, sdf.TypeHalf3, op.Attr().TypeName())
	v, _ := op.Get(usd.DefaultTime())
	assert.Equal(t, sdf.NewVec3h(0.5, 1, 2), v)
}

func TestBindOrCreateKeepsSampledTime(t *testing.T) {
	s := usd.NewInMemory()
	prim := definePrim(t, s, "/S")
	xf := xform.New(prim)
	op, err := xf.AddTranslateOp(xform.PrecisionFloat, "")
	require.NoError(t, err)
	require.NoError(t, op.Set(mgl32.Vec3{0, 0, 0}, usd.At(1)))
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{op}, false))

	b, err := BindOrCreate(prim, "", usd.At(5))
	require.NoError(t, err)
	assert.True(t, b.HadSamples)
	assert.Equal(t, usd.At(5), b.Time())
	require.NoError(t, b.SetTranslation(mgl64.Vec3{1, 1, 1}))
	assert.Equal(t, 2, op.NumTimeSamples())
}

func TestCreateAndRemoveWithoutOrder(t *testing.T) {
	s := usd.NewInMemory()
	prim := definePrim(t, s, "/World/Cube")
	before, err := s.RootLayer().ExportToString()
	require.NoError(t, err)

	b, err := BindOrCreate(prim, "", usd.At(3))
	require.NoError(t, err)
	assert.True(t, b.Created)
	assert.True(t, b.Record.OrderAttr)
	assert.True(t, b.Record.AttrSpec)
	assert.True(t, b.Time().IsDefault())
	assert.Equal(t, s.RootLayer(), b.Scope.Layer())

	tokens, err := xform.New(prim).OrderTokens()
	require.NoError(t, err)
	assert.Equal(t, []string{"xformOp:translate"}, tokens)
	assert.Equal(t, sdf.TypeDouble3, b.Op().Attr().TypeName())
	require.NoError(t, b.SetTranslation(mgl64.Vec3{1, 2, 3}))

	RemoveCreatedOperation(b.Scope, prim, b.Record)
	after, err := s.RootLayer().ExportToString()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.False(t, xform.New(prim).OrderAttr().IsValid())
}

func TestCreateAndRemoveWithOrder(t *testing.T) {
	s := usd.NewInMemory()
	prim := definePrim(t, s, "/A")
	xf := xform.New(prim)
	rop, err := xf.AddXformOp(xform.OpRotateXYZ, xform.PrecisionFloat, "", false)
	require.NoError(t, err)
	require.NoError(t, rop.Set(mgl32.Vec3{0, 45, 0}, usd.DefaultTime()))
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{rop}, true))
	before, err := s.RootLayer().ExportToString()
	require.NoError(t, err)

	b, err := BindOrCreate(prim, "", usd.DefaultTime())
	require.NoError(t, err)
	assert.True(t, b.Created)
	assert.False(t, b.Record.OrderAttr)
	assert.True(t, b.ResetsXformStack())
	tokens, _ := xf.OrderTokens()
	assert.Equal(t, []string{xform.ResetXformStack, "xformOp:translate", "xformOp:rotateXYZ"}, tokens)

	RemoveCreatedOperation(b.Scope, prim, b.Record)
	after, err := s.RootLayer().ExportToString()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// a second removal finds nothing and leaves the layer alone
	RemoveCreatedOperation(b.Scope, prim, b.Record)
	again, err := s.RootLayer().ExportToString()
	require.NoError(t, err)
	assert.Equal(t, before, again)
}

func TestCreateOnSessionLayer(t *testing.T) {
	s := usd.NewInMemory()
	prim := definePrim(t, s, "/World/Cube")
	authorStack(t, prim, mgl64.Vec3{}, 0, mgl32.Vec3{1, 1, 1})
	root, err := s.RootLayer().ExportToString()
	require.NoError(t, err)

	require.NoError(t, s.SetEditTarget(usd.NewEditTarget(s.SessionLayer())))
	b, err := BindOrCreatePivot(prim, xform.RotatePivot, usd.DefaultTime())
	require.NoError(t, err)
	assert.True(t, b.Created)
	assert.Equal(t, xform.PrecisionFloat, b.Op().Precision())
	assert.Equal(t, []sdf.Path{"/World/Cube", "/World"}, b.Record.Specs)
	assert.Equal(t, []string{"xformOp:translate:rotatePivot", "!invert!xformOp:translate:rotatePivot"}, b.Record.OpNames)

	tokens, _ := xform.New(prim).OrderTokens()
	assert.Equal(t, []string{
		"xformOp:translate",
		"xformOp:translate:rotatePivot",
		"xformOp:rotateZ",
		"!invert!xformOp:translate:rotatePivot",
		"xformOp:scale",
	}, tokens)

	// the stage moves on to another target before undo
	require.NoError(t, s.SetEditTarget(usd.NewEditTarget(s.RootLayer())))
	RemoveCreatedOperation(b.Scope, prim, b.Record)

	assert.True(t, s.SessionLayer().IsEmpty())
	after, err := s.RootLayer().ExportToString()
	require.NoError(t, err)
	assert.Equal(t, root, after)
	tokens, _ = xform.New(prim).OrderTokens()
	assert.Equal(t, []string{"xformOp:translate", "xformOp:rotateZ", "xformOp:scale"}, tokens)
}

func TestPivotPlacement(t *testing.T) {
	s := usd.NewInMemory()
	prim := definePrim(t, s, "/P")
	authorStack(t, prim, mgl64.Vec3{}, 0, mgl32.Vec3{1, 1, 1})

	_, err := BindOrCreatePivot(prim, xform.ScalePivot, usd.DefaultTime())
	require.NoError(t, err)
	_, err = BindOrCreatePivot(prim, xform.RotatePivot, usd.DefaultTime())
	require.NoError(t, err)

	tokens, _ := xform.New(prim).OrderTokens()
	assert.Equal(t, []string{
		"xformOp:translate",
		"xformOp:translate:rotatePivot",
		"xformOp:rotateZ",
		"!invert!xformOp:translate:rotatePivot",
		"xformOp:translate:scalePivot",
		"xformOp:scale",
		"!invert!xformOp:translate:scalePivot",
	}, tokens)

	b, err := BindOrCreatePivot(prim, xform.ScalePivot, usd.DefaultTime())
	require.NoError(t, err)
	assert.False(t, b.Created)
	assert.Equal(t, 4, b.Index())

	_, err = BindOrCreatePivot(prim, xform.RotatePivotTranslate, usd.DefaultTime())
	assert.Error(t, err)
}

func TestPivotKeepsPointFixed(t *testing.T) {
	s := usd.NewInMemory()
	prim := definePrim(t, s, "/P")
	authorStack(t, prim, mgl64.Vec3{}, 90, mgl32.Vec3{1, 1, 1})

	b, err := BindOrCreatePivot(prim, xform.RotatePivot, usd.DefaultTime())
	require.NoError(t, err)
	require.NoError(t, b.SetTranslation(mgl64.Vec3{1, 0, 0}))

	local, _, err := xform.New(prim).GetLocalTransformation(usd.DefaultTime())
	require.NoError(t, err)
	p := local.Mul4x1(mgl64.Vec4{1, 0, 0, 1})
	assert.True(t, p.Vec3().ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-6), "%v", p)
}
