package gltfexport

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/utils/gltfutils"
	"github.com/mogaika/xformedit/xform"
)

func TestExportHierarchy(t *testing.T) {
	s := usd.NewInMemory()
	world, err := s.DefinePrim("/World", "Xform")
	require.NoError(t, err)
	_, err = s.DefinePrim("/World/Cube", "Mesh")
	require.NoError(t, err)
	free, err := s.DefinePrim("/World/Free", "Xform")
	require.NoError(t, err)

	xf := xform.New(world)
	op, err := xf.AddTranslateOp(xform.PrecisionFloat, "")
	require.NoError(t, err)
	require.NoError(t, op.Set(mgl32.Vec3{1, 2, 3}, usd.DefaultTime()))
	require.NoError(t, xf.SetXformOpOrder([]xform.Op{op}, false))
	require.NoError(t, xform.New(free).SetXformOpOrder(nil, true))

	doc, err := Export(s, usd.DefaultTime())
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)

	assert.Equal(t, "World", doc.Nodes[0].Name)
	assert.Equal(t, gltfutils.Matrix(mgl64.Translate3D(1, 2, 3)), doc.Nodes[0].Matrix)
	assert.Equal(t, []uint32{1}, doc.Nodes[0].Children)
	assert.Equal(t, "Cube", doc.Nodes[1].Name)
	assert.Equal(t, gltf.DefaultMatrix, doc.Nodes[1].MatrixOrDefault())
	assert.Equal(t, []uint32{0, 2}, doc.Scenes[0].Nodes, "a reset prim is a root")

	var buf bytes.Buffer
	require.NoError(t, gltfutils.ExportJSON(&buf, doc))
	assert.Contains(t, buf.String(), `"/World/Cube"`)

	buf.Reset()
	require.NoError(t, gltfutils.ExportBinary(&buf, doc))
	assert.Equal(t, "glTF", buf.String()[:4])
}
