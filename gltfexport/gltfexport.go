// Package gltfexport writes a stage's prim hierarchy with composed local
// transforms as a glTF node tree.
package gltfexport

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/xformedit/sdf"
	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/utils/gltfutils"
	"github.com/mogaika/xformedit/xform"
)

// Export builds one glTF node per defined prim, evaluated at t. A prim is
// attached to its closest exported ancestor; prims that reset the xform
// stack become scene roots.
func Export(stage *usd.Stage, t usd.TimeCode) (*gltf.Document, error) {
	gc := gltfutils.NewCacher()
	doc := gc.Doc

	for _, prim := range stage.Prims() {
		local, reset, err := xform.New(prim).GetLocalTransformation(t)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to evaluate %v", prim.Path())
		}

		node := &gltf.Node{
			Name:   prim.Name(),
			Extras: map[string]interface{}{"path": string(prim.Path())},
		}
		if !local.ApproxEqual(mgl64.Ident4()) {
			node.Matrix = gltfutils.Matrix(local)
		}
		index := uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, node)
		gc.AddCache(prim.Path(), index)

		parent, ok := exportedAncestor(gc, prim.Path())
		if reset && ok {
			log.Printf("[gltf] %v resets the xform stack, exporting as root", prim.Path())
		}
		if ok && !reset {
			doc.Nodes[parent].Children = append(doc.Nodes[parent].Children, index)
		} else {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, index)
		}
	}
	return doc, nil
}

func exportedAncestor(gc *gltfutils.GLTFCacher, path sdf.Path) (uint32, bool) {
	for _, p := range path.Ancestors() {
		if index, ok := gc.GetCached(p).(uint32); ok {
			return index, true
		}
	}
	return 0, false
}
