package gltfutils

import (
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
)

// GLTFCacher is a document under construction plus a table of what was
// already exported into it.
type GLTFCacher struct {
	Doc   *gltf.Document
	cache map[interface{}]interface{}
}

func NewCacher() *GLTFCacher {
	return &GLTFCacher{
		Doc:   NewDocument(),
		cache: make(map[interface{}]interface{}),
	}
}

func (gc *GLTFCacher) AddCache(key interface{}, value interface{}) {
	gc.cache[key] = value
}

func (gc *GLTFCacher) GetCached(key interface{}) interface{} {
	return gc.cache[key]
}

func NewDocument() *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "xformedit"
	return doc
}

// Matrix converts m to glTF's column-major float layout. The flat order of
// mgl64.Mat4 already matches.
func Matrix(m mgl64.Mat4) [16]float32 {
	var out [16]float32
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

func ExportJSON(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = false
	return encoder.Encode(doc)
}
