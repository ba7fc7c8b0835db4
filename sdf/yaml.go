package sdf

import (
	"bytes"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type layerDoc struct {
	ID         string    `yaml:"id"`
	Identifier string    `yaml:"identifier"`
	Prims      []primDoc `yaml:"prims,omitempty"`
}

type primDoc struct {
	Path       string    `yaml:"path"`
	Specifier  string    `yaml:"specifier"`
	Type       string    `yaml:"type,omitempty"`
	Attributes []attrDoc `yaml:"attributes,omitempty"`
}

type attrDoc struct {
	Name    string      `yaml:"name"`
	Type    string      `yaml:"type"`
	Uniform bool        `yaml:"uniform,omitempty"`
	Default *yaml.Node  `yaml:"default,omitempty"`
	Samples []sampleDoc `yaml:"samples,omitempty"`
}

type sampleDoc struct {
	Time  float64    `yaml:"time"`
	Value *yaml.Node `yaml:"value"`
}

func (l *Layer) toDoc() (*layerDoc, error) {
	doc := &layerDoc{ID: l.id.String(), Identifier: l.identifier}
	for _, path := range l.PrimPaths() {
		spec := l.prims[path]
		pd := primDoc{Path: string(path), Specifier: spec.specifier.String(), Type: spec.typeName}
		for _, a := range spec.attributes {
			ad := attrDoc{Name: a.name, Type: string(a.typeName), Uniform: a.variability == VariabilityUniform}
			if a.def != nil {
				n, err := encodeValue(a.typeName, a.def)
				if err != nil {
					return nil, errors.Wrapf(err, "%v.%v default", path, a.name)
				}
				ad.Default = n
			}
			for _, s := range a.samples {
				n, err := encodeValue(a.typeName, s.Value)
				if err != nil {
					return nil, errors.Wrapf(err, "%v.%v sample %v", path, a.name, s.Time)
				}
				ad.Samples = append(ad.Samples, sampleDoc{Time: s.Time, Value: n})
			}
			pd.Attributes = append(pd.Attributes, ad)
		}
		doc.Prims = append(doc.Prims, pd)
	}
	return doc, nil
}

// Export writes the layer as YAML. Output depends only on layer content.
func (l *Layer) Export(w io.Writer) error {
	doc, err := l.toDoc()
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrapf(err, "Failed to marshal layer %q", l.identifier)
	}
	if err := enc.Close(); err != nil {
		return errors.Wrapf(err, "Failed to close yaml encoder")
	}
	return nil
}

func (l *Layer) ExportToString() (string, error) {
	var buffer bytes.Buffer
	if err := l.Export(&buffer); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

func ImportLayer(r io.Reader) (*Layer, error) {
	var doc layerDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to unmarshal layer")
	}

	l := NewLayer(doc.Identifier)
	if doc.ID != "" {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid layer id %q", doc.ID)
		}
		l.id = id
	}

	for _, pd := range doc.Prims {
		path := Path(pd.Path)
		if err := ValidatePath(path); err != nil {
			return nil, err
		}
		specifier := SpecifierDef
		switch pd.Specifier {
		case "def":
		case "over":
			specifier = SpecifierOver
		default:
			return nil, errors.Errorf("prim %v: unknown specifier %q", path, pd.Specifier)
		}
		if l.prims[path] != nil {
			return nil, errors.Errorf("prim %v authored twice", path)
		}
		spec := &PrimSpec{path: path, specifier: specifier, typeName: pd.Type}
		l.prims[path] = spec

		for _, ad := range pd.Attributes {
			variability := VariabilityVarying
			if ad.Uniform {
				variability = VariabilityUniform
			}
			a, err := spec.CreateAttribute(ad.Name, ValueType(ad.Type), variability)
			if err != nil {
				return nil, errors.Wrapf(err, "prim %v", path)
			}
			if ad.Default != nil {
				v, err := decodeValue(a.typeName, ad.Default)
				if err != nil {
					return nil, errors.Wrapf(err, "%v.%v default", path, a.name)
				}
				a.def = v
			}
			for _, sd := range ad.Samples {
				if sd.Value == nil {
					return nil, errors.Errorf("%v.%v sample %v has no value", path, a.name, sd.Time)
				}
				v, err := decodeValue(a.typeName, sd.Value)
				if err != nil {
					return nil, errors.Wrapf(err, "%v.%v sample %v", path, a.name, sd.Time)
				}
				if err := a.SetTimeSample(sd.Time, v); err != nil {
					return nil, err
				}
			}
		}
	}

	// ancestors are implied even when the file skips them
	for _, path := range l.PrimPaths() {
		for _, anc := range path.Ancestors() {
			if l.prims[anc] == nil {
				l.prims[anc] = &PrimSpec{path: anc, specifier: SpecifierOver}
			}
		}
	}
	return l, nil
}
