package sdf

import (
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"gopkg.in/yaml.v3"
)

// ValueType is the declared type name of an attribute.
type ValueType string

const (
	TypeHalf       ValueType = "half"
	TypeFloat      ValueType = "float"
	TypeDouble     ValueType = "double"
	TypeHalf3      ValueType = "half3"
	TypeFloat3     ValueType = "float3"
	TypeDouble3    ValueType = "double3"
	TypeMatrix4d   ValueType = "matrix4d"
	TypeQuath      ValueType = "quath"
	TypeQuatf      ValueType = "quatf"
	TypeQuatd      ValueType = "quatd"
	TypeToken      ValueType = "token"
	TypeTokenArray ValueType = "token[]"
)

var ErrTypeMismatch = errors.New("value type mismatch")

// Vec3h is a half precision 3-vector.
type Vec3h [3]float16.Float16

func NewVec3h(x, y, z float32) Vec3h {
	return Vec3h{float16.Fromfloat32(x), float16.Fromfloat32(y), float16.Fromfloat32(z)}
}

func (v Vec3h) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{v[0].Float32(), v[1].Float32(), v[2].Float32()}
}

// Quath is a half precision quaternion stored as i, j, k, real.
type Quath [4]float16.Float16

func NewQuath(q mgl32.Quat) Quath {
	return Quath{
		float16.Fromfloat32(q.V[0]),
		float16.Fromfloat32(q.V[1]),
		float16.Fromfloat32(q.V[2]),
		float16.Fromfloat32(q.W),
	}
}

func (q Quath) Quat() mgl32.Quat {
	return mgl32.Quat{W: q[3].Float32(), V: mgl32.Vec3{q[0].Float32(), q[1].Float32(), q[2].Float32()}}
}

func ValueTypeOf(v any) (ValueType, error) {
	switch v.(type) {
	case float16.Float16:
		return TypeHalf, nil
	case float32:
		return TypeFloat, nil
	case float64:
		return TypeDouble, nil
	case Vec3h:
		return TypeHalf3, nil
	case mgl32.Vec3:
		return TypeFloat3, nil
	case mgl64.Vec3:
		return TypeDouble3, nil
	case mgl64.Mat4:
		return TypeMatrix4d, nil
	case Quath:
		return TypeQuath, nil
	case mgl32.Quat:
		return TypeQuatf, nil
	case mgl64.Quat:
		return TypeQuatd, nil
	case string:
		return TypeToken, nil
	case []string:
		return TypeTokenArray, nil
	default:
		return "", errors.Errorf("unsupported value %T", v)
	}
}

func (t ValueType) IsValid() bool {
	switch t {
	case TypeHalf, TypeFloat, TypeDouble, TypeHalf3, TypeFloat3, TypeDouble3,
		TypeMatrix4d, TypeQuath, TypeQuatf, TypeQuatd, TypeToken, TypeTokenArray:
		return true
	}
	return false
}

func (t ValueType) isToken() bool {
	return t == TypeToken || t == TypeTokenArray
}

// bits is the float width a component is written with.
func (t ValueType) bits() int {
	switch t {
	case TypeDouble, TypeDouble3, TypeMatrix4d, TypeQuatd:
		return 64
	}
	return 32
}

func flatten(v any) []float64 {
	switch v := v.(type) {
	case float16.Float16:
		return []float64{float64(v.Float32())}
	case float32:
		return []float64{float64(v)}
	case float64:
		return []float64{v}
	case Vec3h:
		f := v.Vec3()
		return []float64{float64(f[0]), float64(f[1]), float64(f[2])}
	case mgl32.Vec3:
		return []float64{float64(v[0]), float64(v[1]), float64(v[2])}
	case mgl64.Vec3:
		return v[:]
	case mgl64.Mat4:
		return v[:]
	case Quath:
		q := v.Quat()
		return []float64{float64(q.V[0]), float64(q.V[1]), float64(q.V[2]), float64(q.W)}
	case mgl32.Quat:
		return []float64{float64(v.V[0]), float64(v.V[1]), float64(v.V[2]), float64(v.W)}
	case mgl64.Quat:
		return []float64{v.V[0], v.V[1], v.V[2], v.W}
	}
	return nil
}

func unflatten(t ValueType, f []float64) (any, error) {
	want := map[ValueType]int{
		TypeHalf: 1, TypeFloat: 1, TypeDouble: 1,
		TypeHalf3: 3, TypeFloat3: 3, TypeDouble3: 3,
		TypeMatrix4d: 16, TypeQuath: 4, TypeQuatf: 4, TypeQuatd: 4,
	}[t]
	if want == 0 || len(f) != want {
		return nil, errors.Errorf("%v expects %d components, got %d", t, want, len(f))
	}
	f32 := func(i int) float32 { return float32(f[i]) }
	switch t {
	case TypeHalf:
		return float16.Fromfloat32(f32(0)), nil
	case TypeFloat:
		return f32(0), nil
	case TypeDouble:
		return f[0], nil
	case TypeHalf3:
		return NewVec3h(f32(0), f32(1), f32(2)), nil
	case TypeFloat3:
		return mgl32.Vec3{f32(0), f32(1), f32(2)}, nil
	case TypeDouble3:
		return mgl64.Vec3{f[0], f[1], f[2]}, nil
	case TypeMatrix4d:
		var m mgl64.Mat4
		copy(m[:], f)
		return m, nil
	case TypeQuath:
		return NewQuath(mgl32.Quat{W: f32(3), V: mgl32.Vec3{f32(0), f32(1), f32(2)}}), nil
	case TypeQuatf:
		return mgl32.Quat{W: f32(3), V: mgl32.Vec3{f32(0), f32(1), f32(2)}}, nil
	default:
		return mgl64.Quat{W: f[3], V: mgl64.Vec3{f[0], f[1], f[2]}}, nil
	}
}

// CloneValue copies values that share backing storage.
func CloneValue(v any) any {
	if s, ok := v.([]string); ok {
		return append([]string(nil), s...)
	}
	return v
}

// Interpolate blends two samples of the same type. Quaternions are slerped,
// numeric values are blended per component and tokens are held.
func Interpolate(a, b any, alpha float64) any {
	ta, errA := ValueTypeOf(a)
	tb, errB := ValueTypeOf(b)
	if errA != nil || errB != nil || ta != tb || ta.isToken() {
		return CloneValue(a)
	}
	switch qa := a.(type) {
	case mgl32.Quat:
		return mgl32.QuatSlerp(qa, b.(mgl32.Quat), float32(alpha))
	case mgl64.Quat:
		return mgl64.QuatSlerp(qa, b.(mgl64.Quat), alpha)
	case Quath:
		return NewQuath(mgl32.QuatSlerp(qa.Quat(), b.(Quath).Quat(), float32(alpha)))
	}
	fa, fb := flatten(a), flatten(b)
	out := make([]float64, len(fa))
	for i := range fa {
		out[i] = fa[i] + (fb[i]-fa[i])*alpha
	}
	v, err := unflatten(ta, out)
	if err != nil {
		return a
	}
	return v
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

func parseFloat(s string, bits int) (float64, error) {
	switch s {
	case ".nan", ".NaN", ".NAN":
		return math.NaN(), nil
	case ".inf", "+.inf", ".Inf":
		return math.Inf(1), nil
	case "-.inf", "-.Inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, bits)
}

func floatNode(f float64, bits int) *yaml.Node {
	// untagged so integral values print as plain 1 instead of !!float 1
	return &yaml.Node{Kind: yaml.ScalarNode, Value: formatFloat(f, bits)}
}

func encodeValue(t ValueType, v any) (*yaml.Node, error) {
	if vt, err := ValueTypeOf(v); err != nil {
		return nil, err
	} else if vt != t {
		return nil, errors.Wrapf(ErrTypeMismatch, "%v value in %v attribute", vt, t)
	}

	switch v := v.(type) {
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}, nil
	case []string:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, s := range v {
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s})
		}
		return n, nil
	}

	f := flatten(v)
	if len(f) == 1 {
		return floatNode(f[0], t.bits()), nil
	}
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for _, c := range f {
		n.Content = append(n.Content, floatNode(c, t.bits()))
	}
	return n, nil
}

func decodeValue(t ValueType, n *yaml.Node) (any, error) {
	switch t {
	case TypeToken:
		var s string
		if err := n.Decode(&s); err != nil {
			return nil, errors.Wrapf(err, "Failed to decode token")
		}
		return s, nil
	case TypeTokenArray:
		s := []string{}
		if err := n.Decode(&s); err != nil {
			return nil, errors.Wrapf(err, "Failed to decode token array")
		}
		return s, nil
	}

	var scalars []*yaml.Node
	switch n.Kind {
	case yaml.ScalarNode:
		scalars = []*yaml.Node{n}
	case yaml.SequenceNode:
		scalars = n.Content
	default:
		return nil, errors.Errorf("line %d: unexpected node for %v", n.Line, t)
	}
	f := make([]float64, len(scalars))
	for i, s := range scalars {
		v, err := parseFloat(s.Value, t.bits())
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad %v component", s.Line, t)
		}
		f[i] = v
	}
	return unflatten(t, f)
}
