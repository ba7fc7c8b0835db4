package xform

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/mogaika/xformedit/sdf"
	"github.com/mogaika/xformedit/usd"
)

const (
	OpPrefix        = "xformOp:"
	InvertPrefix    = "!invert!"
	ResetXformStack = "!resetXformStack!"
	OrderAttrName   = "xformOpOrder"
)

// Suffixes of the pivot ops.
const (
	RotatePivot          = "rotatePivot"
	RotatePivotTranslate = "rotatePivotTranslate"
	ScalePivot           = "scalePivot"
	ScalePivotTranslate  = "scalePivotTranslate"
)

var (
	ErrPrecisionMismatch = errors.New("op precision mismatch")
	ErrMalformedStack    = errors.New("malformed xform op stack")
	ErrOpExists          = errors.New("xform op already in the stack")
)

type OpType int

const (
	OpInvalid OpType = iota
	OpTranslate
	OpScale
	OpRotateX
	OpRotateY
	OpRotateZ
	OpRotateXYZ
	OpRotateXZY
	OpRotateYXZ
	OpRotateYZX
	OpRotateZXY
	OpRotateZYX
	OpOrient
	OpTransform
)

var opTypeTokens = map[OpType]string{
	OpTranslate: "translate",
	OpScale:     "scale",
	OpRotateX:   "rotateX",
	OpRotateY:   "rotateY",
	OpRotateZ:   "rotateZ",
	OpRotateXYZ: "rotateXYZ",
	OpRotateXZY: "rotateXZY",
	OpRotateYXZ: "rotateYXZ",
	OpRotateYZX: "rotateYZX",
	OpRotateZXY: "rotateZXY",
	OpRotateZYX: "rotateZYX",
	OpOrient:    "orient",
	OpTransform: "transform",
}

func (t OpType) String() string {
	if s, ok := opTypeTokens[t]; ok {
		return s
	}
	return "invalid"
}

func ParseOpType(token string) OpType {
	for t, s := range opTypeTokens {
		if s == token {
			return t
		}
	}
	return OpInvalid
}

func (t OpType) IsRotate() bool {
	return t >= OpRotateX && t <= OpOrient
}

type Precision int

const (
	PrecisionDouble Precision = iota
	PrecisionFloat
	PrecisionHalf
)

func (p Precision) String() string {
	switch p {
	case PrecisionHalf:
		return "half"
	case PrecisionFloat:
		return "float"
	default:
		return "double"
	}
}

// ValueTypeFor is the attribute type an op of type t authored in precision p holds.
func ValueTypeFor(t OpType, p Precision) (sdf.ValueType, error) {
	pick := func(h, f, d sdf.ValueType) (sdf.ValueType, error) {
		switch p {
		case PrecisionHalf:
			return h, nil
		case PrecisionFloat:
			return f, nil
		default:
			return d, nil
		}
	}
	switch t {
	case OpTranslate, OpScale, OpRotateXYZ, OpRotateXZY, OpRotateYXZ, OpRotateYZX, OpRotateZXY, OpRotateZYX:
		return pick(sdf.TypeHalf3, sdf.TypeFloat3, sdf.TypeDouble3)
	case OpRotateX, OpRotateY, OpRotateZ:
		return pick(sdf.TypeHalf, sdf.TypeFloat, sdf.TypeDouble)
	case OpOrient:
		return pick(sdf.TypeQuath, sdf.TypeQuatf, sdf.TypeQuatd)
	case OpTransform:
		if p != PrecisionDouble {
			return "", errors.Wrapf(ErrPrecisionMismatch, "transform ops are double only, got %v", p)
		}
		return sdf.TypeMatrix4d, nil
	}
	return "", errors.Errorf("invalid op type %v", t)
}

func precisionOf(t OpType, vt sdf.ValueType) (Precision, error) {
	for _, p := range []Precision{PrecisionDouble, PrecisionFloat, PrecisionHalf} {
		if want, err := ValueTypeFor(t, p); err == nil && want == vt {
			return p, nil
		}
	}
	return 0, errors.Wrapf(ErrPrecisionMismatch, "%v op cannot hold %v", t, vt)
}

// OpAttrName builds "xformOp:<type>[:<suffix>]".
func OpAttrName(t OpType, suffix string) string {
	name := OpPrefix + t.String()
	if suffix != "" {
		name += ":" + suffix
	}
	return name
}

// ParseOpName splits an order token into its attribute name, op type, suffix
// and inverse flag.
func ParseOpName(token string) (attrName string, t OpType, suffix string, inverse bool, err error) {
	attrName = token
	if strings.HasPrefix(attrName, InvertPrefix) {
		inverse = true
		attrName = attrName[len(InvertPrefix):]
	}
	if !strings.HasPrefix(attrName, OpPrefix) {
		return "", OpInvalid, "", false, errors.Wrapf(ErrMalformedStack, "%q is not an xform op", token)
	}
	rest := attrName[len(OpPrefix):]
	typeToken := rest
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		typeToken, suffix = rest[:i], rest[i+1:]
	}
	if t = ParseOpType(typeToken); t == OpInvalid {
		return "", OpInvalid, "", false, errors.Wrapf(ErrMalformedStack, "%q has unknown op type %q", token, typeToken)
	}
	return attrName, t, suffix, inverse, nil
}

// Op is one entry of a prim's op stack.
type Op struct {
	attr      usd.Attribute
	opType    OpType
	precision Precision
	suffix    string
	inverse   bool
}

// MakeOp binds an existing op attribute.
func MakeOp(attr usd.Attribute, inverse bool) (Op, error) {
	_, t, suffix, _, err := ParseOpName(attr.Name())
	if err != nil {
		return Op{}, err
	}
	if !attr.IsValid() {
		return Op{}, errors.Wrapf(ErrMalformedStack, "%v has no attribute %q", attr.Prim().Path(), attr.Name())
	}
	p, err := precisionOf(t, attr.TypeName())
	if err != nil {
		return Op{}, errors.Wrapf(err, "%v.%v", attr.Prim().Path(), attr.Name())
	}
	return Op{attr: attr, opType: t, precision: p, suffix: suffix, inverse: inverse}, nil
}

func (o Op) Attr() usd.Attribute  { return o.attr }
func (o Op) AttrName() string     { return o.attr.Name() }
func (o Op) OpType() OpType       { return o.opType }
func (o Op) Precision() Precision { return o.precision }
func (o Op) Suffix() string       { return o.suffix }
func (o Op) IsInverse() bool      { return o.inverse }
func (o Op) NumTimeSamples() int  { return o.attr.NumTimeSamples() }

// Name is the token the op occupies in xformOpOrder.
func (o Op) Name() string {
	if o.inverse {
		return InvertPrefix + o.attr.Name()
	}
	return o.attr.Name()
}

func (o Op) Get(t usd.TimeCode) (any, bool) {
	return o.attr.Get(t)
}

// ValueType is the declared type that writes must keep.
func (o Op) ValueType() sdf.ValueType {
	vt, _ := ValueTypeFor(o.opType, o.precision)
	return vt
}

// Set writes v at t. The value must match the op's authored precision.
func (o Op) Set(v any, t usd.TimeCode) error {
	vt, err := sdf.ValueTypeOf(v)
	if err != nil {
		return err
	}
	if vt != o.ValueType() {
		return errors.Wrapf(ErrPrecisionMismatch, "%v holds %v, got %v", o.Name(), o.ValueType(), vt)
	}
	return o.attr.Set(v, t)
}

// AsVec3d widens half3, float3 and double3 values.
func AsVec3d(v any) (mgl64.Vec3, bool) {
	switch v := v.(type) {
	case sdf.Vec3h:
		f := v.Vec3()
		return mgl64.Vec3{float64(f[0]), float64(f[1]), float64(f[2])}, true
	case mgl32.Vec3:
		return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}, true
	case mgl64.Vec3:
		return v, true
	}
	return mgl64.Vec3{}, false
}

// Vec3InPrecision narrows v to the 3-vector type of precision p.
func Vec3InPrecision(v mgl64.Vec3, p Precision) any {
	switch p {
	case PrecisionHalf:
		return sdf.NewVec3h(float32(v[0]), float32(v[1]), float32(v[2]))
	case PrecisionFloat:
		return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
	default:
		return v
	}
}

func asScalar(v any) (float64, bool) {
	switch v := v.(type) {
	case float16.Float16:
		return float64(v.Float32()), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func asQuat(v any) (mgl64.Quat, bool) {
	var q mgl32.Quat
	switch v := v.(type) {
	case mgl64.Quat:
		return v, true
	case mgl32.Quat:
		q = v
	case sdf.Quath:
		q = v.Quat()
	default:
		return mgl64.Quat{}, false
	}
	return mgl64.Quat{W: float64(q.W), V: mgl64.Vec3{float64(q.V[0]), float64(q.V[1]), float64(q.V[2])}}, true
}

func axisRotation(axis byte, degrees float64) mgl64.Mat4 {
	rad := mgl64.DegToRad(degrees)
	switch axis {
	case 'X':
		return mgl64.HomogRotate3DX(rad)
	case 'Y':
		return mgl64.HomogRotate3DY(rad)
	default:
		return mgl64.HomogRotate3DZ(rad)
	}
}

// GetOpTransform evaluates the op's matrix at t. An op without a value is
// the identity.
func (o Op) GetOpTransform(t usd.TimeCode) (mgl64.Mat4, error) {
	v, ok := o.attr.Get(t)
	if !ok {
		return mgl64.Ident4(), nil
	}

	var m mgl64.Mat4
	switch o.opType {
	case OpTranslate, OpScale:
		vec, ok := AsVec3d(v)
		if !ok {
			return m, errors.Errorf("%v: unexpected value %T", o.Name(), v)
		}
		if o.opType == OpTranslate {
			if o.inverse {
				vec = vec.Mul(-1)
			}
			return mgl64.Translate3D(vec[0], vec[1], vec[2]), nil
		}
		m = mgl64.Scale3D(vec[0], vec[1], vec[2])
	case OpRotateX, OpRotateY, OpRotateZ:
		angle, ok := asScalar(v)
		if !ok {
			return m, errors.Errorf("%v: unexpected value %T", o.Name(), v)
		}
		m = axisRotation(o.opType.String()[len("rotate")], angle)
	case OpRotateXYZ, OpRotateXZY, OpRotateYXZ, OpRotateYZX, OpRotateZXY, OpRotateZYX:
		angles, ok := AsVec3d(v)
		if !ok {
			return m, errors.Errorf("%v: unexpected value %T", o.Name(), v)
		}
		// the first named axis applies first
		axes := o.opType.String()[len("rotate"):]
		m = mgl64.Ident4()
		for i := 0; i < 3; i++ {
			axis := axes[i]
			m = axisRotation(axis, angles[strings.IndexByte("XYZ", axis)]).Mul4(m)
		}
	case OpOrient:
		q, ok := asQuat(v)
		if !ok {
			return m, errors.Errorf("%v: unexpected value %T", o.Name(), v)
		}
		m = q.Normalize().Mat4()
	case OpTransform:
		mat, ok := v.(mgl64.Mat4)
		if !ok {
			return m, errors.Errorf("%v: unexpected value %T", o.Name(), v)
		}
		m = mat
	default:
		return m, errors.Errorf("%v: invalid op", o.Name())
	}

	if !o.inverse {
		return m, nil
	}
	if o.opType.IsRotate() {
		return m.Transpose(), nil
	}
	if det := m.Det(); math.Abs(det) < 1e-12 {
		return m, errors.Errorf("%v: cannot invert singular matrix", o.Name())
	}
	return m.Inv(), nil
}
