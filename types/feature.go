package types

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// FeatureKind distinguishes fixed-length from variable-length record features.
type FeatureKind int

const (
	FixedLen FeatureKind = iota
	VarLen
)

// String implements fmt.Stringer.
func (k FeatureKind) String() string {
	switch k {
	case FixedLen:
		return "fixed_len"
	case VarLen:
		return "var_len"
	}
	return fmt.Sprintf("FeatureKind(%d)", int(k))
}

// Feature describes how one named feature of a serialized record is parsed: its kind, element type,
// shape (fixed-length only) and the default used when a record lacks it.
type Feature struct {
	Kind  FeatureKind
	Type  ArgType // ArgInt64, ArgFloat or ArgString.
	Shape []int

	// Default is nil, or a value converted to Type (scalar) or to its list type (flattened).
	Default any
}

func checkFeatureType(t ArgType) error {
	switch t {
	case ArgInt64, ArgFloat, ArgString:
		return nil
	}
	return errors.Errorf("record features must be of type int64, float or string, got %s", t)
}

// FixedLenFeature creates a fixed-length feature.
//
// If shape is nil and a default is given, the shape is inferred from the default: scalars have
// shape [], slices (possibly nested) have one dimension per nesting level.
func FixedLenFeature(shape []int, t ArgType, defaultValue any) (Feature, error) {
	if err := checkFeatureType(t); err != nil {
		return Feature{}, err
	}
	f := Feature{Kind: FixedLen, Type: t, Shape: slices.Clone(shape)}
	if defaultValue == nil {
		return f, nil
	}
	dims, flat, err := shapeAndFlatten(reflect.ValueOf(defaultValue))
	if err != nil {
		return Feature{}, errors.WithMessagef(err, "invalid default for fixed length feature")
	}
	if f.Shape == nil {
		f.Shape = dims
	}
	f.Default, err = convertFeatureDefault(t, dims, flat)
	if err != nil {
		return Feature{}, err
	}
	return f, nil
}

// VarLenFeature creates a variable-length feature.
func VarLenFeature(t ArgType, defaultValue any) (Feature, error) {
	if err := checkFeatureType(t); err != nil {
		return Feature{}, err
	}
	f := Feature{Kind: VarLen, Type: t}
	if defaultValue == nil {
		return f, nil
	}
	dims, flat, err := shapeAndFlatten(reflect.ValueOf(defaultValue))
	if err != nil {
		return Feature{}, errors.WithMessagef(err, "invalid default for variable length feature")
	}
	f.Default, err = convertFeatureDefault(t, dims, flat)
	if err != nil {
		return Feature{}, err
	}
	return f, nil
}

func convertFeatureDefault(t ArgType, dims []int, flat []any) (any, error) {
	if len(dims) == 0 {
		return ConvertValue(t, flat[0])
	}
	return ConvertValue(t.ListOf(), flat)
}

// DType returns the data type of the parsed feature values, or dtypes.InvalidDType for strings.
func (f Feature) DType() dtypes.DType {
	switch f.Type {
	case ArgInt64:
		return dtypes.Int64
	case ArgFloat:
		return dtypes.Float32
	}
	return dtypes.InvalidDType
}

// ToText returns the representation of the feature in serialized specs.
func (f Feature) ToText() string {
	var sb strings.Builder
	sb.WriteString(f.Kind.String())
	sb.WriteString("<")
	if f.Kind == FixedLen {
		_, _ = fmt.Fprintf(&sb, "%v, ", f.Shape)
	}
	sb.WriteString(f.Type.String())
	if f.Default != nil {
		_, _ = fmt.Fprintf(&sb, ", default = %v", f.Default)
	}
	sb.WriteString(">")
	return sb.String()
}

// ToMap returns the feature as a map of plain values, used for structured serialization.
func (f Feature) ToMap() map[string]any {
	m := map[string]any{
		"kind": f.Kind.String(),
		"type": f.Type.String(),
	}
	if f.Kind == FixedLen {
		shape := make([]any, len(f.Shape))
		for i, d := range f.Shape {
			shape[i] = d
		}
		m["shape"] = shape
	}
	if f.Default != nil {
		m["default"] = f.Default
	}
	return m
}

// shapeAndFlatten returns the dimensions of a (possibly nested) slice and its elements in row-major order.
// Scalars have no dimensions and a single element.
func shapeAndFlatten(v reflect.Value) (dims []int, flat []any, err error) {
	for v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, []any{v.Interface()}, nil
	}
	if v.Len() == 0 {
		return nil, nil, errors.Errorf("value with empty slice not valid: %T: %v -- it wouldn't be possible to figure out the inner dimensions", v.Interface(), v)
	}

	// The first element is the reference.
	innerDims, flat, err := shapeAndFlatten(v.Index(0))
	if err != nil {
		return nil, nil, err
	}
	for ii := 1; ii < v.Len(); ii++ {
		elemDims, elemFlat, err := shapeAndFlatten(v.Index(ii))
		if err != nil {
			return nil, nil, err
		}
		if !slices.Equal(innerDims, elemDims) {
			return nil, nil, errors.Errorf("sub-slices have irregular shapes, found shapes %v, and %v", innerDims, elemDims)
		}
		flat = append(flat, elemFlat...)
	}
	return append([]int{v.Len()}, innerDims...), flat, nil
}
