package types

import (
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/opgraph/internal/utils"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ArgType is the declared type of an operator argument in its schema.
//
// Literal argument values are converted to the Go type of their ArgType before being recorded in
// a spec: int64, float32, bool, string, the corresponding slices, dtypes.DType or []Feature.
type ArgType int

//go:generate go tool enumer -type=ArgType -trimprefix=Arg -transform=snake -output=gen_argtype_enumer.go argtype.go

const (
	ArgInt64 ArgType = iota
	ArgFloat
	ArgBool
	ArgString
	ArgInt64Vec
	ArgFloatVec
	ArgBoolVec
	ArgStringVec
	ArgDataType
	ArgFeatureVec
)

// IsList returns whether values of this type are lists.
func (t ArgType) IsList() bool {
	switch t {
	case ArgInt64Vec, ArgFloatVec, ArgBoolVec, ArgStringVec, ArgFeatureVec:
		return true
	}
	return false
}

// Elem returns the element type of a list type, or t itself for scalar types.
func (t ArgType) Elem() ArgType {
	switch t {
	case ArgInt64Vec:
		return ArgInt64
	case ArgFloatVec:
		return ArgFloat
	case ArgBoolVec:
		return ArgBool
	case ArgStringVec:
		return ArgString
	}
	return t
}

// ListOf returns the list type whose elements are of type t. It returns t for types that have no list form.
func (t ArgType) ListOf() ArgType {
	switch t {
	case ArgInt64:
		return ArgInt64Vec
	case ArgFloat:
		return ArgFloatVec
	case ArgBool:
		return ArgBoolVec
	case ArgString:
		return ArgStringVec
	}
	return t
}

// CtyType returns the cty type used to convert values to this ArgType.
// Data types are represented by their names.
func (t ArgType) CtyType() cty.Type {
	switch t {
	case ArgInt64, ArgFloat:
		return cty.Number
	case ArgBool:
		return cty.Bool
	case ArgString, ArgDataType:
		return cty.String
	case ArgInt64Vec, ArgFloatVec:
		return cty.List(cty.Number)
	case ArgBoolVec:
		return cty.List(cty.Bool)
	case ArgStringVec:
		return cty.List(cty.String)
	}
	return cty.DynamicPseudoType
}

// DocName returns the human-readable type name used in operator documentation.
// Tensor arguments can also be fed per sample from another operator's output.
func (t ArgType) DocName(isTensor bool) string {
	var name string
	switch t {
	case ArgInt64:
		name = "int"
	case ArgFloat:
		name = "float"
	case ArgBool:
		name = "bool"
	case ArgString:
		name = "str"
	case ArgDataType:
		name = "data type"
	case ArgFeatureVec:
		name = "list of record features"
	default:
		if t.IsList() {
			elem := t.Elem().DocName(false)
			name = elem + " or list of " + elem
		} else {
			name = t.String()
		}
	}
	if isTensor {
		name += " or TensorList of " + t.Elem().DocName(false)
	}
	return name
}

// goType returns a pointer to a new zero value of the Go type holding values of t.
func (t ArgType) goType() any {
	switch t {
	case ArgInt64:
		return new(int64)
	case ArgFloat:
		return new(float32)
	case ArgBool:
		return new(bool)
	case ArgString:
		return new(string)
	case ArgInt64Vec:
		return new([]int64)
	case ArgFloatVec:
		return new([]float32)
	case ArgBoolVec:
		return new([]bool)
	case ArgStringVec:
		return new([]string)
	}
	return nil
}

// ToCty converts a Go literal (scalars, slices of scalars, slices of any, or a cty.Value) to a cty.Value.
func ToCty(v any) (cty.Value, error) {
	switch tv := v.(type) {
	case nil:
		return cty.NilVal, errors.New("nil value")
	case cty.Value:
		return tv, nil
	case dtypes.DType:
		return cty.StringVal(tv.String()), nil
	case float32:
		if math.IsNaN(float64(tv)) {
			return cty.NilVal, errors.New("NaN is not a valid number")
		}
	case float64:
		if math.IsNaN(tv) {
			return cty.NilVal, errors.New("NaN is not a valid number")
		}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		elems := make([]cty.Value, rv.Len())
		for i := range elems {
			elem, err := ToCty(rv.Index(i).Interface())
			if err != nil {
				return cty.NilVal, errors.WithMessagef(err, "element %d", i)
			}
			elems[i] = elem
		}
		return cty.TupleVal(elems), nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, errors.Wrapf(err, "unable to infer a type for %T", v)
	}
	return gocty.ToCtyValue(v, ty)
}

// ConvertValue converts a Go literal to the Go representation of the given ArgType.
// Single values given for list types are promoted to one-element lists.
func ConvertValue(t ArgType, v any) (any, error) {
	switch t {
	case ArgDataType:
		if dtype, ok := v.(dtypes.DType); ok {
			return dtype, nil
		}
	case ArgFeatureVec:
		switch features := v.(type) {
		case Feature:
			return []Feature{features}, nil
		case []Feature:
			return slices.Clone(features), nil
		}
		return nil, errors.Errorf("cannot convert %T to %s", v, t)
	}
	val, err := ToCty(v)
	if err != nil {
		return nil, err
	}
	return FromCty(t, val)
}

// FromCty converts a cty.Value to the Go representation of the given ArgType.
func FromCty(t ArgType, val cty.Value) (any, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, errors.Errorf("cannot convert a null or unknown value to %s", t)
	}
	if t.IsList() && !val.Type().IsListType() && !val.Type().IsTupleType() && !val.Type().IsSetType() {
		val = cty.TupleVal([]cty.Value{val})
	}
	converted, err := convert.Convert(val, t.CtyType())
	if err != nil {
		return nil, errors.Wrapf(err, "cannot convert %s to %s", val.Type().FriendlyName(), t)
	}
	if t == ArgDataType {
		return ParseDType(converted.AsString())
	}
	target := t.goType()
	if target == nil {
		return nil, errors.Errorf("unsupported argument type %s", t)
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return nil, errors.Wrapf(err, "cannot convert %s to %s", val.Type().FriendlyName(), t)
	}
	return reflect.ValueOf(target).Elem().Interface(), nil
}

// knownDTypes lists the data types accepted by ParseDType.
var knownDTypes = []dtypes.DType{
	dtypes.Bool,
	dtypes.Int8, dtypes.Int16, dtypes.Int32, dtypes.Int64,
	dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64,
	dtypes.Float16, dtypes.BFloat16, dtypes.Float32, dtypes.Float64,
}

// ParseDType parses a data type by its name ("Float32", "float32") or short name ("f32").
func ParseDType(name string) (dtypes.DType, error) {
	name = strings.TrimSpace(name)
	for _, dtype := range knownDTypes {
		if strings.EqualFold(dtype.String(), name) || utils.DTypeToText(dtype) == strings.ToLower(name) {
			return dtype, nil
		}
	}
	return dtypes.InvalidDType, errors.Errorf("unknown data type %q", name)
}
