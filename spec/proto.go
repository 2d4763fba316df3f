package spec

import (
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

type hasToMap interface {
	ToMap() map[string]any
}

// ToProto converts the spec to a protobuf Struct, the structured form handed to the execution engine:
//
//	{"schema": "...", "args": {...}, "arg_order": [...], "argument_inputs": {...}, "inputs": [...], "outputs": [...]}
//
// Since Struct fields are unordered, "arg_order" lists the literal arguments in insertion order.
// Data types are converted to their names, and numbers to doubles.
func (s *OpSpec) ToProto() (*structpb.Struct, error) {
	args := make(map[string]any, s.args.Len())
	order := make([]any, 0, s.args.Len())
	for pair := s.args.Oldest(); pair != nil; pair = pair.Next() {
		v, err := toProtoValue(pair.Value)
		if err != nil {
			return nil, errors.WithMessagef(err, "argument %q of %q", pair.Key, s.schemaName)
		}
		args[pair.Key] = v
		order = append(order, pair.Key)
	}
	argInputs := make(map[string]any, len(s.argInputs))
	for _, ai := range s.argInputs {
		argInputs[ai.Arg] = ai.Edge
	}
	m := map[string]any{
		"schema":          s.schemaName,
		"args":            args,
		"arg_order":       order,
		"argument_inputs": argInputs,
		"inputs":          edgesToProto(s.inputs),
		"outputs":         edgesToProto(s.outputs),
	}
	pb, err := structpb.NewStruct(m)
	if err != nil {
		return nil, errors.Wrapf(err, "converting spec of %q to protobuf", s.schemaName)
	}
	return pb, nil
}

func edgesToProto(edges []EdgeSpec) []any {
	list := make([]any, len(edges))
	for i, e := range edges {
		list[i] = map[string]any{"name": e.Name, "device": e.Device.String()}
	}
	return list
}

// toProtoValue converts a literal to the plain values accepted by structpb.NewValue.
func toProtoValue(value any) (any, error) {
	switch v := value.(type) {
	case nil, bool, string, int, int32, int64, uint32, uint64, float32, float64:
		return v, nil
	case dtypes.DType:
		return v.String(), nil
	case hasToMap:
		return toProtoValue(v.ToMap())
	case map[string]any:
		m := make(map[string]any, len(v))
		for key, elem := range v {
			converted, err := toProtoValue(elem)
			if err != nil {
				return nil, errors.WithMessagef(err, "key %q", key)
			}
			m[key] = converted
		}
		return m, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := make([]any, rv.Len())
		for i := range list {
			converted, err := toProtoValue(rv.Index(i).Interface())
			if err != nil {
				return nil, errors.WithMessagef(err, "element %d", i)
			}
			list[i] = converted
		}
		return list, nil
	case reflect.Int8, reflect.Int16:
		return rv.Int(), nil
	case reflect.Uint8, reflect.Uint16:
		return rv.Uint(), nil
	}
	return nil, errors.Errorf("literal of type %T cannot be serialized", value)
}
