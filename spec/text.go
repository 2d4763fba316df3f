package spec

import (
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/opgraph/internal/utils"
)

// Write writes a one-line textual representation of the spec to the given writer, in the form:
//
//	%out0, %out1 = "Schema"(%in0, %in1) {arg = value, arg_input = %edge} : (cpu, cpu) -> (gpu, gpu)
//
// The indentation is written before the line. Literal arguments are written in insertion order,
// followed by the argument inputs.
func (s *OpSpec) Write(writer io.Writer, indentation string) error {
	var err error
	w := func(format string, args ...any) {
		if err != nil {
			// No op if an error was encountered earlier
			return
		}
		_, err = fmt.Fprintf(writer, format, args...)
	}

	w("%s", indentation)
	if len(s.outputs) > 0 {
		for i, output := range s.outputs {
			if i > 0 {
				w(", ")
			}
			w("%%%s", output.Name)
		}
		w(" = ")
	}

	// Positional inputs only: argument inputs are written as arguments.
	w("%q(", s.schemaName)
	regular := s.regularInputs()
	for i, input := range regular {
		if i > 0 {
			w(", ")
		}
		w("%%%s", input.Name)
	}
	w(")")

	if s.args.Len() > 0 || len(s.argInputs) > 0 {
		w(" {")
		first := true
		for pair := s.args.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				w(", ")
			}
			first = false
			w("%s = %s", pair.Key, LiteralToText(pair.Value))
		}
		for _, ai := range s.argInputs {
			if !first {
				w(", ")
			}
			first = false
			w("%s = %%%s", ai.Arg, ai.Edge)
		}
		w("}")
	}

	// Signature: devices of the inputs and outputs.
	w(" : (")
	for i, input := range s.inputs {
		if i > 0 {
			w(", ")
		}
		w("%s", input.Device)
	}
	w(") -> ")
	if len(s.outputs) != 1 {
		w("(")
	}
	for i, output := range s.outputs {
		if i > 0 {
			w(", ")
		}
		w("%s", output.Device)
	}
	if len(s.outputs) != 1 {
		w(")")
	}
	return err
}

// String implements fmt.Stringer.
func (s *OpSpec) String() string {
	var sb strings.Builder
	_ = s.Write(&sb, "")
	return sb.String()
}

// regularInputs returns the inputs that are not argument inputs.
// Argument inputs are always appended after the positional ones.
func (s *OpSpec) regularInputs() []EdgeSpec {
	return s.inputs[:s.NumRegularInputs()]
}

type hasToText interface {
	ToText() string
}

// LiteralToText converts a literal argument value to its textual representation.
//
// Scalars are annotated with their type ("3 : i64", "0.5 : f32"), numeric and boolean lists are written
// as typed arrays ("array<i64: 1, 2>"), and values implementing ToText() use it.
func LiteralToText(value any) string {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case float32:
		return floatToText(float64(v)) + " : " + utils.DTypeToText(dtypes.Float32)
	case float64:
		return floatToText(v) + " : " + utils.DTypeToText(dtypes.Float64)
	case int, int8, int16, int32, int64, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d : %s", v, utils.DTypeToText(dtypes.FromAny(v)))
	case bool:
		if v {
			return "true"
		}
		return "false"
	case dtypes.DType:
		return utils.DTypeToText(v)
	case hasToText:
		return v.ToText()

	case []int64:
		return arrayToText(dtypes.Int64, v, func(x int64) string { return fmt.Sprintf("%d", x) })
	case []float32:
		return arrayToText(dtypes.Float32, v, func(x float32) string { return floatToText(float64(x)) })
	case []bool:
		return arrayToText(dtypes.Bool, v, func(x bool) string { return LiteralToText(x) })
	case []string:
		return listToText(v)

	default:
		if values, ok := value.([]any); ok {
			return listToText(values)
		}
		if elems, ok := sliceToAny(value); ok {
			return listToText(elems)
		}
		return fmt.Sprintf("Unknown literal type: %T %#v", v, v)
	}
}

// floatToText makes sure whole numbers are written with a decimal point.
func floatToText(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return fmt.Sprintf("%.1f", f)
	}
	return fmt.Sprintf("%g", f)
}

func arrayToText[T any](dtype dtypes.DType, values []T, elemToText func(T) string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = elemToText(v)
	}
	return fmt.Sprintf("array<%s: %s>", utils.DTypeToText(dtype), strings.Join(parts, ", "))
}

func listToText[T any](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = LiteralToText(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// sliceToAny converts slices of any other type (e.g. features) to []any.
func sliceToAny(value any) ([]any, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, true
}
