package opgraph

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/gomlx/opgraph/schema"
	"github.com/gomlx/opgraph/spec"
	"github.com/gomlx/opgraph/types"
	"github.com/pkg/errors"
)

// instanceBuilder builds one node: it validates the inputs and arguments of a call, builds the
// node's spec, assigns its id and creates its outputs with the given policy.
type instanceBuilder struct {
	graph *Graph

	// typeName is used in the node default name and in errors, edgePrefix in the edge names.
	typeName, edgePrefix string

	affinity types.DeviceAffinity
	preserve bool
	schema   schema.Schema

	// base spec, with the construction arguments, it is copied.
	base *spec.OpSpec

	inputs []Input
	kwargs Args
	name   string

	// extraArgs, if set, adds arguments after the call arguments, before validation.
	extraArgs func(sp *spec.OpSpec) error

	outputs outputPolicy
}

// build runs, in order: arity check, classification of the positional inputs, argument inputs and
// literals (sorted by name), deprecation warning, id assignment, schema validation and output
// generation. The node and its sinks are only added to the graph if everything succeeds.
func (b *instanceBuilder) build() (*Node, error) {
	if b.graph == nil {
		return nil, errors.Errorf("operator %s called without a graph", b.typeName)
	}
	s := b.schema
	if numInputs := len(b.inputs); numInputs < s.MinNumInput() || numInputs > s.MaxNumInput() {
		return nil, errors.WithStack(&InputArityError{Op: b.typeName, Min: s.MinNumInput(), Max: s.MaxNumInput(), Got: numInputs})
	}

	sp := b.base.Copy()
	inputs, err := b.addInputs(sp)
	if err != nil {
		return nil, err
	}
	argInputs, err := b.addKwargs(sp)
	if err != nil {
		return nil, err
	}
	// Argument inputs grow the inputs after the arity check.
	inputs = append(inputs, argInputs...)
	if b.extraArgs != nil {
		if err := b.extraArgs(sp); err != nil {
			return nil, err
		}
	}

	if s.IsDeprecated() {
		keysAndValues := []any{"operator", b.typeName}
		if inFavorOf := s.DeprecatedInFavorOf(); inFavorOf != "" {
			keysAndValues = append(keysAndValues, "use_instead", inFavorOf)
		}
		b.graph.logger.Info("operator is deprecated", keysAndValues...)
	}

	n := &Node{
		id:       newNodeID(),
		name:     b.name,
		opType:   b.typeName,
		device:   b.affinity,
		preserve: b.preserve,
		inputs:   inputs,
		spec:     sp,
	}
	if n.name == "" {
		n.name = fmt.Sprintf("__%s_%d", b.typeName, n.id)
	}
	if err := s.CheckArgs(sp); err != nil {
		return nil, errors.WithStack(&SchemaValidationError{Op: b.typeName, Err: err})
	}
	sinks, err := b.outputs(b, n)
	if err != nil {
		return nil, err
	}

	b.graph.newNode(n)
	for _, e := range sinks {
		b.graph.addSink(e)
	}
	return n, nil
}

func (b *instanceBuilder) inputTypeError(input, format string, args ...any) error {
	return errors.WithStack(&InputTypeError{Op: b.typeName, Input: input, Got: fmt.Sprintf(format, args...)})
}

// addInputs classifies the positional inputs, validates them and adds them to the spec.
//
// Input sets are added set-major: element 0 of every input, then element 1, etc. The number of
// sets is recorded as the num_input_sets argument.
func (b *instanceBuilder) addInputs(sp *spec.OpSpec) ([]*Edge, error) {
	if len(b.inputs) == 0 {
		return nil, nil
	}
	switch first := b.inputs[0].(type) {
	case *Edge:
		edges := make([]*Edge, len(b.inputs))
		for i, input := range b.inputs {
			e, ok := input.(*Edge)
			if !ok {
				return nil, b.inputTypeError(fmt.Sprintf("input %d", i),
					"expected an edge, like input 0, got %s", describeValue(input))
			}
			if err := b.graph.checkEdge(e); err != nil {
				return nil, b.inputTypeError(fmt.Sprintf("input %d", i), "%v", err)
			}
			edges[i] = e
		}
		for _, e := range edges {
			sp.AddInput(e.name, e.device)
		}
		return edges, nil

	case EdgeSet:
		length := len(first)
		if length == 0 {
			return nil, errors.WithStack(&InputShapeMismatchError{Op: b.typeName, Index: 0})
		}
		sets := make([]EdgeSet, len(b.inputs))
		for i, input := range b.inputs {
			set, ok := input.(EdgeSet)
			if !ok {
				return nil, b.inputTypeError(fmt.Sprintf("input %d", i),
					"expected an input set, like input 0, got %s", describeValue(input))
			}
			if len(set) != length {
				return nil, errors.WithStack(&InputShapeMismatchError{Op: b.typeName, Index: i, Expected: length, Got: len(set)})
			}
			for j, e := range set {
				if err := b.graph.checkEdge(e); err != nil {
					return nil, b.inputTypeError(fmt.Sprintf("input %d[%d]", i, j), "%v", err)
				}
			}
			sets[i] = set
		}
		edges := make([]*Edge, 0, length*len(sets))
		for j := range length {
			for _, set := range sets {
				edges = append(edges, set[j])
				sp.AddInput(set[j].name, set[j].device)
			}
		}
		sp.AddArg(schema.ArgNumInputSets, int64(length))
		return edges, nil

	default:
		return nil, b.inputTypeError("input 0", "expected an edge or an input set, got %s", describeValue(first))
	}
}

// addKwargs adds the call arguments to the spec, sorted by name: edges as argument inputs, other
// values as literals. It returns the edges of the argument inputs.
func (b *instanceBuilder) addKwargs(sp *spec.OpSpec) ([]*Edge, error) {
	var argInputs []*Edge
	for _, name := range sortedArgNames(b.kwargs) {
		value := b.kwargs[name]
		switch v := value.(type) {
		case *Edge:
			input := fmt.Sprintf("argument input %q", name)
			if err := b.graph.checkEdge(v); err != nil {
				return nil, b.inputTypeError(input, "%v", err)
			}
			// AddArgumentInput records the input on the cpu, so any other device would be misrecorded.
			if v.device != types.CPU {
				return nil, b.inputTypeError(input, "argument inputs must be on the cpu, got edge %s on %s", v, v.device)
			}
			sp.AddArgumentInput(name, v.name)
			argInputs = append(argInputs, v)
		case EdgeSet, []*Edge:
			return nil, b.inputTypeError(fmt.Sprintf("argument input %q", name),
				"argument inputs must be single edges, got %s", describeValue(value))
		default:
			if name == schema.ArgDevice || name == schema.ArgPreserve {
				return nil, errors.WithStack(&ArgumentTypeError{Op: b.typeName, Arg: name,
					Err: errors.New("can only be given when creating the operator")})
			}
			if err := addLiteralArg(sp, b.schema, b.typeName, name, value); err != nil {
				return nil, err
			}
		}
	}
	return argInputs, nil
}

// addLiteralArg converts the value to the type the schema declares and adds it to the spec.
// Unknown arguments are added as given: they are reported by the schema validation.
func addLiteralArg(sp *spec.OpSpec, s schema.Schema, opName, name string, value any) error {
	if isEmptyList(value) {
		return errors.WithStack(&ArgumentTypeError{Op: opName, Arg: name, Err: errors.New("list arguments need at least one element")})
	}
	argType, found := s.ArgumentType(name)
	if !found {
		sp.AddArg(name, value)
		return nil
	}
	converted, err := types.ConvertValue(argType, value)
	if err != nil {
		return errors.WithStack(&ArgumentTypeError{Op: opName, Arg: name, Err: err})
	}
	sp.AddArg(name, converted)
	return nil
}

func isEmptyList(value any) bool {
	if value == nil {
		return false
	}
	rv := reflect.ValueOf(value)
	return (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Len() == 0
}

func isEdgeValue(value any) bool {
	switch value.(type) {
	case *Edge, EdgeSet, []*Edge:
		return true
	}
	return false
}

func sortedArgNames(args Args) []string {
	return slices.Sorted(maps.Keys(args))
}
