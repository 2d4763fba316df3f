// Package spec holds OpSpec, the serializable description of one node of an operator graph: the
// schema it instantiates, its literal arguments, its argument inputs, and its input and output edges.
//
// An OpSpec is what is handed to the execution engine. It knows nothing about graphs or operators,
// edges are referenced only by name.
package spec

import (
	"slices"

	"github.com/gomlx/opgraph/types"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// EdgeSpec is the declaration of one input or output edge of a node: its unique name and the device
// where its data lives.
type EdgeSpec struct {
	Name   string
	Device types.Device
}

// ArgumentInput is an argument whose value is fed per sample by an edge instead of a literal.
type ArgumentInput struct {
	Arg  string
	Edge string
}

// OpSpec accumulates the arguments, inputs and outputs of one node.
//
// Arguments are kept in insertion order, so the serialized form is reproducible.
type OpSpec struct {
	schemaName string
	args       *orderedmap.OrderedMap[string, any]
	argInputs  []ArgumentInput
	inputs     []EdgeSpec
	outputs    []EdgeSpec
}

// New creates an empty OpSpec for the schema with the given name.
func New(schemaName string) *OpSpec {
	return &OpSpec{
		schemaName: schemaName,
		args:       orderedmap.New[string, any](),
	}
}

// SchemaName returns the name of the schema this spec instantiates.
func (s *OpSpec) SchemaName() string {
	return s.schemaName
}

// AddArg sets the literal value of an argument. Setting an argument twice replaces the value but
// keeps its original position.
//
// It returns the spec itself, so calls can be chained.
func (s *OpSpec) AddArg(name string, value any) *OpSpec {
	s.args.Set(name, value)
	return s
}

// Arg returns the literal value of an argument, if it is set.
func (s *OpSpec) Arg(name string) (value any, found bool) {
	return s.args.Get(name)
}

// HasArg returns whether the argument is set, either as a literal or as an argument input.
func (s *OpSpec) HasArg(name string) bool {
	if _, found := s.args.Get(name); found {
		return true
	}
	return s.HasArgumentInput(name)
}

// ArgNames returns the names of the literal arguments, in insertion order.
func (s *OpSpec) ArgNames() []string {
	names := make([]string, 0, s.args.Len())
	for pair := s.args.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// NumArgs returns the number of literal arguments.
func (s *OpSpec) NumArgs() int {
	return s.args.Len()
}

// AddArgumentInput declares that the value of the argument argName is fed by the edge edgeName.
// The edge is also appended to the inputs, on the CPU.
func (s *OpSpec) AddArgumentInput(argName, edgeName string) *OpSpec {
	s.argInputs = append(s.argInputs, ArgumentInput{Arg: argName, Edge: edgeName})
	s.inputs = append(s.inputs, EdgeSpec{Name: edgeName, Device: types.CPU})
	return s
}

// HasArgumentInput returns whether the argument is fed by an edge.
func (s *OpSpec) HasArgumentInput(argName string) bool {
	return slices.ContainsFunc(s.argInputs, func(ai ArgumentInput) bool { return ai.Arg == argName })
}

// ArgumentInputs returns the argument inputs, in the order they were added.
func (s *OpSpec) ArgumentInputs() []ArgumentInput {
	return slices.Clone(s.argInputs)
}

// AddInput appends an input edge.
func (s *OpSpec) AddInput(edgeName string, device types.Device) *OpSpec {
	s.inputs = append(s.inputs, EdgeSpec{Name: edgeName, Device: device})
	return s
}

// AddOutput appends an output edge.
func (s *OpSpec) AddOutput(edgeName string, device types.Device) *OpSpec {
	s.outputs = append(s.outputs, EdgeSpec{Name: edgeName, Device: device})
	return s
}

// Inputs returns all input edges, positional and argument inputs, in the order they were added.
func (s *OpSpec) Inputs() []EdgeSpec {
	return slices.Clone(s.inputs)
}

// NumInputs returns the number of input edges, including argument inputs.
func (s *OpSpec) NumInputs() int {
	return len(s.inputs)
}

// NumRegularInputs returns the number of positional input edges, that is, excluding argument inputs.
func (s *OpSpec) NumRegularInputs() int {
	return len(s.inputs) - len(s.argInputs)
}

// Outputs returns the output edges, in index order.
func (s *OpSpec) Outputs() []EdgeSpec {
	return slices.Clone(s.outputs)
}

// NumOutputs returns the number of declared output edges.
func (s *OpSpec) NumOutputs() int {
	return len(s.outputs)
}

// Copy returns an independent copy of the spec: changes to the copy don't affect the original.
//
// Argument values themselves are shared: they are converted literals and are never mutated.
func (s *OpSpec) Copy() *OpSpec {
	c := New(s.schemaName)
	for pair := s.args.Oldest(); pair != nil; pair = pair.Next() {
		c.args.Set(pair.Key, pair.Value)
	}
	c.argInputs = slices.Clone(s.argInputs)
	c.inputs = slices.Clone(s.inputs)
	c.outputs = slices.Clone(s.outputs)
	return c
}
