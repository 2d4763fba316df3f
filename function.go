package opgraph

import (
	"sync/atomic"

	"github.com/gomlx/opgraph/schema"
	"github.com/gomlx/opgraph/spec"
	"github.com/gomlx/opgraph/types"
	"github.com/pkg/errors"
)

// Func is a user function run by a FunctionSink node. It receives one value per input and must return
// one value per declared output.
type Func func(inputs []any) ([]any, error)

// nextFunctionID gives each FunctionSink a process-unique function id.
var nextFunctionID atomic.Int64

// FunctionSink runs a user function on the host. Its side effects must never be lost, so all its
// outputs, or a placeholder sink if it has none, are pinned against pruning.
type FunctionSink struct {
	schema     schema.Schema
	id         int64
	fn         Func
	numOutputs int
	spec       *spec.OpSpec
}

// NewFunctionSink creates a FunctionSink running fn, which returns numOutputs values.
//
// args are other literal arguments. It always runs on the cpu, and is always preserved.
func (r *Registry) NewFunctionSink(fn Func, numOutputs int, args Args) (*FunctionSink, error) {
	s, err := r.schemas.GetSchema(schema.FunctionSinkSchemaName)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating %s", FunctionSinkName)
	}
	if fn == nil {
		return nil, errors.WithStack(&ArgumentTypeError{Op: FunctionSinkName, Arg: "function", Err: errors.New("function is nil")})
	}
	if numOutputs < 0 {
		return nil, errors.WithStack(&ArgumentTypeError{Op: FunctionSinkName, Arg: "num_outputs",
			Err: errors.Errorf("number of outputs must be non-negative, got %d", numOutputs)})
	}
	fs := &FunctionSink{
		schema:     s,
		id:         nextFunctionID.Add(1),
		fn:         fn,
		numOutputs: numOutputs,
		spec: spec.New(schema.FunctionSinkSchemaName).
			AddArg(schema.ArgDevice, types.AffinityCPU.String()).
			AddArg(schema.ArgPreserve, true),
	}
	for _, name := range sortedArgNames(args) {
		value := args[name]
		switch name {
		case schema.ArgDevice:
			if device, err := parseDevice(value); err != nil || device != types.AffinityCPU {
				return nil, errors.WithStack(&ArgumentTypeError{Op: FunctionSinkName, Arg: name,
					Err: errors.Errorf("%s only runs on the cpu, got %s", FunctionSinkName, describeValue(value))})
			}
			continue
		case schema.ArgPreserve:
			// Always preserved.
			continue
		case "function_id", "num_outputs":
			return nil, errors.WithStack(&ArgumentTypeError{Op: FunctionSinkName, Arg: name,
				Err: errors.New("is set by the function sink itself")})
		}
		if isEdgeValue(value) {
			return nil, errors.WithStack(&ArgumentTypeError{Op: FunctionSinkName, Arg: name,
				Err: errors.Errorf("%s can only be given when calling the operator", describeValue(value))})
		}
		if err := addLiteralArg(fs.spec, s, FunctionSinkName, name, value); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// ID returns the function id, recorded in the nodes as the "function_id" argument.
func (fs *FunctionSink) ID() int64 {
	return fs.id
}

// NumOutputs returns the declared number of outputs.
func (fs *FunctionSink) NumOutputs() int {
	return fs.numOutputs
}

// Call adds a node running the function to the graph, and returns its outputs, all pinned as sinks.
// With zero outputs it returns no edges and the node gets a placeholder sink.
//
// The function is registered in the graph under its id, see Graph.Function.
func (fs *FunctionSink) Call(g *Graph, inputs []Input, kwargs Args, opts ...CallOption) (Outputs, error) {
	n, err := fs.Instantiate(g, inputs, kwargs, opts...)
	if err != nil {
		return nil, err
	}
	return n.outputs, nil
}

// Instantiate is like Call, but returns the created node.
func (fs *FunctionSink) Instantiate(g *Graph, inputs []Input, kwargs Args, opts ...CallOption) (*Node, error) {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &instanceBuilder{
		graph:      g,
		typeName:   FunctionSinkName,
		edgePrefix: schema.FunctionSinkSchemaName,
		affinity:   types.AffinityCPU,
		preserve:   true,
		schema:     fs.schema,
		base:       fs.spec,
		inputs:     inputs,
		kwargs:     kwargs,
		name:       cfg.name,
		extraArgs: func(sp *spec.OpSpec) error {
			sp.AddArg("function_id", fs.id)
			sp.AddArg("num_outputs", int64(fs.numOutputs))
			return nil
		},
		outputs: pinnedOutputs(fs.numOutputs),
	}
	n, err := b.build()
	if err != nil {
		return nil, err
	}
	g.functions[fs.id] = fs.fn
	return n, nil
}

// functionIDOf returns the function id of a FunctionSink node.
func functionIDOf(n *Node) (int64, bool) {
	if n.spec.SchemaName() != schema.FunctionSinkSchemaName {
		return 0, false
	}
	value, found := n.spec.Arg("function_id")
	if !found {
		return 0, false
	}
	id, ok := value.(int64)
	return id, ok
}
