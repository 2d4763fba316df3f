package opgraph

import (
	"slices"

	"github.com/gomlx/opgraph/schema"
	"github.com/gomlx/opgraph/spec"
	"github.com/gomlx/opgraph/types"
	"github.com/pkg/errors"
)

// Args are the keyword arguments given when creating or calling an operator.
//
// Values are literals, converted to the type the schema declares for the argument, or, at call time
// only, *Edge for arguments fed per sample by another node (argument inputs).
type Args map[string]any

// Descriptor is the construction template of one operator: its name, the device classes it is
// registered for, and its schema. It is created once per operator name and reused by every Operator.
type Descriptor struct {
	name     string
	affinity types.DeviceAffinity
	devices  []types.DeviceAffinity
	schema   schema.Schema
}

// MakeDescriptor creates the descriptor of the operator described by the schema, registered for the
// given device classes.
//
// The default device of the operator is the first of cpu, mixed, gpu or support it is registered for.
func MakeDescriptor(s schema.Schema, devices ...types.DeviceAffinity) (*Descriptor, error) {
	if s == nil {
		return nil, errors.New("cannot make a descriptor without schema")
	}
	if len(devices) == 0 {
		return nil, errors.Errorf("operator %q is not registered for any device", s.Name())
	}
	d := &Descriptor{name: s.Name(), schema: s}
	for _, affinity := range devices {
		if !slices.Contains(d.devices, affinity) {
			d.devices = append(d.devices, affinity)
		}
	}
	slices.Sort(d.devices)
	for _, affinity := range []types.DeviceAffinity{types.AffinityCPU, types.AffinityMixed, types.AffinityGPU, types.AffinitySupport} {
		if slices.Contains(d.devices, affinity) {
			d.affinity = affinity
			break
		}
	}
	return d, nil
}

// Name of the operator.
func (d *Descriptor) Name() string {
	return d.name
}

// Affinity returns the default device class of the operator.
func (d *Descriptor) Affinity() types.DeviceAffinity {
	return d.affinity
}

// Devices returns the device classes the operator is registered for.
func (d *Descriptor) Devices() []types.DeviceAffinity {
	return slices.Clone(d.devices)
}

// RunsOn returns whether the operator is registered for the device class.
func (d *Descriptor) RunsOn(affinity types.DeviceAffinity) bool {
	return slices.Contains(d.devices, affinity)
}

// Schema of the operator.
func (d *Descriptor) Schema() schema.Schema {
	return d.schema
}

// Operator is an operator configured with its construction arguments. It can be called any number
// of times, on any graph, each call creating one node.
type Operator struct {
	desc   *Descriptor
	device types.DeviceAffinity

	// preserve is the effective flag: requested, or forced by the schema.
	preserve bool

	// spec holds the construction arguments, copied by each call.
	spec *spec.OpSpec
}

// New creates an operator configured with the given arguments.
//
// The "device" argument (a string or types.DeviceAffinity) selects one of the device classes the
// operator is registered for, by default Descriptor.Affinity. The "preserve" argument protects all
// nodes of the operator from pruning. Other arguments are literals converted to the types the schema
// declares; edges are only accepted when calling the operator.
func (d *Descriptor) New(args Args) (*Operator, error) {
	op := &Operator{
		desc:   d,
		device: d.affinity,
		spec:   spec.New(d.schema.Name()),
	}
	if value, found := args[schema.ArgDevice]; found {
		device, err := parseDevice(value)
		if err != nil {
			return nil, errors.WithStack(&ArgumentTypeError{Op: d.name, Arg: schema.ArgDevice, Err: err})
		}
		if !d.RunsOn(device) {
			return nil, errors.WithStack(&ArgumentTypeError{Op: d.name, Arg: schema.ArgDevice,
				Err: errors.Errorf("operator is not available for device %q, only for %v", device, d.devices)})
		}
		op.device = device
	}
	op.spec.AddArg(schema.ArgDevice, op.device.String())

	requestedPreserve := false
	if value, found := args[schema.ArgPreserve]; found {
		preserve, ok := value.(bool)
		if !ok {
			return nil, errors.WithStack(&ArgumentTypeError{Op: d.name, Arg: schema.ArgPreserve,
				Err: errors.Errorf("expected a bool, got %s", describeValue(value))})
		}
		requestedPreserve = preserve
	}
	op.spec.AddArg(schema.ArgPreserve, requestedPreserve)
	op.preserve = requestedPreserve || d.schema.IsNoPrune()

	for _, name := range sortedArgNames(args) {
		if name == schema.ArgDevice || name == schema.ArgPreserve {
			continue
		}
		value := args[name]
		if isEdgeValue(value) {
			return nil, errors.WithStack(&ArgumentTypeError{Op: d.name, Arg: name,
				Err: errors.Errorf("%s can only be given when calling the operator", describeValue(value))})
		}
		if err := addLiteralArg(op.spec, d.schema, d.name, name, value); err != nil {
			return nil, err
		}
	}
	return op, nil
}

func parseDevice(value any) (types.DeviceAffinity, error) {
	switch v := value.(type) {
	case types.DeviceAffinity:
		if v.IsADeviceAffinity() {
			return v, nil
		}
	case types.Device:
		if v == types.GPU {
			return types.AffinityGPU, nil
		}
		return types.AffinityCPU, nil
	case string:
		return types.DeviceAffinityString(v)
	}
	return 0, errors.Errorf("invalid device %s", describeValue(value))
}

// Descriptor returns the descriptor the operator was created from.
func (op *Operator) Descriptor() *Descriptor {
	return op.desc
}

// Name of the operator.
func (op *Operator) Name() string {
	return op.desc.name
}

// Device returns the device class the operator runs on.
func (op *Operator) Device() types.DeviceAffinity {
	return op.device
}

// Preserve returns whether nodes of the operator are preserved from pruning, either because it was
// requested or because the schema forbids pruning.
func (op *Operator) Preserve() bool {
	return op.preserve
}

// Spec returns a copy of the construction spec of the operator.
func (op *Operator) Spec() *spec.OpSpec {
	return op.spec.Copy()
}

// Outputs are the output edges of one node, in index order.
type Outputs []*Edge

// Single returns the only output, or nil if there are zero or more than one outputs.
func (o Outputs) Single() *Edge {
	if len(o) != 1 {
		return nil
	}
	return o[0]
}

// CallOption configures a call to an operator.
type CallOption func(*callConfig)

type callConfig struct {
	name string
}

// WithName sets the name of the node created by the call. The default is "__<type>_<id>".
func WithName(name string) CallOption {
	return func(c *callConfig) {
		c.name = name
	}
}

// Call adds one node running the operator to the graph and returns its outputs.
//
// inputs are the positional inputs: all *Edge, or all EdgeSet of the same length. kwargs are literal
// arguments, added to the ones given at construction, or *Edge argument inputs. Preserved nodes with
// no outputs return no edges, see Node.Sink.
//
// Errors are *InputArityError, *InputTypeError, *InputShapeMismatchError, *ArgumentTypeError and
// *SchemaValidationError, to be matched with errors.As. A failed call doesn't change the graph.
func (op *Operator) Call(g *Graph, inputs []Input, kwargs Args, opts ...CallOption) (Outputs, error) {
	n, err := op.Instantiate(g, inputs, kwargs, opts...)
	if err != nil {
		return nil, err
	}
	return n.outputs, nil
}

// Instantiate is like Call, but returns the created node.
func (op *Operator) Instantiate(g *Graph, inputs []Input, kwargs Args, opts ...CallOption) (*Node, error) {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &instanceBuilder{
		graph:      g,
		typeName:   op.desc.name,
		edgePrefix: op.desc.name,
		affinity:   op.device,
		preserve:   op.preserve,
		schema:     op.desc.schema,
		base:       op.spec,
		inputs:     inputs,
		kwargs:     kwargs,
		name:       cfg.name,
		outputs:    standardOutputs,
	}
	return b.build()
}
