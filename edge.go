package opgraph

import (
	"fmt"

	"github.com/gomlx/opgraph/types"
)

// Edge is a handle to one output of a node: the only value passed between operator calls.
//
// Edges are created by the graph and compared by identity. Their names are unique within a process.
type Edge struct {
	graph    *Graph
	name     string
	device   types.Device
	producer int64
}

// Name returns the unique name of the edge, e.g. "Resize_id_3_output_0".
func (e *Edge) Name() string {
	return e.name
}

// Device returns where the data of the edge lives.
func (e *Edge) Device() types.Device {
	return e.device
}

// ProducerID returns the id of the node that produces the edge. Use Graph.Producer to get the node.
func (e *Edge) ProducerID() int64 {
	return e.producer
}

// Graph returns the graph the edge belongs to.
func (e *Edge) Graph() *Graph {
	return e.graph
}

// String implements fmt.Stringer.
func (e *Edge) String() string {
	if e == nil {
		return "<nil edge>"
	}
	return "%" + e.name
}

// Input is a positional input of an operator call: either a single *Edge or an EdgeSet.
//
// All positional inputs of one call must be of the same kind.
type Input interface {
	isInput()
}

func (e *Edge) isInput() {}

// EdgeSet is one positional input given as an input set: the operator is replicated once per element,
// and all EdgeSet inputs of one call must have the same length.
type EdgeSet []*Edge

func (EdgeSet) isInput() {}

// Edges converts edges to positional inputs.
func Edges(edges ...*Edge) []Input {
	inputs := make([]Input, len(edges))
	for i, e := range edges {
		inputs[i] = e
	}
	return inputs
}

// describeValue is used in error messages about unexpected inputs.
func describeValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return "nil"
	case *Edge:
		if tv == nil {
			return "nil edge"
		}
		return fmt.Sprintf("edge %s", tv)
	case EdgeSet:
		return fmt.Sprintf("input set of length %d", len(tv))
	}
	return fmt.Sprintf("value of type %T", v)
}
