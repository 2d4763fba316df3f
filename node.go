package opgraph

import (
	"fmt"
	"io"
	"slices"
	"sync/atomic"

	"github.com/gomlx/opgraph/spec"
	"github.com/gomlx/opgraph/types"
)

// nextNodeID is shared by all graphs: node ids and, with them, edge names are unique in the process.
var nextNodeID atomic.Int64

// newNodeID returns a new unique node id. Ids start at 0 and are never reused, even if building the
// node fails.
func newNodeID() int64 {
	return nextNodeID.Add(1) - 1
}

// Node is one call of an operator in a graph. It is immutable once created.
type Node struct {
	id       int64
	name     string
	opType   string
	device   types.DeviceAffinity
	preserve bool

	// inputs include the argument inputs, after the positional ones.
	inputs  []*Edge
	outputs []*Edge

	// sink is set for preserved nodes with no outputs.
	sink *Edge

	spec *spec.OpSpec
}

// ID returns the unique id of the node.
func (n *Node) ID() int64 {
	return n.id
}

// Name returns the name of the node, given with WithName or "__<type>_<id>".
func (n *Node) Name() string {
	return n.name
}

// Type returns the name of the operator that created the node.
func (n *Node) Type() string {
	return n.opType
}

// Device returns the device class the node runs on.
func (n *Node) Device() types.DeviceAffinity {
	return n.device
}

// Preserve returns whether the node is preserved from pruning.
func (n *Node) Preserve() bool {
	return n.preserve
}

// Inputs returns the input edges: positional inputs (set-major for input sets) followed by argument inputs.
func (n *Node) Inputs() []*Edge {
	return slices.Clone(n.inputs)
}

// Outputs returns the output edges, in index order.
func (n *Node) Outputs() []*Edge {
	return slices.Clone(n.outputs)
}

// Sink returns the placeholder sink of a preserved node without outputs, or nil.
func (n *Node) Sink() *Edge {
	return n.sink
}

// Spec returns a copy of the spec of the node.
func (n *Node) Spec() *spec.OpSpec {
	return n.spec.Copy()
}

// Write writes the node spec followed by a comment with the node name.
func (n *Node) Write(w io.Writer, indentation string) error {
	if err := n.spec.Write(w, indentation); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "  // %s\n", n.name)
	return err
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return fmt.Sprintf("%s(#%d, %s)", n.name, n.id, n.opType)
}
