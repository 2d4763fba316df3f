package opgraph

import (
	"fmt"

	"github.com/pkg/errors"
)

// outputPolicy creates the outputs of a validated node, and returns the edges to pin as sinks once
// the node is added to the graph.
type outputPolicy func(b *instanceBuilder, n *Node) (sinks []*Edge, err error)

func outputName(prefix string, id int64, index int) string {
	return fmt.Sprintf("%s_id_%d_output_%d", prefix, id, index)
}

func sinkName(prefix string, id int64) string {
	return fmt.Sprintf("%s_id_%d_sink", prefix, id)
}

// standardOutputs creates as many outputs as the schema calculates, regular plus additional ones.
//
// A preserved node without outputs gets a single placeholder sink edge instead, which is not an
// output. Outputs of preserved nodes are pinned as sinks.
func standardOutputs(b *instanceBuilder, n *Node) ([]*Edge, error) {
	numOutputs, err := b.schema.CalculateOutputs(n.spec)
	if err != nil {
		return nil, errors.WithStack(&SchemaValidationError{Op: b.typeName, Err: err})
	}
	numAdditional, err := b.schema.CalculateAdditionalOutputs(n.spec)
	if err != nil {
		return nil, errors.WithStack(&SchemaValidationError{Op: b.typeName, Err: err})
	}
	numOutputs += numAdditional

	if numOutputs == 0 && n.preserve {
		n.sink = b.graph.newEdge(n, sinkName(b.edgePrefix, n.id))
		return []*Edge{n.sink}, nil
	}
	var sinks []*Edge
	for i := range numOutputs {
		e := b.graph.newEdge(n, outputName(b.edgePrefix, n.id, i))
		n.spec.AddOutput(e.name, e.device)
		n.outputs = append(n.outputs, e)
		if n.preserve {
			sinks = append(sinks, e)
		}
	}
	return sinks, nil
}

// pinnedOutputs creates numOutputs outputs, all pinned as sinks regardless of the preserve flag,
// or a single sink edge if there are none.
func pinnedOutputs(numOutputs int) outputPolicy {
	return func(b *instanceBuilder, n *Node) ([]*Edge, error) {
		if numOutputs == 0 {
			n.sink = b.graph.newEdge(n, sinkName(b.edgePrefix, n.id))
			return []*Edge{n.sink}, nil
		}
		sinks := make([]*Edge, numOutputs)
		for i := range numOutputs {
			e := b.graph.newEdge(n, outputName(b.edgePrefix, n.id, i))
			n.spec.AddOutput(e.name, e.device)
			n.outputs = append(n.outputs, e)
			sinks[i] = e
		}
		return sinks, nil
	}
}
