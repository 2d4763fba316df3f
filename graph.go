package opgraph

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/gomlx/opgraph/internal/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Graph holds an operator graph in construction: the nodes created by calling operators on it, and
// the sinks, edges that must survive pruning.
//
// Once all operators are called, Graph.Build returns the Program with the nodes needed to compute
// the requested outputs and sinks.
//
// A Graph is not safe for concurrent use.
type Graph struct {
	name   string
	id     uuid.UUID
	logger logr.Logger

	nodes     []*Node
	nodesByID map[int64]*Node

	sinks     []*Edge
	sinkNames utils.Set[string]

	// functions registered by FunctionSink nodes, by function id.
	functions map[int64]Func
}

// NewGraph creates a new empty Graph.
//
// The name is used in the text representation, after being normalized with NormalizeIdentifier.
func NewGraph(name string) *Graph {
	return &Graph{
		name:      name,
		id:        uuid.New(),
		logger:    klog.Background(),
		nodesByID: make(map[int64]*Node),
		sinkNames: utils.MakeSet[string](),
		functions: make(map[int64]Func),
	}
}

// WithLogger sets the logger used while building the graph, e.g. for deprecation warnings.
// The default is klog's.
func (g *Graph) WithLogger(logger logr.Logger) *Graph {
	g.logger = logger
	return g
}

// Name of the graph.
func (g *Graph) Name() string {
	return g.name
}

// ID returns a random id identifying this graph, unique across processes.
func (g *Graph) ID() uuid.UUID {
	return g.id
}

// Nodes returns all nodes created in the graph, in creation order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// NumNodes returns the number of nodes created in the graph.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// Node returns the node with the given id, or nil if it is not part of the graph.
func (g *Graph) Node(id int64) *Node {
	return g.nodesByID[id]
}

// Producer returns the node that produced the edge, or nil if the edge doesn't belong to the graph.
func (g *Graph) Producer(e *Edge) *Node {
	if e == nil || e.graph != g {
		return nil
	}
	return g.nodesByID[e.producer]
}

// AddSink pins the edge against pruning: its producer, and everything it depends on, is kept by Build
// even if no requested output uses it. Adding the same edge twice is a no-op.
func (g *Graph) AddSink(e *Edge) error {
	if e == nil {
		return errors.New("cannot add a nil edge as sink")
	}
	if e.graph != g {
		return errors.Errorf("cannot add edge %s as sink of graph %q, it belongs to a different graph", e, g.name)
	}
	if g.nodesByID[e.producer] == nil {
		return errors.Errorf("cannot add edge %s as sink of graph %q, its producer is unknown", e, g.name)
	}
	g.addSink(e)
	return nil
}

func (g *Graph) addSink(e *Edge) {
	if g.sinkNames.Has(e.name) {
		return
	}
	g.sinkNames.Insert(e.name)
	g.sinks = append(g.sinks, e)
}

// Sinks returns the edges pinned against pruning, in the order they were added.
func (g *Graph) Sinks() []*Edge {
	return append([]*Edge(nil), g.sinks...)
}

// IsSink returns whether the edge is pinned against pruning.
func (g *Graph) IsSink(e *Edge) bool {
	return e != nil && e.graph == g && g.sinkNames.Has(e.name)
}

// Function returns the function registered by a FunctionSink node with the given function id.
func (g *Graph) Function(id int64) (Func, bool) {
	fn, found := g.functions[id]
	return fn, found
}

// checkEdge returns an error if the edge is not a valid edge of the graph.
func (g *Graph) checkEdge(e *Edge) error {
	if e == nil {
		return errors.New("nil edge")
	}
	if e.graph != g {
		return errors.Errorf("edge %s belongs to a different graph", e)
	}
	return nil
}

// newNode registers a fully built node.
func (g *Graph) newNode(n *Node) {
	g.nodes = append(g.nodes, n)
	g.nodesByID[n.id] = n
}

// newEdge creates a new edge produced by node n.
func (g *Graph) newEdge(n *Node, name string) *Edge {
	return &Edge{
		graph:    g,
		name:     name,
		device:   n.device.OutputDevice(),
		producer: n.id,
	}
}

// Write writes all nodes of the graph, without pruning, in text format to the given writer.
//
// See Graph.Build to get only the nodes needed for some outputs.
func (g *Graph) Write(writer io.Writer) error {
	return writeGraph(writer, g.name, g.nodes, nil, g.sinks)
}

// String implements fmt.Stringer.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph(%q, %d nodes, %d sinks)", g.name, len(g.nodes), len(g.sinks))
}

// Build prunes the graph and returns the Program computing the given outputs.
//
// The program includes the producers of the outputs and of the sinks, and recursively the producers
// of their inputs, in creation order. It fails if there are no outputs nor sinks, or if some output
// doesn't belong to the graph.
//
// If you want the output of the whole graph, use Graph.Write instead.
func (g *Graph) Build(outputs ...*Edge) (*Program, error) {
	for i, e := range outputs {
		if err := g.checkEdge(e); err != nil {
			return nil, errors.WithMessagef(err, "output #%d of graph %q", i, g.name)
		}
	}
	if len(outputs) == 0 && len(g.sinks) == 0 {
		return nil, errors.Errorf("graph %q has nothing to build: no outputs were given and there are no sinks", g.name)
	}

	keep := utils.MakeSet[int64]()
	var toVisit []int64
	for _, e := range append(append([]*Edge(nil), outputs...), g.sinks...) {
		toVisit = append(toVisit, e.producer)
	}
	for len(toVisit) > 0 {
		id := toVisit[len(toVisit)-1]
		toVisit = toVisit[:len(toVisit)-1]
		if keep.Has(id) {
			continue
		}
		n := g.nodesByID[id]
		if n == nil {
			return nil, errors.Errorf("graph %q has no node #%d", g.name, id)
		}
		keep.Insert(id)
		for _, input := range n.inputs {
			toVisit = append(toVisit, input.producer)
		}
	}

	p := &Program{
		Name:      g.name,
		ID:        g.id,
		Outputs:   append([]*Edge(nil), outputs...),
		Sinks:     g.Sinks(),
		functions: make(map[int64]Func),
	}
	for _, n := range g.nodes {
		if !keep.Has(n.id) {
			continue
		}
		p.Nodes = append(p.Nodes, n)
		if fnID, ok := functionIDOf(n); ok {
			p.functions[fnID] = g.functions[fnID]
		}
	}
	g.logger.V(1).Info("built graph", "graph", g.name, "id", g.id, "nodes", len(p.Nodes), "pruned", len(g.nodes)-len(p.Nodes))
	return p, nil
}
