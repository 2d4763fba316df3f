package opgraph

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// IndentationStep used in the text format.
const IndentationStep = "  "

// Program is a pruned graph, ready to be handed to an execution engine: the nodes needed to compute
// its outputs and sinks, in creation order.
type Program struct {
	Name    string
	ID      uuid.UUID
	Nodes   []*Node
	Outputs []*Edge
	Sinks   []*Edge

	functions map[int64]Func
}

// Function returns the function run by a FunctionSink node of the program, by function id.
func (p *Program) Function(id int64) (Func, bool) {
	fn, found := p.functions[id]
	return fn, found && fn != nil
}

// Write the program in text format to the given writer.
func (p *Program) Write(writer io.Writer) error {
	return writeGraph(writer, p.Name, p.Nodes, p.Outputs, p.Sinks)
}

// String implements fmt.Stringer, returning the text format.
func (p *Program) String() string {
	var sb strings.Builder
	if err := p.Write(&sb); err != nil {
		return fmt.Sprintf("Program(%q): failed to write: %v", p.Name, err)
	}
	return sb.String()
}

// Bytes returns the program in text format.
func (p *Program) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToProto converts the program to a protobuf Struct:
//
//	{"name": ..., "id": ..., "nodes": [{"id": ..., "name": ..., "type": ..., "spec": {...}}], "outputs": [...], "sinks": [...]}
//
// See spec.OpSpec.ToProto for the format of the node specs.
func (p *Program) ToProto() (*structpb.Struct, error) {
	nodes := make([]any, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		specPb, err := n.spec.ToProto()
		if err != nil {
			return nil, errors.WithMessagef(err, "node %s", n)
		}
		nodes = append(nodes, map[string]any{
			"id":   n.id,
			"name": n.name,
			"type": n.opType,
			"spec": specPb.AsMap(),
		})
	}
	pb, err := structpb.NewStruct(map[string]any{
		"name":    p.Name,
		"id":      p.ID.String(),
		"nodes":   nodes,
		"outputs": edgeNames(p.Outputs),
		"sinks":   edgeNames(p.Sinks),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "converting program %q to protobuf", p.Name)
	}
	return pb, nil
}

// MarshalJSON implements json.Marshaler, using the protobuf JSON mapping of Program.ToProto.
func (p *Program) MarshalJSON() ([]byte, error) {
	pb, err := p.ToProto()
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(pb)
}

func edgeNames(edges []*Edge) []any {
	names := make([]any, len(edges))
	for i, e := range edges {
		names[i] = e.name
	}
	return names
}

// writeGraph writes nodes, outputs and sinks in the text format:
//
//	graph @name {
//	  %a_output_0 = "Op"() {...} : () -> cpu  // node name
//	  outputs(%a_output_0)
//	  sinks(%b_sink)
//	}
func writeGraph(writer io.Writer, name string, nodes []*Node, outputs, sinks []*Edge) error {
	var err error
	w := func(format string, args ...any) {
		if err != nil {
			// No op if an error was encountered earlier
			return
		}
		_, err = fmt.Fprintf(writer, format, args...)
	}
	we := func(n *Node) {
		if err != nil {
			// No op if an error was encountered earlier
			return
		}
		err = n.Write(writer, IndentationStep)
	}
	wl := func(label string, edges []*Edge) {
		if len(edges) == 0 {
			return
		}
		w("%s%s(", IndentationStep, label)
		for i, e := range edges {
			if i > 0 {
				w(", ")
			}
			w("%s", e)
		}
		w(")\n")
	}

	w("graph @%s {\n", NormalizeIdentifier(name))
	for _, n := range nodes {
		we(n)
	}
	wl("outputs", outputs)
	wl("sinks", sinks)
	w("}\n")
	return err
}
