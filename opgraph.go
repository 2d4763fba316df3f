// Package opgraph builds data-flow graphs of operators, to be handed to an execution engine.
//
// Operators are described by schemas (see package schema). A Registry discovers the available
// operators and makes one Descriptor per operator name. A Descriptor creates configured Operators,
// and calling an Operator on a Graph adds one Node to it and returns the Edges of its outputs, to be
// used as inputs of further calls:
//
//	registry, err := opgraph.NewRegistry(catalog)
//	g := opgraph.NewGraph("video")
//	reader, err := registry.New("VideoReader", opgraph.Args{"device": "gpu", "filenames": files})
//	frames, err := reader.Call(g, nil, nil)
//	crop, err := registry.New("Crop", opgraph.Args{"device": "gpu", "crop": []float32{224, 224}})
//	cropped, err := crop.Call(g, opgraph.Edges(frames.Single()), nil)
//	program, err := g.Build(cropped...)
//
// Among its features:
//
// - Inputs can be given as input sets: parallel lists of edges processed by replicas of the operator.
// - Arguments can be literals, converted to the types the schema declares, or edges (argument inputs).
// - Nodes whose outputs are not used are pruned by Graph.Build, unless they are preserved (sinks).
// - Custom operators: RecordReader, with one named output per feature, and FunctionSink, running a
//   Go function whose outputs are never pruned.
//
// Building a graph is not safe for concurrent use, but different graphs can be built concurrently.
package opgraph

import "github.com/gomlx/opgraph/internal/utils"

// NormalizeIdentifier converts the name of a graph or node to a valid identifier of the text format:
// only letters, digits, and underscores are allowed.
//
// Invalid characters are replaced with underscores.
// If the name starts with a digit, it is prefixed with an underscore.
func NormalizeIdentifier(name string) string {
	return utils.NormalizeIdentifier(name)
}
