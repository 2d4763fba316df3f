package opgraph

import (
	"github.com/gomlx/opgraph/schema"
	"github.com/gomlx/opgraph/spec"
	"github.com/gomlx/opgraph/types"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Features maps feature names to their descriptions, in declaration order.
type Features = orderedmap.OrderedMap[string, types.Feature]

// NewFeatures returns an empty Features map, to be filled with Set.
func NewFeatures() *Features {
	return orderedmap.New[string, types.Feature]()
}

// RecordReader reads features from files of serialized records. Unlike other operators, it has one
// named output per feature: calling it returns a map from feature name to edge.
//
// It always runs on the cpu.
type RecordReader struct {
	schema   schema.Schema
	preserve bool
	spec     *spec.OpSpec
	features *Features
}

// NewRecordReader creates a RecordReader reading the record files in paths, indexed by the files in
// indexPaths, extracting the given features.
//
// args are other literal arguments of the reader, e.g. "random_shuffle".
func (r *Registry) NewRecordReader(paths, indexPaths []string, features *Features, args Args) (*RecordReader, error) {
	s, err := r.schemas.GetSchema(schema.RecordReaderSchemaName)
	if err != nil {
		return nil, errors.WithMessagef(err, "creating %s", RecordReaderName)
	}
	if features == nil || features.Len() == 0 {
		return nil, errors.WithStack(&ArgumentTypeError{Op: RecordReaderName, Arg: "features",
			Err: errors.New("at least one feature must be given")})
	}

	rr := &RecordReader{
		schema:   s,
		spec:     spec.New(schema.RecordReaderSchemaName),
		features: orderedmap.New[string, types.Feature](orderedmap.WithCapacity[string, types.Feature](features.Len())),
	}
	for pair := features.Oldest(); pair != nil; pair = pair.Next() {
		rr.features.Set(pair.Key, pair.Value)
	}

	if value, found := args[schema.ArgDevice]; found {
		device, err := parseDevice(value)
		if err != nil || device != types.AffinityCPU {
			return nil, errors.WithStack(&ArgumentTypeError{Op: RecordReaderName, Arg: schema.ArgDevice,
				Err: errors.Errorf("%s only runs on the cpu, got %s", RecordReaderName, describeValue(value))})
		}
	}
	rr.spec.AddArg(schema.ArgDevice, types.AffinityCPU.String())
	if value, found := args[schema.ArgPreserve]; found {
		preserve, ok := value.(bool)
		if !ok {
			return nil, errors.WithStack(&ArgumentTypeError{Op: RecordReaderName, Arg: schema.ArgPreserve,
				Err: errors.Errorf("expected a bool, got %s", describeValue(value))})
		}
		rr.preserve = preserve
	}
	rr.spec.AddArg(schema.ArgPreserve, rr.preserve)
	rr.preserve = rr.preserve || s.IsNoPrune()

	if err := addLiteralArg(rr.spec, s, RecordReaderName, "path", paths); err != nil {
		return nil, err
	}
	if err := addLiteralArg(rr.spec, s, RecordReaderName, "index_path", indexPaths); err != nil {
		return nil, err
	}
	for _, name := range sortedArgNames(args) {
		switch name {
		case schema.ArgDevice, schema.ArgPreserve:
			continue
		case "path", "index_path", "feature_names", "features":
			return nil, errors.WithStack(&ArgumentTypeError{Op: RecordReaderName, Arg: name,
				Err: errors.New("is set by the record reader itself")})
		}
		if isEdgeValue(args[name]) {
			return nil, errors.WithStack(&ArgumentTypeError{Op: RecordReaderName, Arg: name,
				Err: errors.Errorf("%s can only be given when calling the operator", describeValue(args[name]))})
		}
		if err := addLiteralArg(rr.spec, s, RecordReaderName, name, args[name]); err != nil {
			return nil, err
		}
	}
	return rr, nil
}

// FeatureNames returns the names of the features read, in output order.
func (rr *RecordReader) FeatureNames() []string {
	names := make([]string, 0, rr.features.Len())
	for pair := rr.features.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Call adds a node reading the records to the graph, and returns the edges of each feature, in
// declaration order.
//
// The feature names and descriptions are recorded in the node spec ("feature_names" and "features"),
// so the engine binds outputs to features by position.
func (rr *RecordReader) Call(g *Graph, inputs []Input, kwargs Args, opts ...CallOption) (*orderedmap.OrderedMap[string, *Edge], error) {
	n, err := rr.Instantiate(g, inputs, kwargs, opts...)
	if err != nil {
		return nil, err
	}
	outputs := orderedmap.New[string, *Edge]()
	for i, name := range rr.FeatureNames() {
		outputs.Set(name, n.outputs[i])
	}
	return outputs, nil
}

// Instantiate is like Call, but returns the created node.
func (rr *RecordReader) Instantiate(g *Graph, inputs []Input, kwargs Args, opts ...CallOption) (*Node, error) {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	names := rr.FeatureNames()
	features := make([]types.Feature, 0, len(names))
	for pair := rr.features.Oldest(); pair != nil; pair = pair.Next() {
		features = append(features, pair.Value)
	}
	b := &instanceBuilder{
		graph:      g,
		typeName:   RecordReaderName,
		edgePrefix: schema.RecordReaderSchemaName,
		affinity:   types.AffinityCPU,
		preserve:   rr.preserve,
		schema:     rr.schema,
		base:       rr.spec,
		inputs:     inputs,
		kwargs:     kwargs,
		name:       cfg.name,
		extraArgs: func(sp *spec.OpSpec) error {
			sp.AddArg("feature_names", names)
			sp.AddArg("features", features)
			return nil
		},
		outputs: featureOutputs(len(names)),
	}
	return b.build()
}

// featureOutputs creates one output per feature, pinned as sinks if the node is preserved.
func featureOutputs(numFeatures int) outputPolicy {
	return func(b *instanceBuilder, n *Node) ([]*Edge, error) {
		var sinks []*Edge
		for i := range numFeatures {
			e := b.graph.newEdge(n, outputName(b.edgePrefix, n.id, i))
			n.spec.AddOutput(e.name, e.device)
			n.outputs = append(n.outputs, e)
			if n.preserve {
				sinks = append(sinks, e)
			}
		}
		return sinks, nil
	}
}
