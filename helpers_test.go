package opgraph

import (
	"testing"

	"github.com/gomlx/opgraph/schema"
	"github.com/gomlx/opgraph/types"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

// newTestCatalog returns a catalog with a small set of image and video operators.
func newTestCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	c := schema.NewCatalog()
	register := func(s *schema.OpSchema, devices ...types.DeviceAffinity) {
		require.NoError(t, c.Register(s, devices...))
	}
	register(schema.New("FileReader").
		DocStr("Reads (file, label) pairs.").
		NumInput(0).NumOutput(2).
		AddOptionalArg("file_root", types.ArgString, "", "Root of the files."),
		types.AffinityCPU)
	register(schema.New("VideoReader").
		DocStr("Loads and decodes video files.").
		NumInput(0).
		SequenceOperator().
		AddArg("filenames", types.ArgStringVec, "Files to read.").
		AddOptionalArg("sequence_length", types.ArgInt64, 16, "Frames per sequence."),
		types.AffinityGPU)
	register(schema.New("Decoder").
		NumInput(1),
		types.AffinityMixed)
	register(schema.New("Resize").
		DocStr("Resizes images.").
		NumInput(1).
		AllowMultipleInputSets().
		AllowSequences().
		AddOptionalTensorArg("resize_x", types.ArgFloat, 0.0, "Width.").
		AddOptionalTensorArg("resize_y", types.ArgFloat, 0.0, "Height.\nZero keeps the aspect ratio."),
		types.AffinityCPU, types.AffinityGPU)
	register(schema.New("Crop").
		NumInput(1).
		AddArg("crop", types.ArgFloatVec, "Shape of the crop."),
		types.AffinityCPU, types.AffinityGPU)
	register(schema.New("Cat").
		NumInputRange(1, 3),
		types.AffinityCPU, types.AffinityGPU)
	register(schema.New("Mux").
		NumInput(2).
		AllowMultipleInputSets(),
		types.AffinityCPU)
	register(schema.New("Split").
		NumInput(1).
		OutputsFromArg("sizes").
		AdditionalOutputs(1).
		AddArg("sizes", types.ArgInt64Vec, "Sizes of the parts."),
		types.AffinityCPU)
	register(schema.New("CoinFlip").
		NumInput(0).
		AddOptionalArg("probability", types.ArgFloat, 0.5, "Probability of 1."),
		types.AffinitySupport)
	register(schema.New("Dump").
		NumInput(1).NumOutput(0),
		types.AffinityCPU)
	register(schema.New("KeepMe").
		NumInput(1).NumOutput(0).
		NoPrune(),
		types.AffinityCPU)
	register(schema.New("OldResize").
		NumInput(1).
		Deprecate("Resize"),
		types.AffinityCPU)
	return c
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return must.M1(NewRegistry(newTestCatalog(t)))
}

// readFiles adds a FileReader to the graph and returns its two outputs.
func readFiles(t *testing.T, r *Registry, g *Graph) (files, labels *Edge) {
	t.Helper()
	reader := must.M1(r.New("FileReader", nil))
	outputs := must.M1(reader.Call(g, nil, nil))
	require.Len(t, outputs, 2)
	return outputs[0], outputs[1]
}

func edgeNamesOf(edges []*Edge) []string {
	names := make([]string, len(edges))
	for i, e := range edges {
		names[i] = e.Name()
	}
	return names
}
