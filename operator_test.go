package opgraph

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/gomlx/opgraph/spec"
	"github.com/gomlx/opgraph/types"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeDescriptor(t *testing.T) {
	r := newTestRegistry(t)
	testCases := []struct {
		name     string
		affinity types.DeviceAffinity
		devices  []types.DeviceAffinity
	}{
		{"FileReader", types.AffinityCPU, []types.DeviceAffinity{types.AffinityCPU}},
		{"Resize", types.AffinityCPU, []types.DeviceAffinity{types.AffinityCPU, types.AffinityGPU}},
		{"VideoReader", types.AffinityGPU, []types.DeviceAffinity{types.AffinityGPU}},
		{"Decoder", types.AffinityMixed, []types.DeviceAffinity{types.AffinityMixed}},
		{"CoinFlip", types.AffinitySupport, []types.DeviceAffinity{types.AffinitySupport}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := must.M1(r.Lookup(tc.name))
			assert.Equal(t, tc.name, d.Name())
			assert.Equal(t, tc.affinity, d.Affinity())
			assert.Equal(t, tc.devices, d.Devices())
		})
	}

	_, err := MakeDescriptor(nil, types.AffinityCPU)
	require.Error(t, err)
	resize := must.M1(r.Lookup("Resize"))
	_, err = MakeDescriptor(resize.Schema())
	require.Error(t, err)

	// Duplicates are removed, and mixed comes before gpu.
	d := must.M1(MakeDescriptor(resize.Schema(), types.AffinityGPU, types.AffinityMixed, types.AffinityGPU))
	assert.Equal(t, []types.DeviceAffinity{types.AffinityGPU, types.AffinityMixed}, d.Devices())
	assert.Equal(t, types.AffinityMixed, d.Affinity())
	assert.True(t, d.RunsOn(types.AffinityGPU))
	assert.False(t, d.RunsOn(types.AffinityCPU))
}

func TestOperatorNew(t *testing.T) {
	r := newTestRegistry(t)

	t.Run("Defaults", func(t *testing.T) {
		op := must.M1(r.New("Resize", Args{"resize_x": 100}))
		assert.Equal(t, "Resize", op.Name())
		assert.Equal(t, types.AffinityCPU, op.Device())
		assert.False(t, op.Preserve())
		sp := op.Spec()
		assert.Equal(t, []string{"device", "preserve", "resize_x"}, sp.ArgNames())
		value, _ := sp.Arg("resize_x")
		assert.Equal(t, float32(100), value)
		value, _ = sp.Arg("device")
		assert.Equal(t, "cpu", value)
	})

	t.Run("Device", func(t *testing.T) {
		for _, device := range []any{"gpu", types.AffinityGPU, types.GPU} {
			op := must.M1(r.New("Resize", Args{"device": device}))
			assert.Equal(t, types.AffinityGPU, op.Device())
		}
		for _, device := range []any{"tpu", 7, types.DeviceAffinity(42)} {
			_, err := r.New("Resize", Args{"device": device})
			var argErr *ArgumentTypeError
			require.ErrorAs(t, err, &argErr, "device %v", device)
			assert.Equal(t, "device", argErr.Arg)
		}
		_, err := r.New("VideoReader", Args{"device": "cpu", "filenames": "a.mp4"})
		var argErr *ArgumentTypeError
		require.ErrorAs(t, err, &argErr)
		assert.Contains(t, err.Error(), "not available for device")
	})

	t.Run("Preserve", func(t *testing.T) {
		op := must.M1(r.New("Dump", Args{"preserve": true}))
		assert.True(t, op.Preserve())
		_, err := r.New("Dump", Args{"preserve": "yes"})
		var argErr *ArgumentTypeError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "preserve", argErr.Arg)

		// NoPrune schemas are always preserved, but the spec records what was requested.
		op = must.M1(r.New("KeepMe", nil))
		assert.True(t, op.Preserve())
		value, _ := op.Spec().Arg("preserve")
		assert.Equal(t, false, value)
	})

	t.Run("Literals", func(t *testing.T) {
		op := must.M1(r.New("Crop", Args{"crop": []int{224, 200}}))
		value, _ := op.Spec().Arg("crop")
		assert.Equal(t, []float32{224, 200}, value)

		// Single values are promoted to lists.
		op = must.M1(r.New("Crop", Args{"crop": 224.0}))
		value, _ = op.Spec().Arg("crop")
		assert.Equal(t, []float32{224}, value)

		_, err := r.New("Crop", Args{"crop": []float32{}})
		var argErr *ArgumentTypeError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "crop", argErr.Arg)
		assert.Contains(t, err.Error(), "at least one element")

		_, err = r.New("Crop", Args{"crop": "big"})
		require.ErrorAs(t, err, &argErr)

		// Unknown arguments are only reported when calling the operator.
		op = must.M1(r.New("Crop", Args{"crop": 10, "crap": 1}))
		assert.True(t, op.Spec().HasArg("crap"))
	})

	t.Run("EdgesAreRejected", func(t *testing.T) {
		g := NewGraph(t.Name())
		files, _ := readFiles(t, r, g)
		_, err := r.New("Resize", Args{"resize_x": files})
		var argErr *ArgumentTypeError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "resize_x", argErr.Arg)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := r.New("Resise", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `did you mean "Resize"?`)
	})
}

func TestCall(t *testing.T) {
	r := newTestRegistry(t)
	g := NewGraph(t.Name())
	files, labels := readFiles(t, r, g)
	assert.Equal(t, files.ProducerID(), labels.ProducerID())
	reader := g.Producer(files)
	require.NotNil(t, reader)
	assert.Equal(t, fmt.Sprintf("FileReader_id_%d_output_0", reader.ID()), files.Name())
	assert.Equal(t, fmt.Sprintf("FileReader_id_%d_output_1", reader.ID()), labels.Name())
	assert.Equal(t, fmt.Sprintf("__FileReader_%d", reader.ID()), reader.Name())
	assert.Equal(t, types.CPU, files.Device())
	assert.Same(t, g, files.Graph())

	resize := must.M1(r.New("Resize", Args{"resize_x": 100}))
	outputs := must.M1(resize.Call(g, Edges(files), Args{"resize_y": 50}, WithName("resize")))
	resized := outputs.Single()
	require.NotNil(t, resized)
	n := g.Producer(resized)
	assert.Equal(t, "resize", n.Name())
	assert.Equal(t, "Resize", n.Type())
	assert.Equal(t, []*Edge{files}, n.Inputs())
	assert.Equal(t, []*Edge{resized}, n.Outputs())
	assert.Nil(t, n.Sink())
	sp := n.Spec()
	value, _ := sp.Arg("resize_y")
	assert.Equal(t, float32(50), value)
	assert.Equal(t, []spec.EdgeSpec{{Name: files.Name(), Device: types.CPU}}, sp.Inputs())
	assert.Equal(t, []spec.EdgeSpec{{Name: resized.Name(), Device: types.CPU}}, sp.Outputs())

	// Call-time literals don't change the operator.
	assert.False(t, resize.Spec().HasArg("resize_y"))

	// Device of the outputs follows the device class of the node.
	gpuResize := must.M1(r.New("Resize", Args{"device": "gpu"}))
	onGPU := must.M1(gpuResize.Call(g, Edges(files), nil)).Single()
	assert.Equal(t, types.GPU, onGPU.Device())
	decoder := must.M1(r.New("Decoder", nil))
	decoded := must.M1(decoder.Call(g, Edges(files), nil)).Single()
	assert.Equal(t, types.GPU, decoded.Device())
	coin := must.M1(r.New("CoinFlip", nil))
	flip := must.M1(coin.Call(g, nil, nil)).Single()
	assert.Equal(t, types.CPU, flip.Device())

	// Outputs calculated from an argument, plus additional outputs.
	split := must.M1(r.New("Split", Args{"sizes": []int{1, 2, 3}}))
	parts := must.M1(split.Call(g, Edges(files), nil))
	assert.Len(t, parts, 4)
	assert.Nil(t, parts.Single())

	assert.Equal(t, 6, g.NumNodes())
	_, err := resize.Call(nil, Edges(files), nil)
	require.Error(t, err)
}

func TestCallArity(t *testing.T) {
	r := newTestRegistry(t)
	g := NewGraph(t.Name())
	files, labels := readFiles(t, r, g)
	crop := must.M1(r.New("Crop", Args{"crop": 10}))

	_, err := crop.Call(g, Edges(files, labels), nil)
	var arityErr *InputArityError
	require.ErrorAs(t, err, &arityErr)
	assert.Equal(t, InputArityError{Op: "Crop", Min: 1, Max: 1, Got: 2}, *arityErr)
	assert.Equal(t, "operator Crop expects [1, 1] inputs, but received 2", arityErr.Error())

	_, err = crop.Call(g, nil, nil)
	require.ErrorAs(t, err, &arityErr)
	assert.Equal(t, 0, arityErr.Got)

	cat := must.M1(r.New("Cat", nil))
	for numInputs := 1; numInputs <= 3; numInputs++ {
		inputs := make([]*Edge, numInputs)
		for i := range inputs {
			inputs[i] = files
		}
		_, err = cat.Call(g, Edges(inputs...), nil)
		require.NoError(t, err, "Cat with %d inputs", numInputs)
	}
	_, err = cat.Call(g, Edges(files, files, files, files), nil)
	require.ErrorAs(t, err, &arityErr)
	assert.Equal(t, InputArityError{Op: "Cat", Min: 1, Max: 3, Got: 4}, *arityErr)
}

func TestCallInputSets(t *testing.T) {
	r := newTestRegistry(t)
	g := NewGraph(t.Name())
	a0, a1 := readFiles(t, r, g)
	b0, b1 := readFiles(t, r, g)

	mux := must.M1(r.New("Mux", nil))
	n := must.M1(mux.Instantiate(g, []Input{EdgeSet{a0, a1}, EdgeSet{b0, b1}}, nil))
	// Set-major order.
	assert.Equal(t, []*Edge{a0, b0, a1, b1}, n.Inputs())
	assert.Len(t, n.Outputs(), 2)
	value, _ := n.Spec().Arg("num_input_sets")
	assert.Equal(t, int64(2), value)

	resize := must.M1(r.New("Resize", nil))
	outputs := must.M1(resize.Call(g, []Input{EdgeSet{a0, a1, b0}}, nil))
	assert.Len(t, outputs, 3)

	t.Run("Mismatch", func(t *testing.T) {
		_, err := mux.Call(g, []Input{EdgeSet{a0, a1}, EdgeSet{b0}}, nil)
		var shapeErr *InputShapeMismatchError
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, InputShapeMismatchError{Op: "Mux", Index: 1, Expected: 2, Got: 1}, *shapeErr)

		_, err = mux.Call(g, []Input{EdgeSet{a0}, EdgeSet{b0, b1}}, nil)
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, InputShapeMismatchError{Op: "Mux", Index: 1, Expected: 1, Got: 2}, *shapeErr)

		_, err = mux.Call(g, []Input{EdgeSet{}, EdgeSet{}}, nil)
		require.ErrorAs(t, err, &shapeErr)
		assert.Contains(t, err.Error(), "empty input set")
	})

	t.Run("NotSupported", func(t *testing.T) {
		cat := must.M1(r.New("Cat", nil))
		_, err := cat.Call(g, []Input{EdgeSet{a0, a1}}, nil)
		var schemaErr *SchemaValidationError
		require.ErrorAs(t, err, &schemaErr)
		assert.Contains(t, err.Error(), "does not support multiple input sets")

		// A single input set is the same as plain edges.
		outputs := must.M1(cat.Call(g, []Input{EdgeSet{a0}, EdgeSet{b0}}, nil))
		assert.Len(t, outputs, 1)
	})
}

func TestCallInputTypes(t *testing.T) {
	r := newTestRegistry(t)
	g := NewGraph(t.Name())
	files, labels := readFiles(t, r, g)
	other := NewGraph("other")
	foreign, _ := readFiles(t, r, other)
	mux := must.M1(r.New("Mux", nil))

	testCases := []struct {
		name   string
		inputs []Input
	}{
		{"EdgeThenSet", []Input{files, EdgeSet{labels}}},
		{"SetThenEdge", []Input{EdgeSet{files}, labels}},
		{"NilEdge", []Input{files, (*Edge)(nil)}},
		{"NilInput", []Input{nil, files}},
		{"ForeignEdge", []Input{files, foreign}},
		{"ForeignEdgeInSet", []Input{EdgeSet{files}, EdgeSet{foreign}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			numNodes := g.NumNodes()
			_, err := mux.Call(g, tc.inputs, nil)
			var typeErr *InputTypeError
			require.ErrorAs(t, err, &typeErr)
			assert.Equal(t, "Mux", typeErr.Op)
			assert.Equal(t, numNodes, g.NumNodes())
		})
	}
}

func TestCallArgumentInputs(t *testing.T) {
	r := newTestRegistry(t)
	g := NewGraph(t.Name())
	files, _ := readFiles(t, r, g)
	coin := must.M1(r.New("CoinFlip", nil))
	width := must.M1(coin.Call(g, nil, nil)).Single()
	height := must.M1(coin.Call(g, nil, nil)).Single()

	resize := must.M1(r.New("Resize", nil))
	n := must.M1(resize.Instantiate(g, Edges(files), Args{"resize_y": height, "resize_x": width}))
	// Argument inputs follow the positional ones, sorted by argument name.
	assert.Equal(t, []*Edge{files, width, height}, n.Inputs())
	assert.Equal(t, []spec.ArgumentInput{
		{Arg: "resize_x", Edge: width.Name()},
		{Arg: "resize_y", Edge: height.Name()},
	}, n.Spec().ArgumentInputs())
	assert.Equal(t, 1, n.Spec().NumRegularInputs())

	t.Run("GPU", func(t *testing.T) {
		gpuResize := must.M1(r.New("Resize", Args{"device": "gpu"}))
		onGPU := must.M1(gpuResize.Call(g, Edges(files), nil)).Single()
		_, err := resize.Call(g, Edges(files), Args{"resize_x": onGPU})
		var typeErr *InputTypeError
		require.ErrorAs(t, err, &typeErr)
		assert.Equal(t, `argument input "resize_x"`, typeErr.Input)
	})

	t.Run("Sets", func(t *testing.T) {
		for _, value := range []any{EdgeSet{width}, []*Edge{width}} {
			_, err := resize.Call(g, Edges(files), Args{"resize_x": value})
			var typeErr *InputTypeError
			require.ErrorAs(t, err, &typeErr)
		}
	})

	t.Run("NotTensor", func(t *testing.T) {
		crop := must.M1(r.New("Crop", nil))
		_, err := crop.Call(g, Edges(files), Args{"crop": width})
		var schemaErr *SchemaValidationError
		require.ErrorAs(t, err, &schemaErr)
		assert.Contains(t, err.Error(), "not a tensor argument")
	})

	t.Run("LiteralAndInput", func(t *testing.T) {
		withX := must.M1(r.New("Resize", Args{"resize_x": 10}))
		_, err := withX.Call(g, Edges(files), Args{"resize_x": width})
		var schemaErr *SchemaValidationError
		require.ErrorAs(t, err, &schemaErr)
	})

	t.Run("DeviceAtCallTime", func(t *testing.T) {
		for _, name := range []string{"device", "preserve"} {
			_, err := resize.Call(g, Edges(files), Args{name: "gpu"})
			var argErr *ArgumentTypeError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, name, argErr.Arg)
		}
	})
}

func TestCallValidation(t *testing.T) {
	r := newTestRegistry(t)
	g := NewGraph(t.Name())
	files, _ := readFiles(t, r, g)
	numNodes := g.NumNodes()

	crop := must.M1(r.New("Crop", nil))
	_, err := crop.Call(g, Edges(files), nil)
	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, err.Error(), "missing required arguments")

	outputs := must.M1(crop.Call(g, Edges(files), Args{"crop": []float64{10, 20}}))
	assert.Len(t, outputs, 1)
	numNodes++

	_, err = crop.Call(g, Edges(files), Args{"crop": []int{}})
	var argErr *ArgumentTypeError
	require.ErrorAs(t, err, &argErr)

	_, err = crop.Call(g, Edges(files), Args{"crop": 1, "crap": 2})
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, err.Error(), `did you mean "crop"?`)

	// NaN literals are rejected, at construction and call time, scalar or in lists.
	for _, value := range []any{math.NaN(), float32(math.NaN()), []float64{1, math.NaN()}} {
		_, err = r.New("Resize", Args{"resize_x": value})
		require.ErrorAs(t, err, &argErr, "value %v", value)
		assert.Equal(t, "resize_x", argErr.Arg)

		_, err = crop.Call(g, Edges(files), Args{"crop": value})
		require.ErrorAs(t, err, &argErr, "value %v", value)
		assert.Equal(t, "crop", argErr.Arg)
	}
	_, err = r.New("Resize", Args{"resize_x": math.Inf(1)})
	require.NoError(t, err)
	assert.Equal(t, numNodes, g.NumNodes())
}

func TestCallPreserve(t *testing.T) {
	r := newTestRegistry(t)
	g := NewGraph(t.Name())
	files, _ := readFiles(t, r, g)

	dump := must.M1(r.New("Dump", nil))
	n := must.M1(dump.Instantiate(g, Edges(files), nil))
	assert.Empty(t, n.Outputs())
	assert.Nil(t, n.Sink())
	assert.Empty(t, g.Sinks())

	preserved := must.M1(r.New("Dump", Args{"preserve": true}))
	outputs, err := preserved.Call(g, Edges(files), nil)
	require.NoError(t, err)
	assert.Empty(t, outputs)
	n = g.Nodes()[g.NumNodes()-1]
	require.NotNil(t, n.Sink())
	assert.Equal(t, fmt.Sprintf("Dump_id_%d_sink", n.ID()), n.Sink().Name())
	assert.Equal(t, []*Edge{n.Sink()}, g.Sinks())
	assert.Empty(t, n.Spec().Outputs())

	keep := must.M1(r.New("KeepMe", nil))
	n = must.M1(keep.Instantiate(g, Edges(files), nil))
	require.NotNil(t, n.Sink())
	assert.True(t, g.IsSink(n.Sink()))

	resize := must.M1(r.New("Resize", Args{"preserve": true}))
	resized := must.M1(resize.Call(g, Edges(files), nil)).Single()
	assert.True(t, g.IsSink(resized))
	assert.False(t, g.IsSink(files))
	assert.Len(t, g.Sinks(), 3)
}

func TestCallDeprecated(t *testing.T) {
	r := newTestRegistry(t)
	var logs []string
	logger := funcr.New(func(prefix, args string) {
		logs = append(logs, args)
	}, funcr.Options{})
	g := NewGraph(t.Name()).WithLogger(logger)
	files, _ := readFiles(t, r, g)
	require.Empty(t, logs)

	old := must.M1(r.New("OldResize", nil))
	outputs := must.M1(old.Call(g, Edges(files), nil))
	assert.Len(t, outputs, 1)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0], "deprecated")
	assert.Contains(t, logs[0], `"OldResize"`)
	assert.Contains(t, logs[0], `"use_instead"="Resize"`)
}

func TestUniqueNames(t *testing.T) {
	r := newTestRegistry(t)
	resize := must.M1(r.New("Resize", nil))
	names := make(map[string]bool)
	var lastID int64 = -1
	for i := range 3 {
		g := NewGraph(fmt.Sprintf("graph_%d", i))
		files, _ := readFiles(t, r, g)
		for range 50 {
			n := must.M1(resize.Instantiate(g, Edges(files), nil))
			assert.Greater(t, n.ID(), lastID)
			lastID = n.ID()
			for _, e := range n.Outputs() {
				assert.False(t, names[e.Name()], "duplicate edge name %q", e.Name())
				names[e.Name()] = true
			}
		}
	}
	assert.Len(t, names, 150)
}

func TestErrorsWrapping(t *testing.T) {
	r := newTestRegistry(t)
	g := NewGraph(t.Name())
	files, _ := readFiles(t, r, g)
	crop := must.M1(r.New("Crop", Args{"crop": 10}))
	_, err := crop.Call(g, Edges(files), Args{"crop": "x"})
	var argErr *ArgumentTypeError
	require.ErrorAs(t, err, &argErr)
	require.NotNil(t, errors.Unwrap(argErr))
	assert.True(t, strings.HasPrefix(err.Error(), `operator Crop, argument "crop"`), err.Error())

	shapeErr := &InputShapeMismatchError{Op: "Mux", Index: 1, Expected: 2, Got: 3}
	assert.Equal(t, "operator Mux: all input sets must have the same length 2, but input 1 has length 3", shapeErr.Error())
}
