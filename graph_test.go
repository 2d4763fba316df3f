package opgraph

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeIDs(nodes []*Node) []int64 {
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	return ids
}

func TestGraphBuild(t *testing.T) {
	r := newTestRegistry(t)
	g := NewGraph("train pipeline")
	files, labels := readFiles(t, r, g)
	reader := g.Producer(files)
	resize := must.M1(r.New("Resize", Args{"resize_x": 224}))
	resizeNode := must.M1(resize.Instantiate(g, Edges(files), nil))
	crop := must.M1(r.New("Crop", Args{"crop": []float32{200, 200}}))
	cropNode := must.M1(crop.Instantiate(g, Edges(resizeNode.Outputs()...), nil))
	unused := must.M1(resize.Instantiate(g, Edges(files), nil))
	dump := must.M1(r.New("Dump", Args{"preserve": true}))
	dumpNode := must.M1(dump.Instantiate(g, Edges(labels), nil))
	assert.Equal(t, 5, g.NumNodes())

	cropped := cropNode.Outputs()[0]
	p := must.M1(g.Build(cropped))
	assert.Equal(t, nodeIDs([]*Node{reader, resizeNode, cropNode, dumpNode}), nodeIDs(p.Nodes))
	assert.NotContains(t, nodeIDs(p.Nodes), unused.ID())
	assert.Equal(t, []*Edge{cropped}, p.Outputs)
	assert.Equal(t, []*Edge{dumpNode.Sink()}, p.Sinks)
	assert.Equal(t, g.ID(), p.ID)

	// Only the sinks.
	p = must.M1(g.Build())
	assert.Equal(t, nodeIDs([]*Node{reader, dumpNode}), nodeIDs(p.Nodes))

	t.Run("Text", func(t *testing.T) {
		text := p.String()
		assert.True(t, strings.HasPrefix(text, "graph @train_pipeline {\n"), text)
		assert.Contains(t, text, fmt.Sprintf("  // %s\n", reader.Name()))
		assert.Contains(t, text, fmt.Sprintf("  sinks(%%Dump_id_%d_sink)\n", dumpNode.ID()))
		assert.NotContains(t, text, "outputs(")
		assert.True(t, strings.HasSuffix(text, "}\n"))
		assert.Equal(t, text, string(must.M1(p.Bytes())))

		var sb strings.Builder
		require.NoError(t, g.Write(&sb))
		assert.Contains(t, sb.String(), unused.Name())
	})

	t.Run("JSON", func(t *testing.T) {
		p := must.M1(g.Build(cropped))
		var decoded struct {
			Name  string `json:"name"`
			ID    string `json:"id"`
			Nodes []struct {
				Name string         `json:"name"`
				Type string         `json:"type"`
				Spec map[string]any `json:"spec"`
			} `json:"nodes"`
			Outputs []string `json:"outputs"`
			Sinks   []string `json:"sinks"`
		}
		require.NoError(t, json.Unmarshal(must.M1(json.Marshal(p)), &decoded))
		assert.Equal(t, "train pipeline", decoded.Name)
		assert.Equal(t, g.ID().String(), decoded.ID)
		require.Len(t, decoded.Nodes, 4)
		assert.Equal(t, "Crop", decoded.Nodes[2].Type)
		assert.Equal(t, "Crop", decoded.Nodes[2].Spec["schema"])
		assert.Equal(t, []string{cropped.Name()}, decoded.Outputs)
		assert.Equal(t, []string{dumpNode.Sink().Name()}, decoded.Sinks)
	})
}

func TestGraphBuildErrors(t *testing.T) {
	r := newTestRegistry(t)
	g := NewGraph(t.Name())
	files, _ := readFiles(t, r, g)
	other := NewGraph("other")
	foreign, _ := readFiles(t, r, other)

	_, err := g.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to build")
	_, err = g.Build(files, foreign)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output #1")
	_, err = g.Build(nil)
	require.Error(t, err)
}

func TestGraphSinks(t *testing.T) {
	r := newTestRegistry(t)
	g := NewGraph(t.Name())
	files, labels := readFiles(t, r, g)
	other := NewGraph("other")
	foreign, _ := readFiles(t, r, other)

	require.NoError(t, g.AddSink(labels))
	require.NoError(t, g.AddSink(labels))
	assert.Equal(t, []*Edge{labels}, g.Sinks())
	assert.True(t, g.IsSink(labels))
	assert.False(t, g.IsSink(files))
	assert.False(t, other.IsSink(labels))

	require.Error(t, g.AddSink(nil))
	require.Error(t, g.AddSink(foreign))
	assert.Nil(t, g.Producer(foreign))
	assert.Nil(t, g.Node(-1))

	p := must.M1(g.Build())
	require.Len(t, p.Nodes, 1)
	assert.Same(t, g.Producer(labels), p.Nodes[0])
	assert.Same(t, p.Nodes[0], g.Node(p.Nodes[0].ID()))
	assert.Equal(t, fmt.Sprintf("Graph(%q, 1 nodes, 1 sinks)", t.Name()), g.String())
}
