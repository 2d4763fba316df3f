package opgraph

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
)

func TestGenerateDoc(t *testing.T) {
	r := newTestRegistry(t)

	doc := GenerateDoc(must.M1(r.Lookup("Resize")))
	assert.Contains(t, doc, ".. _Resize:\n\nThis is a 'CPU', 'GPU' operator\n\nResizes images.\n")
	assert.Contains(t, doc, "This operator allows sequence inputs")
	assert.Contains(t, doc, "\nParameters\n----------\n")
	assert.Contains(t, doc, "`resize_x` : float or TensorList of float, optional, default = 0\n")
	assert.Contains(t, doc, "`resize_y` : float or TensorList of float, optional, default = 0\n"+
		"             Height.\n"+
		"             Zero keeps the aspect ratio.\n")
	assert.Contains(t, doc, "`preserve` : bool, optional, default = false\n")
	assert.Contains(t, doc, "`bytes_per_sample_hint` : int or list of int, optional, default = [0]\n")
	assert.NotContains(t, doc, "deprecated")

	doc = GenerateDoc(must.M1(r.Lookup("VideoReader")))
	assert.Contains(t, doc, "This is a 'GPU' operator")
	assert.Contains(t, doc, "This operator expects sequence inputs")
	assert.Contains(t, doc, "`filenames` : str or list of str\n")

	doc = GenerateDoc(must.M1(r.Lookup("OldResize")))
	assert.Contains(t, doc, ".. warning::\n\n   This operator is now deprecated. Use `Resize` instead\n")

	doc = GenerateDoc(must.M1(r.Lookup("KeepMe")))
	assert.Contains(t, doc, "This operator will **not** be optimized out of the graph.")

	doc = GenerateDoc(must.M1(r.Lookup("CoinFlip")))
	assert.Contains(t, doc, "This is a 'support' operator")
	assert.Contains(t, doc, "`probability` : float, optional, default = 0.5\n")
}
