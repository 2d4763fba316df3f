package schema

import (
	"fmt"
	"sync"
	"testing"

	"github.com/gomlx/opgraph/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	assert.Equal(t, 2, c.Len())
	assert.Empty(t, c.RegisteredCPUOps())

	_, err := c.GetSchema(RecordReaderSchemaName)
	require.NoError(t, err)
	_, err = c.GetSchema(FunctionSinkSchemaName)
	require.NoError(t, err)

	require.NoError(t, c.Register(resizeSchema(), types.AffinityCPU, types.AffinityGPU))
	require.NoError(t, c.Register(New("VideoReader").NumInput(0), types.AffinityGPU))
	require.NoError(t, c.Register(New("Decoder").NumInput(1), types.AffinityMixed))
	require.NoError(t, c.Register(New("CoinFlip").NumInput(0), types.AffinitySupport))

	assert.Equal(t, []string{"Resize"}, c.RegisteredCPUOps())
	assert.Equal(t, []string{"Resize", "VideoReader"}, c.RegisteredGPUOps())
	assert.Equal(t, []string{"Decoder"}, c.RegisteredMixedOps())
	assert.Equal(t, []string{"CoinFlip"}, c.RegisteredSupportOps())

	s, err := c.GetSchema("Resize")
	require.NoError(t, err)
	assert.Equal(t, "Resize", s.Name())

	_, err = c.GetSchema("Resise")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no schema registered for operator "Resise" (did you mean "Resize"?)`)

	err = c.Register(New("Bad").NumOutput(-1), types.AffinityCPU)
	require.Error(t, err)
	err = c.Register(New("Bad"), types.DeviceAffinity(17))
	require.Error(t, err)
	assert.Equal(t, []string{"Resize"}, c.RegisteredCPUOps())
}

func TestCatalogConcurrentRegister(t *testing.T) {
	c := NewCatalog()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("Op%02d", i)
			assert.NoError(t, c.Register(New(name), types.AffinityCPU))
			_, err := c.GetSchema(name)
			assert.NoError(t, err)
			_ = c.RegisteredCPUOps()
		}()
	}
	wg.Wait()
	assert.Len(t, c.RegisteredCPUOps(), 20)
}
