package schema

import (
	"sync"

	"github.com/gomlx/opgraph/internal/utils"
	"github.com/gomlx/opgraph/types"
	"github.com/pkg/errors"
)

// Names of the internal schemas backing the custom operators.
const (
	RecordReaderSchemaName = "_RecordReader"
	FunctionSinkSchemaName = "FunctionSinkImpl"
)

// Catalog is an in-memory Registry. It is safe for concurrent use, and schemas can be registered at
// any time: a registry discovery afterwards sees them.
type Catalog struct {
	mu      sync.RWMutex
	schemas map[string]Schema
	devices map[types.DeviceAffinity]utils.Set[string]
}

var _ Registry = (*Catalog)(nil)

// NewCatalog returns a Catalog holding only the internal schemas of the custom operators.
func NewCatalog() *Catalog {
	c := &Catalog{
		schemas: make(map[string]Schema),
		devices: make(map[types.DeviceAffinity]utils.Set[string]),
	}
	for _, affinity := range types.DeviceAffinityValues() {
		c.devices[affinity] = utils.MakeSet[string]()
	}
	for _, s := range builtinSchemas() {
		if err := c.Register(s); err != nil {
			panic(err)
		}
	}
	return c
}

// Register adds a schema, available in the given device classes. Schemas registered without device
// classes can be looked up but are not listed as operators.
//
// Registering a name again replaces its schema and adds the new device classes.
func (c *Catalog) Register(s Schema, devices ...types.DeviceAffinity) error {
	if s == nil || s.Name() == "" {
		return errors.New("cannot register a schema without a name")
	}
	if withErr, ok := s.(interface{ Err() error }); ok && withErr.Err() != nil {
		return withErr.Err()
	}
	for _, affinity := range devices {
		if !affinity.IsADeviceAffinity() {
			return errors.Errorf("cannot register %q for invalid device class %s", s.Name(), affinity)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[s.Name()] = s
	for _, affinity := range devices {
		c.devices[affinity].Insert(s.Name())
	}
	return nil
}

// GetSchema implements Registry.
func (c *Catalog) GetSchema(name string) (Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, found := c.schemas[name]; found {
		return s, nil
	}
	known := utils.Sorted(c.schemaNamesLocked())
	return nil, errors.Errorf("no schema registered for operator %q%s", name, utils.DidYouMean(name, known))
}

func (c *Catalog) schemaNamesLocked() utils.Set[string] {
	names := utils.MakeSet[string](len(c.schemas))
	for name := range c.schemas {
		names.Insert(name)
	}
	return names
}

// Len returns the number of registered schemas, including the internal ones.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.schemas)
}

func (c *Catalog) registered(affinity types.DeviceAffinity) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return utils.Sorted(c.devices[affinity])
}

// RegisteredCPUOps implements Registry.
func (c *Catalog) RegisteredCPUOps() []string { return c.registered(types.AffinityCPU) }

// RegisteredGPUOps implements Registry.
func (c *Catalog) RegisteredGPUOps() []string { return c.registered(types.AffinityGPU) }

// RegisteredMixedOps implements Registry.
func (c *Catalog) RegisteredMixedOps() []string { return c.registered(types.AffinityMixed) }

// RegisteredSupportOps implements Registry.
func (c *Catalog) RegisteredSupportOps() []string { return c.registered(types.AffinitySupport) }

func builtinSchemas() []*OpSchema {
	return []*OpSchema{
		New(RecordReaderSchemaName).
			DocStr("Reads features from indexed files of serialized records.").
			NumInput(0).
			OutputsFromArg("feature_names").
			AddArg("path", types.ArgStringVec, "List of paths to the record files.").
			AddArg("index_path", types.ArgStringVec, "List of paths to the index files, one per record file.").
			AddArg("feature_names", types.ArgStringVec, "Names of the features to extract, in output order.").
			AddArg("features", types.ArgFeatureVec, "Descriptions of the features, in the order of feature_names.").
			AddOptionalArg("random_shuffle", types.ArgBool, false, "Whether to randomly shuffle the records.").
			AddOptionalArg("initial_fill", types.ArgInt64, int64(1024), "Size of the buffer used for shuffling."),
		New(FunctionSinkSchemaName).
			DocStr("Runs a user supplied function on the host. Its outputs are never pruned.").
			NumInputRange(0, 256).
			OutputsFromArg("num_outputs").
			NoPrune().
			AddArg("function_id", types.ArgInt64, "Id of the function, used by the engine to find it.").
			AddOptionalArg("num_outputs", types.ArgInt64, int64(1), "Number of outputs returned by the function."),
	}
}
