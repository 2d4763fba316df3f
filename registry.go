package opgraph

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/gomlx/opgraph/internal/utils"
	"github.com/gomlx/opgraph/schema"
	"github.com/gomlx/opgraph/types"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Names of the custom operators, listed with the cpu operators but created with
// Registry.NewRecordReader and Registry.NewFunctionSink.
const (
	RecordReaderName = "RecordReader"
	FunctionSinkName = "FunctionSink"
)

var customOperators = []string{RecordReaderName, FunctionSinkName}

// Registry holds one Descriptor per operator available in a schema registry.
//
// Lookups are lock-free and can run concurrently with Reload: each discovery builds a new immutable
// snapshot that replaces the previous one. Discovery is monotonic: operators are never removed.
type Registry struct {
	schemas schema.Registry
	logger  logr.Logger

	// mu serializes discoveries.
	mu       sync.Mutex
	snapshot atomic.Pointer[registrySnapshot]
}

type registrySnapshot struct {
	descriptors map[string]*Descriptor
	byAffinity  map[types.DeviceAffinity]utils.Set[string]
}

func (s *registrySnapshot) clone() *registrySnapshot {
	c := &registrySnapshot{
		descriptors: maps.Clone(s.descriptors),
		byAffinity:  make(map[types.DeviceAffinity]utils.Set[string], len(s.byAffinity)),
	}
	for affinity, names := range s.byAffinity {
		c.byAffinity[affinity] = maps.Clone(names)
	}
	return c
}

// NewRegistry creates a Registry and discovers the operators of the schema registry.
func NewRegistry(schemas schema.Registry) (*Registry, error) {
	r := &Registry{
		schemas: schemas,
		logger:  klog.Background(),
	}
	empty := &registrySnapshot{
		descriptors: make(map[string]*Descriptor),
		byAffinity:  make(map[types.DeviceAffinity]utils.Set[string]),
	}
	for _, affinity := range types.DeviceAffinityValues() {
		empty.byAffinity[affinity] = utils.MakeSet[string]()
	}
	empty.byAffinity[types.AffinityCPU].Insert(customOperators...)
	r.snapshot.Store(empty)
	if _, err := r.Discover(); err != nil {
		return nil, err
	}
	return r, nil
}

// WithLogger sets the logger used by discoveries. The default is klog's.
func (r *Registry) WithLogger(logger logr.Logger) *Registry {
	r.logger = logger
	return r
}

// Discover queries the schema registry for the operators of each device class, and adds the new
// ones, or the new device classes of known ones. It returns all descriptors, sorted by name.
//
// Discovering again with no changes in the schema registry is a no-op.
func (r *Registry) Discover() ([]*Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snapshot.Load()
	next := current.clone()
	discovered := map[types.DeviceAffinity][]string{
		types.AffinityCPU:     r.schemas.RegisteredCPUOps(),
		types.AffinityGPU:     r.schemas.RegisteredGPUOps(),
		types.AffinityMixed:   r.schemas.RegisteredMixedOps(),
		types.AffinitySupport: r.schemas.RegisteredSupportOps(),
	}
	names := utils.MakeSet[string]()
	for affinity, affinityNames := range discovered {
		next.byAffinity[affinity].Insert(affinityNames...)
		names.Insert(affinityNames...)
	}

	var added, updated []string
	for _, name := range utils.Sorted(names) {
		if slices.Contains(customOperators, name) {
			return nil, errors.Errorf("operator name %q is reserved for a custom operator", name)
		}
		var devices []types.DeviceAffinity
		for _, affinity := range types.DeviceAffinityValues() {
			if next.byAffinity[affinity].Has(name) {
				devices = append(devices, affinity)
			}
		}
		s, err := r.schemas.GetSchema(name)
		if err != nil {
			return nil, errors.WithMessagef(err, "discovering operator %q", name)
		}
		existing := next.descriptors[name]
		if existing != nil && existing.schema == s && slices.Equal(existing.devices, devices) {
			continue
		}
		d, err := MakeDescriptor(s, devices...)
		if err != nil {
			return nil, err
		}
		next.descriptors[name] = d
		if existing == nil {
			added = append(added, name)
		} else {
			updated = append(updated, name)
		}
	}

	if len(added) > 0 || len(updated) > 0 {
		r.snapshot.Store(next)
		r.logger.V(1).Info("discovered operators", "new", added, "updated", updated, "total", len(next.descriptors))
	} else {
		next = current
		r.logger.V(2).Info("no new operators discovered", "total", len(current.descriptors))
	}
	return sortedDescriptors(next), nil
}

// Reload discovers the operators registered in the schema registry since the last discovery.
// Known operators whose schema was replaced, or that were registered for new device classes, get a
// new descriptor. Operators already created keep the descriptor they were created with.
func (r *Registry) Reload() error {
	_, err := r.Discover()
	return err
}

func sortedDescriptors(s *registrySnapshot) []*Descriptor {
	descriptors := slices.Collect(maps.Values(s.descriptors))
	slices.SortFunc(descriptors, func(a, b *Descriptor) int {
		switch {
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})
	return descriptors
}

// Descriptors returns the descriptors of all discovered operators, sorted by name.
func (r *Registry) Descriptors() []*Descriptor {
	return sortedDescriptors(r.snapshot.Load())
}

// Names returns the names of all operators, including the custom ones, sorted.
func (r *Registry) Names() []string {
	s := r.snapshot.Load()
	names := utils.MakeSet[string](len(s.descriptors) + len(customOperators))
	for name := range s.descriptors {
		names.Insert(name)
	}
	names.Insert(customOperators...)
	return utils.Sorted(names)
}

// Lookup returns the descriptor of the operator with the given name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	s := r.snapshot.Load()
	if d, found := s.descriptors[name]; found {
		return d, nil
	}
	switch name {
	case RecordReaderName:
		return nil, errors.Errorf("%s is a custom operator, create it with Registry.NewRecordReader", name)
	case FunctionSinkName:
		return nil, errors.Errorf("%s is a custom operator, create it with Registry.NewFunctionSink", name)
	}
	return nil, errors.Errorf("unknown operator %q%s", name, utils.DidYouMean(name, r.Names()))
}

// New creates the operator with the given name, see Descriptor.New.
func (r *Registry) New(name string, args Args) (*Operator, error) {
	d, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return d.New(args)
}

func (r *Registry) registered(affinity types.DeviceAffinity) []string {
	return utils.Sorted(r.snapshot.Load().byAffinity[affinity])
}

// CPUOps returns the names of the operators available on the cpu, including the custom ones, sorted.
func (r *Registry) CPUOps() []string { return r.registered(types.AffinityCPU) }

// GPUOps returns the names of the operators available on the gpu, sorted.
func (r *Registry) GPUOps() []string { return r.registered(types.AffinityGPU) }

// MixedOps returns the names of the mixed operators, sorted.
func (r *Registry) MixedOps() []string { return r.registered(types.AffinityMixed) }

// SupportOps returns the names of the support operators, sorted.
func (r *Registry) SupportOps() []string { return r.registered(types.AffinitySupport) }
