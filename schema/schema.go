// Package schema describes operators: their input arity, how many outputs they produce, and the
// arguments they accept.
//
// Schema and Registry are the interfaces the graph builder consumes. OpSchema is a fluent
// implementation of Schema, and Catalog a thread-safe in-memory Registry:
//
//	catalog := schema.NewCatalog()
//	err := catalog.Register(
//		schema.New("Resize").
//			DocStr("Resizes images.").
//			NumInput(1).NumOutput(1).
//			AddOptionalTensorArg("resize_x", types.ArgFloat, float32(0), "Width of the output."),
//		types.AffinityCPU, types.AffinityGPU)
package schema

import (
	"github.com/gomlx/opgraph/spec"
	"github.com/gomlx/opgraph/types"
)

// Schema is the read-only metadata of one operator.
type Schema interface {
	Name() string
	Doc() string

	// MinNumInput and MaxNumInput bound the number of positional inputs of one input set.
	MinNumInput() int
	MaxNumInput() int

	// CalculateOutputs returns the number of regular outputs of a node with the given spec.
	CalculateOutputs(s *spec.OpSpec) (int, error)

	// CalculateAdditionalOutputs returns the number of extra outputs, on top of the regular ones.
	CalculateAdditionalOutputs(s *spec.OpSpec) (int, error)

	AllowsMultipleInputSets() bool

	IsDeprecated() bool
	// DeprecatedInFavorOf returns the name of the replacement of a deprecated operator, or "".
	DeprecatedInFavorOf() string

	// IsNoPrune returns whether nodes of this operator must never be pruned.
	IsNoPrune() bool

	IsSequenceOperator() bool
	AllowsSequences() bool

	// ArgumentNames returns the names of all accepted arguments, sorted alphabetically regardless of
	// the order they were declared in.
	ArgumentNames() []string
	HasArgument(name string) bool
	ArgumentType(name string) (types.ArgType, bool)
	IsArgumentOptional(name string) bool
	ArgumentDefault(name string) (value any, found bool)
	ArgumentDoc(name string) string

	// IsTensorArgument returns whether the argument can be fed per sample by an edge.
	IsTensorArgument(name string) bool

	// CheckArgs validates a fully built spec.
	CheckArgs(s *spec.OpSpec) error
}

// Registry looks up schemas by name and lists the operators available per device class.
type Registry interface {
	GetSchema(name string) (Schema, error)

	RegisteredCPUOps() []string
	RegisteredGPUOps() []string
	RegisteredMixedOps() []string
	RegisteredSupportOps() []string
}
