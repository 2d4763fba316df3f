// Package schemahcl loads operator schemas from HCL manifests into a schema.Catalog.
//
// A manifest holds any number of operator blocks:
//
//	operator "Resize" {
//	  devices                   = ["cpu", "gpu"]
//	  doc                       = "Resizes images."
//	  num_inputs                = 1
//	  allow_multiple_input_sets = true
//
//	  argument "resize_x" {
//	    type    = "float"
//	    default = 0
//	    tensor  = true
//	    doc     = "Width of the output."
//	  }
//	}
//
// Inputs are given either as num_inputs or as min_inputs/max_inputs (default 0). Outputs are given
// as num_outputs (default 1) or outputs_from_arg. An argument is optional if it has a default or
// sets optional = true. Argument types are the names of types.ArgType values.
package schemahcl

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/opgraph/schema"
	"github.com/gomlx/opgraph/types"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Extension of the manifest files picked up when loading directories.
const Extension = ".hcl"

// maxParallelFiles bounds the number of manifests parsed concurrently.
const maxParallelFiles = 8

type hclManifest struct {
	Operators []*hclOperator `hcl:"operator,block"`
}

type hclOperator struct {
	Name                   string         `hcl:"name,label"`
	Devices                []string       `hcl:"devices"`
	Doc                    string         `hcl:"doc,optional"`
	NumInputs              *int           `hcl:"num_inputs,optional"`
	MinInputs              *int           `hcl:"min_inputs,optional"`
	MaxInputs              *int           `hcl:"max_inputs,optional"`
	NumOutputs             *int           `hcl:"num_outputs,optional"`
	OutputsFromArg         string         `hcl:"outputs_from_arg,optional"`
	AdditionalOutputs      int            `hcl:"additional_outputs,optional"`
	AllowMultipleInputSets bool           `hcl:"allow_multiple_input_sets,optional"`
	NoPrune                bool           `hcl:"no_prune,optional"`
	Deprecated             bool           `hcl:"deprecated,optional"`
	Replacement            string         `hcl:"replacement,optional"`
	SequenceOperator       bool           `hcl:"sequence_operator,optional"`
	AllowsSequences        bool           `hcl:"allows_sequences,optional"`
	Arguments              []*hclArgument `hcl:"argument,block"`
}

type hclArgument struct {
	Name     string     `hcl:"name,label"`
	Type     string     `hcl:"type"`
	Doc      string     `hcl:"doc,optional"`
	Default  *cty.Value `hcl:"default,optional"`
	Optional bool       `hcl:"optional,optional"`
	Tensor   bool       `hcl:"tensor,optional"`
}

// Definition is one operator schema read from a manifest, with the device classes it is available on.
type Definition struct {
	Schema  *schema.OpSchema
	Devices []types.DeviceAffinity
}

// Parse parses one manifest and returns its definitions, in the order they are declared.
// The filename is only used in error messages.
func Parse(filename string, src []byte) ([]Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to parse schema manifest %s", filename)
	}
	var manifest hclManifest
	if diags = gohcl.DecodeBody(file.Body, nil, &manifest); diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to decode schema manifest %s", filename)
	}
	defs := make([]Definition, 0, len(manifest.Operators))
	for _, op := range manifest.Operators {
		def, err := op.toDefinition()
		if err != nil {
			return nil, errors.WithMessagef(err, "in schema manifest %s", filename)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (op *hclOperator) toDefinition() (Definition, error) {
	def := Definition{Schema: schema.New(op.Name).DocStr(strings.TrimSpace(op.Doc))}
	if len(op.Devices) == 0 {
		return Definition{}, errors.Errorf("operator %q has no devices", op.Name)
	}
	for _, name := range op.Devices {
		affinity, err := types.DeviceAffinityString(name)
		if err != nil {
			return Definition{}, errors.Wrapf(err, "operator %q", op.Name)
		}
		def.Devices = append(def.Devices, affinity)
	}

	s := def.Schema
	switch {
	case op.NumInputs != nil:
		if op.MinInputs != nil || op.MaxInputs != nil {
			return Definition{}, errors.Errorf("operator %q sets both num_inputs and min_inputs/max_inputs", op.Name)
		}
		s.NumInput(*op.NumInputs)
	default:
		minInputs, maxInputs := 0, 0
		if op.MinInputs != nil {
			minInputs = *op.MinInputs
		}
		if op.MaxInputs != nil {
			maxInputs = *op.MaxInputs
		} else {
			maxInputs = minInputs
		}
		s.NumInputRange(minInputs, maxInputs)
	}

	switch {
	case op.OutputsFromArg != "":
		if op.NumOutputs != nil {
			return Definition{}, errors.Errorf("operator %q sets both num_outputs and outputs_from_arg", op.Name)
		}
		s.OutputsFromArg(op.OutputsFromArg)
	case op.NumOutputs != nil:
		s.NumOutput(*op.NumOutputs)
	}
	s.AdditionalOutputs(op.AdditionalOutputs)

	if op.AllowMultipleInputSets {
		s.AllowMultipleInputSets()
	}
	if op.NoPrune {
		s.NoPrune()
	}
	if op.Deprecated {
		s.Deprecate(op.Replacement)
	} else if op.Replacement != "" {
		return Definition{}, errors.Errorf("operator %q sets a replacement but is not deprecated", op.Name)
	}
	if op.SequenceOperator {
		s.SequenceOperator()
	}
	if op.AllowsSequences {
		s.AllowSequences()
	}

	for _, arg := range op.Arguments {
		if err := addArgument(s, arg); err != nil {
			return Definition{}, errors.WithMessagef(err, "operator %q", op.Name)
		}
	}
	return def, s.Err()
}

func addArgument(s *schema.OpSchema, arg *hclArgument) error {
	argType, err := types.ArgTypeString(arg.Type)
	if err != nil {
		return errors.Wrapf(err, "argument %q", arg.Name)
	}
	doc := strings.TrimSpace(arg.Doc)
	var defaultValue any
	if arg.Default != nil && !arg.Default.IsNull() {
		defaultValue, err = types.FromCty(argType, *arg.Default)
		if err != nil {
			return errors.WithMessagef(err, "default of argument %q", arg.Name)
		}
	}
	optional := arg.Optional || defaultValue != nil
	switch {
	case optional && arg.Tensor:
		s.AddOptionalTensorArg(arg.Name, argType, defaultValue, doc)
	case optional:
		s.AddOptionalArg(arg.Name, argType, defaultValue, doc)
	case arg.Tensor:
		s.AddTensorArg(arg.Name, argType, doc)
	default:
		s.AddArg(arg.Name, argType, doc)
	}
	return nil
}

// Register parses a manifest and registers its schemas in the catalog.
func Register(ctx context.Context, c *schema.Catalog, filename string, src []byte) error {
	defs, err := Parse(filename, src)
	if err != nil {
		return err
	}
	return registerAll(ctx, c, filename, defs)
}

func registerAll(ctx context.Context, c *schema.Catalog, filename string, defs []Definition) error {
	logger := klog.FromContext(ctx)
	for _, def := range defs {
		if err := c.Register(def.Schema, def.Devices...); err != nil {
			return errors.WithMessagef(err, "registering schemas from %s", filename)
		}
		logger.V(2).Info("registered operator schema", "operator", def.Schema.Name(), "devices", def.Devices, "file", filename)
	}
	logger.V(1).Info("loaded schema manifest", "file", filename, "operators", len(defs))
	return nil
}

// LoadFiles reads the manifests in the given paths and registers their schemas in the catalog. Paths can be
// files or directories: directories are walked recursively for files with the manifest Extension.
//
// Files are parsed concurrently, and registered in the order of the paths (directory entries in
// lexical order), so later files override schemas of earlier ones. If any file fails, nothing is
// registered.
func LoadFiles(ctx context.Context, c *schema.Catalog, paths ...string) error {
	files, err := findManifests(paths)
	if err != nil {
		return err
	}
	results := make([][]Definition, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(file)
			if err != nil {
				return errors.Wrap(err, "failed to read schema manifest")
			}
			defs, err := Parse(file, src)
			if err != nil {
				return err
			}
			results[i] = defs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, file := range files {
		if err := registerAll(ctx, c, file, results[i]); err != nil {
			return err
		}
	}
	return nil
}

// findManifests expands directories into the manifest files they contain.
func findManifests(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "schema path %q", path)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == Extension {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walking schema directory %q", path)
		}
	}
	return files, nil
}
