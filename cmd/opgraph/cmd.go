package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"path"
	"strconv"

	"github.com/gomlx/opgraph"
	"github.com/gomlx/opgraph/internal/envconfig"
	"github.com/gomlx/opgraph/schema"
	"github.com/gomlx/opgraph/schema/schemahcl"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

//go:embed schemas/*.hcl
var builtinSchemas embed.FS

type cliConfig struct {
	schemas []string
}

// NewCLI creates the root command.
func NewCLI() *cobra.Command {
	cfg := &cliConfig{}
	root := &cobra.Command{
		Use:           "opgraph",
		Short:         "Operator graph construction tool",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	if verbosity := envconfig.Verbosity(); verbosity > 0 {
		_ = klogFlags.Set("v", strconv.Itoa(verbosity))
	}
	root.PersistentFlags().AddGoFlagSet(klogFlags)
	root.PersistentFlags().StringSliceVar(&cfg.schemas, "schemas", envconfig.Schemas(),
		"Schema manifest files or directories to load, in addition to the builtin ones (env "+envconfig.SchemasVar+")")

	root.AddCommand(
		newOpsCmd(cfg),
		newDocCmd(cfg),
		newExampleCmd(cfg),
		newEnvCmd(),
	)
	return root
}

// loadCatalog registers the builtin schemas, then the ones of the configured manifests, which can
// override them.
func loadCatalog(ctx context.Context, cfg *cliConfig) (*schema.Catalog, error) {
	c := schema.NewCatalog()
	files, err := fs.Glob(builtinSchemas, "schemas/*"+schemahcl.Extension)
	if err != nil {
		return nil, errors.Wrap(err, "listing builtin schemas")
	}
	for _, file := range files {
		src, err := builtinSchemas.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "reading builtin schema %s", file)
		}
		if err := schemahcl.Register(ctx, c, "builtin:"+path.Base(file), src); err != nil {
			return nil, err
		}
	}
	if len(cfg.schemas) > 0 {
		if err := schemahcl.LoadFiles(ctx, c, cfg.schemas...); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func loadRegistry(ctx context.Context, cfg *cliConfig) (*opgraph.Registry, *schema.Catalog, error) {
	c, err := loadCatalog(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	r, err := opgraph.NewRegistry(c)
	if err != nil {
		return nil, nil, err
	}
	return r, c, nil
}
