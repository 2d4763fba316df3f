package main

import (
	"fmt"

	"github.com/gomlx/opgraph"
	"github.com/gomlx/opgraph/schema"
	"github.com/gomlx/opgraph/types"
	"github.com/spf13/cobra"
)

// customSchemas maps the custom operators to the schemas of their nodes.
var customSchemas = map[string]string{
	opgraph.RecordReaderName: schema.RecordReaderSchemaName,
	opgraph.FunctionSinkName: schema.FunctionSinkSchemaName,
}

func newDocCmd(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "doc NAME",
		Short: "Print the documentation of an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, c, err := loadRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			name := args[0]
			var d *opgraph.Descriptor
			if schemaName, isCustom := customSchemas[name]; isCustom {
				s, err := c.GetSchema(schemaName)
				if err != nil {
					return err
				}
				d, err = opgraph.MakeDescriptor(s, types.AffinityCPU)
				if err != nil {
					return err
				}
			} else {
				d, err = r.Lookup(name)
				if err != nil {
					return err
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), opgraph.GenerateDoc(d))
			return err
		},
	}
}
