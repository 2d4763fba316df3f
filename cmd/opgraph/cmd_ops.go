package main

import (
	"fmt"
	"strings"

	"github.com/gomlx/opgraph"
	"github.com/gomlx/opgraph/schema"
	"github.com/gomlx/opgraph/types"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newOpsCmd(cfg *cliConfig) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:     "ops [PREFIX]",
		Aliases: []string{"ls"},
		Short:   "List the available operators",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := loadRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			var prefix string
			if len(args) > 0 {
				prefix = strings.ToLower(args[0])
			}
			var filter *types.DeviceAffinity
			if device != "" {
				affinity, err := types.DeviceAffinityString(device)
				if err != nil {
					return err
				}
				filter = &affinity
			}

			var data [][]string
			for _, d := range r.Descriptors() {
				if !strings.HasPrefix(strings.ToLower(d.Name()), prefix) {
					continue
				}
				if filter != nil && !d.RunsOn(*filter) {
					continue
				}
				data = append(data, []string{d.Name(), joinDevices(d.Devices()), d.Affinity().String(),
					inputsRange(d.Schema()), flags(d.Schema())})
			}
			if filter == nil || *filter == types.AffinityCPU {
				for _, name := range []string{opgraph.RecordReaderName, opgraph.FunctionSinkName} {
					if strings.HasPrefix(strings.ToLower(name), prefix) {
						data = append(data, []string{name, "cpu", "cpu", "-", "custom"})
					}
				}
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"NAME", "DEVICES", "DEFAULT", "INPUTS", "FLAGS"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "Only list operators available for this device class (cpu, gpu, mixed or support)")
	return cmd
}

func joinDevices(devices []types.DeviceAffinity) string {
	names := make([]string, len(devices))
	for i, affinity := range devices {
		names[i] = affinity.String()
	}
	return strings.Join(names, ",")
}

func inputsRange(s schema.Schema) string {
	switch {
	case s.MinNumInput() == s.MaxNumInput():
		return fmt.Sprintf("%d", s.MinNumInput())
	case s.MaxNumInput() == schema.MaxNumInputUnbounded:
		return fmt.Sprintf("%d+", s.MinNumInput())
	}
	return fmt.Sprintf("%d-%d", s.MinNumInput(), s.MaxNumInput())
}

func flags(s schema.Schema) string {
	var parts []string
	if s.AllowsMultipleInputSets() {
		parts = append(parts, "input_sets")
	}
	if s.IsSequenceOperator() {
		parts = append(parts, "sequences")
	}
	if s.IsNoPrune() {
		parts = append(parts, "no_prune")
	}
	if s.IsDeprecated() {
		parts = append(parts, "deprecated")
	}
	return strings.Join(parts, ",")
}
