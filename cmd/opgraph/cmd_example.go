package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gomlx/opgraph"
	"github.com/gomlx/opgraph/internal/envconfig"
	"github.com/gomlx/opgraph/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newExampleCmd(cfg *cliConfig) *cobra.Command {
	var (
		pipeline, format string
		files            []string
	)
	cmd := &cobra.Command{
		Use:   "example",
		Short: "Build an example graph and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := loadRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			var p *opgraph.Program
			switch pipeline {
			case "video":
				p, err = buildVideoPipeline(r, files)
			case "records":
				p, err = buildRecordsPipeline(r, files)
			default:
				return errors.Errorf("unknown pipeline %q, valid values are \"video\" and \"records\"", pipeline)
			}
			if err != nil {
				return err
			}
			return writeProgram(cmd.OutOrStdout(), p, format)
		},
	}
	cmd.Flags().StringVar(&pipeline, "pipeline", "video", `Example to build: "video" or "records"`)
	cmd.Flags().StringVar(&format, "format", envconfig.Format(), `Output format: "text" or "json" (env `+envconfig.FormatVar+`)`)
	cmd.Flags().StringSliceVar(&files, "files", nil, "Input files of the pipeline")
	return cmd
}

func writeProgram(w io.Writer, p *opgraph.Program, format string) error {
	switch format {
	case "text":
		return p.Write(w)
	case "json":
		data, err := p.MarshalJSON()
		if err != nil {
			return err
		}
		var indented bytes.Buffer
		if err := json.Indent(&indented, data, "", "  "); err != nil {
			return errors.Wrap(err, "formatting program")
		}
		indented.WriteByte('\n')
		_, err = indented.WriteTo(w)
		return err
	}
	return errors.Errorf("unknown format %q, valid values are %q", format, envconfig.Formats)
}

// buildVideoPipeline reads video sequences on the gpu, crops them at random positions and resizes
// the first and last frames.
func buildVideoPipeline(r *opgraph.Registry, files []string) (*opgraph.Program, error) {
	if len(files) == 0 {
		files = []string{"video.mp4"}
	}
	g := opgraph.NewGraph("video")
	reader, err := r.New("VideoReader", opgraph.Args{"device": "gpu", "filenames": files, "sequence_length": 8})
	if err != nil {
		return nil, err
	}
	frames, err := reader.Call(g, nil, nil)
	if err != nil {
		return nil, err
	}
	uniform, err := r.New("Uniform", opgraph.Args{"range": []float32{0, 1}})
	if err != nil {
		return nil, err
	}
	posX, err := uniform.Call(g, nil, nil)
	if err != nil {
		return nil, err
	}
	crop, err := r.New("Crop", opgraph.Args{"device": "gpu", "crop": []float32{224, 224}})
	if err != nil {
		return nil, err
	}
	cropped, err := crop.Call(g, opgraph.Edges(frames.Single()), opgraph.Args{"crop_pos_x": posX.Single()})
	if err != nil {
		return nil, err
	}
	extract, err := r.New("ElementExtract", opgraph.Args{"device": "gpu", "element_map": []int64{0, 7}})
	if err != nil {
		return nil, err
	}
	firstAndLast, err := extract.Call(g, opgraph.Edges(cropped.Single()), nil)
	if err != nil {
		return nil, err
	}
	resize, err := r.New("Resize", opgraph.Args{"device": "gpu", "resize_x": 112, "resize_y": 112})
	if err != nil {
		return nil, err
	}
	resized, err := resize.Call(g, []opgraph.Input{opgraph.EdgeSet(firstAndLast)}, nil)
	if err != nil {
		return nil, err
	}
	dump, err := r.New("DumpImage", opgraph.Args{"device": "gpu", "suffix": "first"})
	if err != nil {
		return nil, err
	}
	if _, err := dump.Call(g, opgraph.Edges(resized[0]), nil); err != nil {
		return nil, err
	}
	return g.Build(resized...)
}

// buildRecordsPipeline reads encoded images and labels from record files, decodes and randomly flips
// the images, and counts the labels on the host.
func buildRecordsPipeline(r *opgraph.Registry, files []string) (*opgraph.Program, error) {
	if len(files) == 0 {
		files = []string{"train-00000.rec"}
	}
	indexFiles := make([]string, len(files))
	for i, file := range files {
		indexFiles[i] = file + ".idx"
	}
	features := opgraph.NewFeatures()
	encoded, err := types.FixedLenFeature(nil, types.ArgString, "")
	if err != nil {
		return nil, err
	}
	features.Set("image/encoded", encoded)
	label, err := types.FixedLenFeature([]int{1}, types.ArgInt64, -1)
	if err != nil {
		return nil, err
	}
	features.Set("image/class/label", label)

	g := opgraph.NewGraph("records")
	reader, err := r.NewRecordReader(files, indexFiles, features, opgraph.Args{"random_shuffle": true})
	if err != nil {
		return nil, err
	}
	outputs, err := reader.Call(g, nil, nil)
	if err != nil {
		return nil, err
	}
	images, _ := outputs.Get("image/encoded")
	labels, _ := outputs.Get("image/class/label")

	decoder, err := r.New("ImageDecoder", opgraph.Args{"device": "mixed"})
	if err != nil {
		return nil, err
	}
	decoded, err := decoder.Call(g, opgraph.Edges(images), nil)
	if err != nil {
		return nil, err
	}
	coin, err := r.New("CoinFlip", opgraph.Args{"probability": 0.5})
	if err != nil {
		return nil, err
	}
	horizontal, err := coin.Call(g, nil, nil)
	if err != nil {
		return nil, err
	}
	flip, err := r.New("Flip", opgraph.Args{"device": "gpu"})
	if err != nil {
		return nil, err
	}
	flipped, err := flip.Call(g, opgraph.Edges(decoded.Single()), opgraph.Args{"horizontal": horizontal.Single()})
	if err != nil {
		return nil, err
	}

	counts := make(map[any]int)
	counter, err := r.NewFunctionSink(func(inputs []any) ([]any, error) {
		if len(inputs) != 1 {
			return nil, errors.Errorf("expected 1 input, got %d", len(inputs))
		}
		counts[fmt.Sprint(inputs[0])]++
		return nil, nil
	}, 0, nil)
	if err != nil {
		return nil, err
	}
	if _, err := counter.Call(g, opgraph.Edges(labels), nil); err != nil {
		return nil, err
	}
	return g.Build(flipped...)
}
