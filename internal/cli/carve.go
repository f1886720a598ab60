package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"photocarve/internal/pipeline"
	"photocarve/pkg/geometry"
)

// strokeEntry is one entry of a strokes file. Coordinates are canvas pixels.
type strokeEntry struct {
	Image      int        `json:"image"`
	From       [2]float64 `json:"from"`
	To         [2]float64 `json:"to"`
	Background bool       `json:"background"`
	Erase      bool       `json:"erase"`
}

func readStrokes(path string) ([]pipeline.Stroke, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strokes: %w", err)
	}
	var entries []strokeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse strokes %s: %w", filepath.Base(path), err)
	}
	strokes := make([]pipeline.Stroke, len(entries))
	for i, s := range entries {
		strokes[i] = pipeline.Stroke{
			Image:      s.Image,
			From:       geometry.Point2D{X: s.From[0], Y: s.From[1]},
			To:         geometry.Point2D{X: s.To[0], Y: s.To[1]},
			Background: s.Background,
			Erase:      s.Erase,
		}
	}
	return strokes, nil
}

func newCarveCmd(root *Root) *cobra.Command {
	var (
		strokesPath string
		outDir      string
	)
	cmd := &cobra.Command{
		Use:   "carve <baseline> <image> [images...]",
		Short: "Paint strokes onto aligned images and write the carved composites",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := root.renderer(); err != nil {
				return err
			}
			strokes, err := readStrokes(strokesPath)
			if err != nil {
				return err
			}
			p, err := root.openPipeline(args)
			if err != nil {
				return err
			}
			if _, err := p.UpdateImages(root.cfg); err != nil {
				return err
			}

			canvas := root.canvasFor(p)
			for n, s := range strokes {
				if err := p.PaintStroke(s, canvas, root.cfg); err != nil {
					return fmt.Errorf("stroke %d: %w", n, err)
				}
			}

			report, err := p.UpdateImages(root.cfg)
			if err != nil {
				return err
			}
			return root.writeComposites(p, report, outDir)
		},
	}
	cmd.Flags().StringVarP(&strokesPath, "strokes", "s", "", "JSON file of paint strokes")
	cmd.Flags().StringVarP(&outDir, "out", "o", "carved", "output directory")
	_ = cmd.MarkFlagRequired("strokes")
	addRenderFlags(cmd, root)
	return cmd
}

func (r *Root) writeComposites(p *pipeline.Pipeline, report *pipeline.Report, dir string) error {
	written := 0
	for i, l := range p.Store().Layers() {
		comp := p.Composite(i)
		if comp == nil {
			continue
		}
		name := strings.TrimSuffix(l.Name, filepath.Ext(l.Name))
		path := filepath.Join(dir, fmt.Sprintf("%02d_%s.png", i, name))
		if err := writePNG(path, comp); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "[%d] %s -> %s\n", i, l.Name, path)
		written++
	}
	fmt.Fprintf(r.out, "%d composites written, %d recomputed this pass\n", written, len(report.Composited))
	return r.writeOverlay(p, filepath.Join(dir, "overlay.png"))
}
