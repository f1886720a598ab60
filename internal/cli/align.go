package cli

import (
	"fmt"
	"image"
	"math"

	"github.com/spf13/cobra"

	"photocarve/internal/pipeline"
	"photocarve/internal/render"
)

func newAlignCmd(root *Root) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "align <baseline> <image> [images...]",
		Short: "Align images onto the baseline and print their homographies",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := root.renderer(); err != nil {
				return err
			}
			p, err := root.openPipeline(args)
			if err != nil {
				return err
			}
			report, err := p.UpdateImages(root.cfg)
			if err != nil {
				return err
			}
			root.printAlignment(p, report)
			if out == "" {
				return nil
			}
			return root.writeOverlay(p, out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the aligned overlay to this PNG")
	addRenderFlags(cmd, root)
	return cmd
}

func (r *Root) printAlignment(p *pipeline.Pipeline, report *pipeline.Report) {
	layers := p.Store().Layers()
	fmt.Fprintf(r.out, "baseline: %s (%dx%d)\n", layers[0].Name, layers[0].Width(), layers[0].Height())
	for i := 1; i < len(layers); i++ {
		res, failure := p.Alignment(i)
		switch {
		case failure != nil:
			fmt.Fprintf(r.out, "[%d] %s: not aligned\n", i, layers[i].Name)
		case res == nil:
			fmt.Fprintf(r.out, "[%d] %s: stretched (alignment disabled)\n", i, layers[i].Name)
		default:
			h, _ := p.Projection().NativeHomography(i)
			fmt.Fprintf(r.out, "[%d] %s: %d matches, %d inliers, error %.2fpx\n",
				i, layers[i].Name, res.Matches, res.Inliers, res.Error)
			for row := 0; row < 3; row++ {
				fmt.Fprintf(r.out, "      %12.6f %12.6f %12.6f\n", h[row*3], h[row*3+1], h[row*3+2])
			}
		}
	}
	fmt.Fprintf(r.out, "%d extracted, %d aligned, %d failed\n",
		len(report.Extracted), len(report.Aligned), len(report.Failures))
}

// addRenderFlags registers the overlay options shared by align, carve and watch.
func addRenderFlags(cmd *cobra.Command, root *Root) {
	cmd.Flags().StringVar(&root.blend, "blend", "normal", "blend mode for aligned images: normal, multiply, screen, overlay, difference")
	cmd.Flags().Float64Var(&root.opacity, "opacity", 1, "opacity of aligned images over the baseline, 0..1")
	cmd.Flags().BoolVar(&root.showMasks, "show-masks", false, "draw painted strokes over the overlay")
}

// renderer builds the overlay renderer from the render flags.
func (r *Root) renderer() (*render.Software, error) {
	sw := render.NewSoftware()
	mode, err := render.ParseBlendMode(r.blend)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(r.opacity) || r.opacity < 0 || r.opacity > 1 {
		return nil, fmt.Errorf("invalid opacity %g: must be in [0, 1]", r.opacity)
	}
	sw.Mode, sw.Opacity, sw.ShowMasks = mode, r.opacity, r.showMasks
	return sw, nil
}

func (r *Root) writeOverlay(p *pipeline.Pipeline, path string) error {
	sw, err := r.renderer()
	if err != nil {
		return err
	}
	canvas := r.canvasFor(p)
	img, err := sw.Render(p.RenderInputs(-1), image.Pt(canvas.Width, canvas.Height))
	if err != nil {
		return err
	}
	if err := writePNG(path, img); err != nil {
		return err
	}
	r.log.Info("overlay written", "path", path, "canvas", fmt.Sprintf("%dx%d", canvas.Width, canvas.Height))
	return nil
}
