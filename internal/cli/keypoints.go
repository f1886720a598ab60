package cli

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/spf13/cobra"

	"photocarve/internal/features"
	photoimage "photocarve/internal/image"
)

func newKeypointsCmd(root *Root) *cobra.Command {
	var (
		out  string
		fill bool
	)
	cmd := &cobra.Command{
		Use:   "keypoints <image>",
		Short: "Detect keypoints and draw them over the image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := photoimage.Load(args[0])
			if err != nil {
				return err
			}
			set, err := root.extractor.Extract(l.Image, features.ParamsFrom(root.cfg))
			if err != nil {
				return err
			}
			fmt.Fprintf(root.out, "%s: %d keypoints (%s, frame %dx%d)\n",
				l.Name, set.Len(), root.cfg.Detector, set.Frame.Width, set.Frame.Height)
			if out == "" {
				return nil
			}

			dst := image.NewRGBA(l.Image.Bounds())
			draw.Draw(dst, dst.Bounds(), l.Image, image.Point{}, draw.Src)
			opts := features.DefaultDrawOptions()
			opts.Fill = fill
			if set.Frame.Scale > 0 {
				opts.Scale = 1 / set.Frame.Scale
			}
			features.DrawKeypoints(dst, set, opts)
			return writePNG(out, dst)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the visualisation to this PNG")
	cmd.Flags().BoolVar(&fill, "fill", false, "fill keypoint circles")
	return cmd
}
