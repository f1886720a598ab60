package cli

import (
	"errors"
	"fmt"
	"image"

	"github.com/spf13/cobra"

	"photocarve/internal/config"
	"photocarve/internal/features"
	"photocarve/internal/native"
	"photocarve/internal/version"
)

func newVersionCmd(root *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(root.out, version.String())
			status := "available"
			if !nativeAvailable() {
				status = "unavailable (build with -tags gocv)"
			}
			fmt.Fprintf(root.out, "OpenCV: %s\n", status)
			return nil
		},
	}
}

// nativeAvailable runs the native extractor on a tiny image.
func nativeAvailable() bool {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	p := features.ParamsFrom(config.Default())
	_, err := features.NewExtractor().Extract(img, p)
	return !errors.Is(err, native.ErrUnavailable)
}
