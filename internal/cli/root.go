// Package cli implements the photocarve command line.
package cli

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"photocarve/internal/config"
	"photocarve/internal/features"
	photoimage "photocarve/internal/image"
	"photocarve/internal/logging"
	"photocarve/internal/pipeline"
	"photocarve/internal/prefs"
	"photocarve/internal/projection"
	"photocarve/internal/version"
)

// Root holds the state shared by every command: the resolved configuration,
// the logger and the feature extractor.
type Root struct {
	out       io.Writer
	errOut    io.Writer
	extractor features.Extractor

	log    *slog.Logger
	prefs  *prefs.Prefs
	cfg    config.Config
	canvas projection.Canvas

	prefsPath     string
	logLevel      string
	logFormat     string
	canvasArg     string
	detector      string
	widthLimit    int
	maxFeatures   int
	edgeThreshold int
	ratio         float64
	noAlign       bool
	brushRadius   float64

	blend     string
	opacity   float64
	showMasks bool
}

// NewRoot creates a Root writing command output to out and logs to errOut.
// A nil extractor selects the OpenCV one.
func NewRoot(out, errOut io.Writer, extractor features.Extractor) *Root {
	if extractor == nil {
		extractor = features.NewExtractor()
	}
	return &Root{
		out:       out,
		errOut:    errOut,
		extractor: extractor,
		log:       logging.Discard(),
		cfg:       config.Default(),
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd(root *Root) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "photocarve",
		Short: "Align photographs of a scene and carve painted regions out of them",
		Long: `photocarve registers every photograph onto the first one (the baseline)
with feature matching and a RANSAC homography, then cuts foreground regions
out of each aligned photo from painted foreground/background hints.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.setup(cmd, true)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&root.prefsPath, "prefs", "", "preferences file (default "+prefs.DefaultPath()+")")
	pf.StringVar(&root.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&root.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&root.canvasArg, "canvas", "", "canvas size WxH (default: baseline size)")
	pf.StringVar(&root.detector, "detector", "akaze", "keypoint detector: akaze or orb")
	pf.IntVar(&root.widthLimit, "width-limit", config.DefaultWidthLimit, "detection frame width limit")
	pf.IntVar(&root.maxFeatures, "max-features", config.DefaultMaxFeatures, "ORB feature count")
	pf.IntVar(&root.edgeThreshold, "edge-threshold", config.DefaultEdgeThreshold, "ORB edge threshold")
	pf.Float64Var(&root.ratio, "ratio", config.DefaultRatioThreshold, "nearest/second-nearest ratio threshold")
	pf.BoolVar(&root.noAlign, "no-align", false, "skip alignment and stretch every image over the baseline")
	pf.Float64Var(&root.brushRadius, "brush-radius", config.DefaultBrushRadius, "paint stroke radius in image pixels")

	rootCmd.AddCommand(newAlignCmd(root))
	rootCmd.AddCommand(newCarveCmd(root))
	rootCmd.AddCommand(newKeypointsCmd(root))
	rootCmd.AddCommand(newWatchCmd(root))
	rootCmd.AddCommand(newConfigCmd(root))
	rootCmd.AddCommand(newVersionCmd(root))
	return rootCmd
}

// setup builds the logger and resolves the configuration: persisted
// settings, then environment, then flags that were set explicitly.
func (r *Root) setup(cmd *cobra.Command, validate bool) error {
	r.log = logging.New(r.logLevel, r.logFormat, r.errOut)
	slog.SetDefault(r.log)

	var err error
	if r.prefsPath != "" {
		r.prefs, err = prefs.Open(r.prefsPath)
	} else {
		r.prefs, err = prefs.Load()
	}
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}

	cfg, err := config.FromPrefs(r.prefs)
	if err != nil {
		return err
	}
	if cfg, err = config.ApplyEnv(cfg); err != nil {
		return err
	}
	if cfg, err = r.applyFlags(cmd, cfg); err != nil {
		return err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	r.cfg = cfg

	if r.canvas, err = parseCanvas(r.canvasArg); err != nil {
		return err
	}
	r.log.Debug("starting", "version", version.UserAgent())
	r.log.Debug("configuration resolved",
		"detector", cfg.Detector, "width_limit", cfg.WidthLimit, "ratio", cfg.RatioThreshold,
		"alignment", cfg.AlignmentEnabled, "prefs", r.prefs.Path())
	return nil
}

func (r *Root) applyFlags(cmd *cobra.Command, cfg config.Config) (config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("detector") {
		det, err := config.ParseDetector(r.detector)
		if err != nil {
			return cfg, err
		}
		cfg.Detector = det
	}
	if flags.Changed("width-limit") {
		cfg.WidthLimit = r.widthLimit
	}
	if flags.Changed("max-features") {
		cfg.MaxFeatures = r.maxFeatures
	}
	if flags.Changed("edge-threshold") {
		cfg.EdgeThreshold = r.edgeThreshold
	}
	if flags.Changed("ratio") {
		cfg.RatioThreshold = r.ratio
	}
	if flags.Changed("no-align") {
		cfg.AlignmentEnabled = !r.noAlign
	}
	if flags.Changed("brush-radius") {
		cfg.BrushRadius = r.brushRadius
	}
	return cfg, nil
}

// parseCanvas parses "WxH". An empty string yields the zero canvas, which
// means the baseline's native size.
func parseCanvas(s string) (projection.Canvas, error) {
	if s == "" {
		return projection.Canvas{}, nil
	}
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return projection.Canvas{}, fmt.Errorf("invalid canvas %q: want WxH", s)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(ws))
	h, errH := strconv.Atoi(strings.TrimSpace(hs))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return projection.Canvas{}, fmt.Errorf("invalid canvas %q: want positive WxH", s)
	}
	return projection.Canvas{Width: w, Height: h}, nil
}

// canvasFor returns the requested canvas, or the baseline's size.
func (r *Root) canvasFor(p *pipeline.Pipeline) projection.Canvas {
	if r.canvas.Width > 0 {
		return r.canvas
	}
	if base := p.Store().At(0); base != nil {
		return projection.Canvas{Width: base.Width(), Height: base.Height()}
	}
	return projection.Canvas{}
}

// openPipeline loads paths in order (the first one is the baseline) and
// wires event logging.
func (r *Root) openPipeline(paths []string) (*pipeline.Pipeline, error) {
	layers, err := photoimage.LoadAll(paths)
	if err != nil {
		return nil, err
	}
	for i, l := range layers {
		r.log.Info("loaded image", "index", i, "name", l.Name, "size", fmt.Sprintf("%dx%d", l.Width(), l.Height()))
	}
	return r.newPipeline(photoimage.NewStore(layers...)), nil
}

func (r *Root) newPipeline(store *photoimage.Store) *pipeline.Pipeline {
	p := pipeline.New(store, r.extractor, r.log)
	p.On(pipeline.EventAlignmentFailed, func(data interface{}) {
		fmt.Fprintf(r.out, "warning: %v\n", data)
	})
	p.On(pipeline.EventCompositeReady, func(data interface{}) {
		r.log.Debug("composite ready", "index", data)
	})
	return p
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
