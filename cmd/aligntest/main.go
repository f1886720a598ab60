// Command aligntest aligns one image onto a baseline and prints the matching
// statistics, the homography and per-match residuals.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"

	"photocarve/internal/alignment"
	"photocarve/internal/config"
	"photocarve/internal/features"
	photoimage "photocarve/internal/image"
	"photocarve/internal/match"
	"photocarve/internal/native"
)

func main() {
	basePath := flag.String("b", "", "Path to baseline image")
	targetPath := flag.String("t", "", "Path to image to align")
	detector := flag.String("detector", "akaze", "Detector: akaze or orb")
	width := flag.Int("w", config.DefaultWidthLimit, "Detection frame width limit")
	ratio := flag.Float64("ratio", config.DefaultRatioThreshold, "Ratio test threshold")
	all := flag.Bool("all", false, "Print residuals of outliers too")
	flag.Parse()

	if *basePath == "" || *targetPath == "" {
		fmt.Println("Usage: aligntest -b <baseline> -t <target> [-detector orb] [-w 800] [-ratio 0.7]")
		os.Exit(1)
	}

	cfg := config.Default()
	det, err := config.ParseDetector(*detector)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.Detector, cfg.WidthLimit, cfg.RatioThreshold = det, *width, *ratio
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ext := features.NewExtractor()
	base := extract(ext, *basePath, cfg)
	target := extract(ext, *targetPath, cfg)

	fmt.Printf("\n=== Matching ===\n")
	knn := match.KnnMatch(base.Descriptors, target.Descriptors, 2)
	good := match.RatioTest(knn, cfg.RatioThreshold)
	stats := match.Summarize(knn, good)
	fmt.Printf("Queries: %d, with two neighbours: %d, good: %d\n", stats.Queries, stats.WithPair, stats.Good)
	if stats.Good > 0 {
		fmt.Printf("Mean good distance: %.1f bits\n", stats.MeanDistance)
	}

	fmt.Printf("\n=== Homography ===\n")
	opts := alignment.DefaultOptions(cfg.RatioThreshold)
	res, err := alignment.Align(base, target, 1, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Alignment failed: %v\n", err)
		os.Exit(1)
	}
	h := res.Homography
	for row := 0; row < 3; row++ {
		fmt.Printf("  %12.6f %12.6f %12.6f\n", h[row*3], h[row*3+1], h[row*3+2])
	}
	fmt.Printf("Inliers: %d / %d\n", res.Inliers, res.Matches)
	fmt.Printf("Mean reprojection error: %.2f px (detection frame)\n", res.Error)
	fmt.Printf("Rotation: %.4f°\n", math.Atan2(h[3], h[0])*180/math.Pi)
	fmt.Printf("Scale: %.6f\n", math.Hypot(h[0], h[3]))

	printResiduals(base, target, good, res, opts.RANSAC.Threshold, *all)
}

func extract(ext features.Extractor, path string, cfg config.Config) *features.Set {
	fmt.Printf("=== Extracting: %s ===\n", path)
	l, err := photoimage.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load: %v\n", err)
		os.Exit(1)
	}
	set, err := ext.Extract(l.Image, features.ParamsFrom(cfg))
	if errors.Is(err, native.ErrUnavailable) {
		fmt.Fprintln(os.Stderr, "OpenCV support missing: rebuild with -tags gocv")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%dx%d -> %dx%d, %d keypoints\n",
		l.Width(), l.Height(), set.Frame.Width, set.Frame.Height, set.Len())
	return set
}

func printResiduals(base, target *features.Set, good []match.Match, res *alignment.Result, threshold float64, all bool) {
	basePts, targetPts := match.Correspondences(base, target, good)
	type entry struct {
		x, y, err float64
	}
	var entries []entry
	for i := range basePts {
		p, ok := res.Homography.Apply(targetPts[i])
		if !ok {
			continue
		}
		e := p.Distance(basePts[i])
		if e > threshold && !all {
			continue
		}
		entries = append(entries, entry{basePts[i].X, basePts[i].Y, e})
	}
	if len(entries) == 0 {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].y < entries[j].y })

	fmt.Printf("\nPer-match residuals (sorted by Y):\n")
	for _, e := range entries {
		mark := ""
		if e.err > threshold {
			mark = "  outlier"
		}
		fmt.Printf("  X=%6.1f Y=%6.1f  err=%.2f px%s\n", e.x, e.y, e.err, mark)
	}
}
