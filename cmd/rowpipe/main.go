// Command rowpipe resizes an image through a fused row pipeline.
//
// The image is split into R, G and B planes, converted to float, resampled,
// optionally mapped to other primaries and quantised back to 8 bits with
// the selected dither. Only the rows each stage needs stay resident.
//
// Usage:
//
//	rowpipe [flags] <input> <output.png>
package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"github.com/spf13/pflag"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/rowpipe"
	"github.com/gogpu/rowpipe/colorspace"
	"github.com/gogpu/rowpipe/depth"
	"github.com/gogpu/rowpipe/resize"
)

// levelFlag adapts slog.Level to pflag.Value.
type levelFlag struct {
	slog.Level
}

func (l *levelFlag) Set(s string) error { return l.UnmarshalText([]byte(s)) }
func (l *levelFlag) Type() string       { return "level" }

type config struct {
	input, output string

	width, height int
	filter        resize.Filter
	cpu           rowpipe.Tier
	dither        depth.Dither
	primaries     colorspace.Primaries

	workers int
	bands   int
	tile    int
	repeat  int
}

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags] <input> <output.png>\n", os.Args[0])
		pflag.PrintDefaults()
	}
	level := levelFlag{Level: slog.LevelWarn}
	pflag.Var(&level, "log-level", "log level (debug, info, warn, error)")
	width := pflag.Int("width", 0, "output width; 0 keeps the aspect ratio")
	height := pflag.Int("height", 0, "output height; 0 keeps the aspect ratio")
	filterName := pflag.String("filter", "bicubic", "resampling filter: point, bilinear, bicubic, spline, lanczos")
	cpuName := pflag.String("cpu", "auto", "highest capability tier: auto, none, simd128, simd256, simd512")
	ditherName := pflag.String("dither", "ordered", "dither when quantising: none, ordered, error_diffusion")
	primariesName := pflag.String("primaries", "", "map sRGB primaries to smpte-c, 2020 or p3-d65")
	workers := pflag.Int("workers", 0, "worker goroutines; 0 means GOMAXPROCS")
	bands := pflag.Int("bands", 0, "row bands run in parallel; 0 means one per worker")
	tile := pflag.Int("tile", 0, "column tile width for single-band runs; 0 means whole rows")
	repeat := pflag.Int("repeat", 1, "run the pipeline this many times and report timings")
	pflag.Parse()
	if pflag.NArg() != 2 {
		pflag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level.Level}))
	rowpipe.SetLogger(logger)

	cfg, err := parseConfig(pflag.Arg(0), pflag.Arg(1), *filterName, *cpuName, *ditherName, *primariesName)
	if err != nil {
		logger.Error("invalid flags", "error", err)
		os.Exit(2)
	}
	cfg.width, cfg.height = *width, *height
	cfg.workers, cfg.bands, cfg.tile = *workers, *bands, *tile
	cfg.repeat = max(*repeat, 1)

	if err := run(cfg, logger); err != nil {
		logger.Error("rowpipe failed", "error", err)
		os.Exit(1)
	}
}

func parseConfig(input, output, filterName, cpuName, ditherName, primariesName string) (config, error) {
	cfg := config{input: input, output: output}
	var err error
	if cfg.filter, err = resize.ParseFilter(filterName); err != nil {
		return cfg, err
	}
	if cfg.cpu, err = rowpipe.ParseTier(cpuName); err != nil {
		return cfg, err
	}
	if cfg.dither, err = depth.ParseDither(ditherName); err != nil {
		return cfg, err
	}
	if cfg.primaries, err = colorspace.ParsePrimaries(primariesName); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// outputSize fills in a zero dimension from the source aspect ratio.
func outputSize(srcW, srcH, w, h int) (int, int) {
	switch {
	case w <= 0 && h <= 0:
		return srcW, srcH
	case w <= 0:
		return max(1, (srcW*h+srcH/2)/srcH), h
	case h <= 0:
		return w, max(1, (srcH*w+srcW/2)/srcW)
	}
	return w, h
}

// buildPipeline returns the stages for one plane set, in execution order.
func buildPipeline(cfg config, srcW, srcH, dstW, dstH int) ([]rowpipe.Stage, error) {
	toFloat, err := depth.New(depth.Params{
		Width:  srcW,
		Height: srcH,
		From:   rowpipe.PixelByte,
		To:     rowpipe.PixelFloat,
		CPU:    cfg.cpu,
	})
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}

	passes, err := resize.New(resize.Params{
		Filter:    cfg.filter,
		SrcWidth:  srcW,
		SrcHeight: srcH,
		DstWidth:  dstW,
		DstHeight: dstH,
		Pixel:     rowpipe.PixelFloat,
		CPU:       cfg.cpu,
	})
	if err != nil {
		return nil, fmt.Errorf("resize: %w", err)
	}
	stages := append([]rowpipe.Stage{toFloat}, passes...)

	if cfg.primaries != colorspace.PrimariesUnspecified && cfg.primaries != colorspace.PrimariesRec709 {
		conv, err := colorspace.Chain(colorspace.Params{
			Width:  dstW,
			Height: dstH,
			From:   colorspace.Definition{Matrix: colorspace.MatrixRGB, Primaries: colorspace.PrimariesRec709, Transfer: colorspace.TransferSRGB},
			To:     colorspace.Definition{Matrix: colorspace.MatrixRGB, Primaries: cfg.primaries, Transfer: colorspace.TransferSRGB},
			CPU:    cfg.cpu,
		})
		if err != nil {
			return nil, fmt.Errorf("colorspace: %w", err)
		}
		stages = append(stages, conv...)
	}

	toByte, err := depth.New(depth.Params{
		Width:  dstW,
		Height: dstH,
		From:   rowpipe.PixelFloat,
		To:     rowpipe.PixelByte,
		Dither: cfg.dither,
		CPU:    cfg.cpu,
	})
	if err != nil {
		return nil, fmt.Errorf("pack: %w", err)
	}
	return append(stages, toByte), nil
}

// cacheBytes sums the intermediate caches of a fused stage.
func cacheBytes(s rowpipe.Stage) int {
	p, ok := s.(*rowpipe.Pair)
	if !ok {
		return 0
	}
	return p.CacheSize() + cacheBytes(p.First()) + cacheBytes(p.Second())
}

func run(cfg config, logger *slog.Logger) error {
	img, format, err := decode(cfg.input)
	if err != nil {
		return err
	}
	src, err := splitPlanes(img)
	if err != nil {
		return err
	}
	srcW, srcH := img.Bounds().Dx(), img.Bounds().Dy()
	dstW, dstH := outputSize(srcW, srcH, cfg.width, cfg.height)

	factory := func() (rowpipe.Stage, error) {
		stages, err := buildPipeline(cfg, srcW, srcH, dstW, dstH)
		if err != nil {
			return nil, err
		}
		return rowpipe.Fuse(stages...)
	}
	probe, err := factory()
	if err != nil {
		return err
	}

	workers := cfg.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	bands := cfg.bands
	if bands <= 0 {
		bands = workers
	}
	logger.Info("pipeline",
		"input", cfg.input,
		"format", format,
		"in", probe.InputGeometry().String(),
		"out", probe.OutputGeometry().String(),
		"flags", probe.Flags().String(),
		"cache", humanize.Bytes(uint64(cacheBytes(probe))),
		"context", humanize.Bytes(uint64(probe.ContextSize())),
		"scratch", humanize.Bytes(uint64(probe.TmpSize(0, dstW))),
		"bands", bands,
	)

	r := rowpipe.NewRunner(rowpipe.WithWorkers(workers), rowpipe.WithTileWidth(cfg.tile))
	defer r.Close()

	dst, err := rowpipe.AllocBuffer(probe.OutputGeometry(), 3)
	if err != nil {
		return err
	}

	timings := make(stats.Float64Data, 0, cfg.repeat)
	for range cfg.repeat {
		start := time.Now()
		if bands > 1 {
			err = r.RunBands(factory, src, dst, bands)
		} else {
			err = r.Run(probe, src, dst)
		}
		if err != nil {
			return err
		}
		timings = append(timings, float64(time.Since(start).Microseconds())/1000)
	}
	if cfg.repeat > 1 {
		reportTimings(logger, timings, dstW*dstH)
	}
	tables := resize.FilterTableStats()
	logger.Debug("filter tables",
		"tables", tables.Tables,
		"capacity", tables.Capacity,
		"hits", tables.Hits,
		"misses", tables.Misses,
	)

	return encode(cfg.output, joinPlanes(dst, dstW, dstH))
}

func reportTimings(logger *slog.Logger, timings stats.Float64Data, pixels int) {
	mean, err := stats.Mean(timings)
	if err != nil {
		logger.Warn("timing summary unavailable", "error", err)
		return
	}
	median, _ := stats.Median(timings)
	p90, _ := stats.Percentile(timings, 90)
	minimum, _ := stats.Min(timings)
	attrs := []any{
		"runs", len(timings),
		"mean_ms", mean,
		"median_ms", median,
		"p90_ms", p90,
		"min_ms", minimum,
	}
	if minimum > 0 {
		attrs = append(attrs, "pixels_per_s", humanize.SIWithDigits(float64(pixels)/(minimum/1000), 2, ""))
	}
	logger.Info("timings", attrs...)
}

func decode(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}
	return img, format, nil
}

func encode(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// splitPlanes converts img to three full-frame byte planes.
func splitPlanes(img image.Image) (rowpipe.Buffer, error) {
	b := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)

	g := rowpipe.Geometry{Width: b.Dx(), Height: b.Dy(), Pixel: rowpipe.PixelByte}
	buf, err := rowpipe.AllocBuffer(g, 3)
	if err != nil {
		return nil, err
	}
	for y := 0; y < g.Height; y++ {
		pix := rgba.Pix[y*rgba.Stride:]
		for c := 0; c < 3; c++ {
			row := buf[c].Row(y)
			for x := 0; x < g.Width; x++ {
				row[x] = pix[x*4+c]
			}
		}
	}
	return buf, nil
}

// joinPlanes interleaves three byte planes into an opaque image.
func joinPlanes(buf rowpipe.Buffer, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		pix := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			pix[x*4+0] = buf[0].Row(y)[x]
			pix[x*4+1] = buf[1].Row(y)[x]
			pix[x*4+2] = buf[2].Row(y)[x]
			pix[x*4+3] = 0xff
		}
	}
	return img
}
