package rowpipe

import (
	"errors"
	"fmt"

	"github.com/gogpu/rowpipe/internal/parallel"
)

// RunnerOption configures a Runner during creation.
//
// Example:
//
//	r := rowpipe.NewRunner(rowpipe.WithWorkers(4), rowpipe.WithTileWidth(512))
//	defer r.Close()
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	workers   int
	tileWidth int
	arenas    *ArenaPool
}

func defaultRunnerOptions() runnerOptions {
	return runnerOptions{
		workers:   0, // GOMAXPROCS
		tileWidth: 0, // whole rows
	}
}

// WithWorkers sets the number of goroutines used by RunBands.
// Zero or negative means GOMAXPROCS.
func WithWorkers(n int) RunnerOption {
	return func(o *runnerOptions) {
		o.workers = n
	}
}

// WithTileWidth makes Run process the frame in column tiles of the given
// width. Stages declaring EntireRow are always run over whole rows.
func WithTileWidth(w int) RunnerOption {
	return func(o *runnerOptions) {
		o.tileWidth = w
	}
}

// WithArenaPool shares an arena pool between runners.
func WithArenaPool(p *ArenaPool) RunnerOption {
	return func(o *runnerOptions) {
		o.arenas = p
	}
}

// Runner drives stages over whole frames held in full-frame buffers.
// It is the reference buffer-management collaborator: it sizes arenas
// from the stage's declarations and issues rows in order.
type Runner struct {
	opts   runnerOptions
	arenas *ArenaPool
	pool   *parallel.WorkerPool
}

// NewRunner creates a runner. Close releases its worker goroutines.
func NewRunner(opts ...RunnerOption) *Runner {
	o := defaultRunnerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	arenas := o.arenas
	if arenas == nil {
		arenas = NewArenaPool(8)
	}
	return &Runner{
		opts:   o,
		arenas: arenas,
		pool:   parallel.NewWorkerPool(o.workers),
	}
}

// Close stops the runner's workers.
func (r *Runner) Close() {
	r.pool.Close()
}

// planesFor returns how many planes a run of s over dst touches.
func planesFor(s Stage, dst Buffer) int {
	if s.Flags().Color {
		return 3
	}
	return len(dst)
}

func checkRun(s Stage, src, dst Buffer) (int, error) {
	if s == nil {
		return 0, ErrNilStage
	}
	planes := planesFor(s, dst)
	if planes == 0 {
		return 0, fmt.Errorf("%w: no destination planes", ErrBufferTooSmall)
	}
	if err := CheckBuffer(src, s.InputGeometry(), planes); err != nil {
		return 0, fmt.Errorf("source: %w", err)
	}
	if err := CheckBuffer(dst, s.OutputGeometry(), planes); err != nil {
		return 0, fmt.Errorf("destination: %w", err)
	}
	return planes, nil
}

// tiles returns the column tiles for a run of s.
func (r *Runner) tiles(s Stage) []Range {
	w := s.OutputGeometry().Width
	tw := r.opts.tileWidth
	if tw <= 0 || tw >= w || s.Flags().EntireRow {
		return []Range{{Lo: 0, Hi: w}}
	}
	tiles := make([]Range, 0, (w+tw-1)/tw)
	for lo := 0; lo < w; lo += tw {
		tiles = append(tiles, Range{Lo: lo, Hi: min(lo+tw, w)})
	}
	return tiles
}

// Run processes every output row of s, reading src and writing dst.
// Stages that are not colour coupled are run once per plane of dst, each
// plane with a freshly initialised context.
func (r *Runner) Run(s Stage, src, dst Buffer) error {
	planes, err := checkRun(s, src, dst)
	if err != nil {
		return err
	}
	h := s.OutputGeometry().Height
	for _, t := range r.tiles(s) {
		arena := r.arenas.Get(s, t.Lo, t.Hi)
		r.runPlanes(s, arena, src, dst, planes, Range{Lo: 0, Hi: h}, t)
		r.arenas.Put(arena)
	}
	return nil
}

func (r *Runner) runPlanes(s Stage, a *Arena, src, dst Buffer, planes int, rows, cols Range) {
	if s.Flags().Color {
		runRows(s, a, src, dst, rows, cols)
		return
	}
	for p := 0; p < planes; p++ {
		runRows(s, a, src.Sub(p), dst.Sub(p), rows, cols)
	}
}

func runRows(s Stage, a *Arena, src, dst Buffer, rows, cols Range) {
	step := s.SimultaneousLines()
	s.InitContext(a.Context())
	for i := rows.Lo; i < rows.Hi; i += step {
		s.Process(a.Context(), src, dst, a.Tmp(), i, cols.Lo, cols.Hi)
	}
}

// RunBands processes the frame as independent row bands on the runner's
// workers. Each band gets its own stage instance from factory and its own
// arena. Stages with sequential state produce different results when
// restarted mid-frame, so they are run as a single band.
func (r *Runner) RunBands(factory StageFactory, src, dst Buffer, bands int) error {
	probe, err := factory()
	if err != nil {
		return err
	}
	planes, err := checkRun(probe, src, dst)
	if err != nil {
		return err
	}
	if probe.Flags().HasState && bands > 1 {
		Logger().Warn("rowpipe: stateful stage, running bands sequentially", "bands", bands)
		bands = 1
	}

	g := probe.OutputGeometry()
	split := parallel.Bands(g.Height, bands, probe.SimultaneousLines())
	stages := make([]Stage, len(split))
	stages[0] = probe
	for k := 1; k < len(split); k++ {
		if stages[k], err = factory(); err != nil {
			return fmt.Errorf("band %d: %w", k, err)
		}
	}

	cols := Range{Lo: 0, Hi: g.Width}
	errs := make([]error, len(split))
	work := make([]func(), len(split))
	for k, b := range split {
		work[k] = func() {
			defer func() {
				if v := recover(); v != nil {
					errs[k] = fmt.Errorf("band %d: %v", k, v)
				}
			}()
			s := stages[k]
			arena := r.arenas.Get(s, cols.Lo, cols.Hi)
			r.runPlanes(s, arena, src, dst, planes, Range{Lo: b.Lo, Hi: b.Hi}, cols)
			r.arenas.Put(arena)
		}
	}
	r.pool.ExecuteAll(work)
	return errors.Join(errs...)
}

// RunReference runs each stage over a whole frame in turn, materialising
// every intermediate frame. It is the unfused behaviour a fused stage
// must reproduce byte for byte.
func (r *Runner) RunReference(src, dst Buffer, stages ...Stage) error {
	if len(stages) == 0 {
		return ErrNilStage
	}
	cur := src
	for k, s := range stages {
		if s == nil {
			return ErrNilStage
		}
		out := dst
		if k < len(stages)-1 {
			var err error
			if out, err = AllocBuffer(s.OutputGeometry(), len(dst)); err != nil {
				return err
			}
		}
		if err := r.Run(s, cur, out); err != nil {
			return fmt.Errorf("stage %d: %w", k, err)
		}
		cur = out
	}
	return nil
}
