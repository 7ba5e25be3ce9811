// Package pipeline sequences the build stages.
//
// An Orchestrator owns the collaborators of every stage and assembles the
// named sequences once, at construction. Which build sequence applies is
// decided by the structure type alone. Only one sequence runs at a time; each
// run gets a fresh State and a build ID that is attached to every log line.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/mailwright/internal/archive"
	"github.com/conneroisu/mailwright/internal/catalog"
	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/data"
	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/images"
	"github.com/conneroisu/mailwright/internal/logging"
	"github.com/conneroisu/mailwright/internal/mjml"
	"github.com/conneroisu/mailwright/internal/paths"
)

// DataLoader builds the data table.
type DataLoader interface {
	Load(ctx context.Context, ps paths.PathSet) (data.Table, error)
}

// Renderer renders the preview index and the template sources.
type Renderer interface {
	RenderPreview(ctx context.Context, entries []catalog.Entry) error
	RenderTemplates(ctx context.Context, table data.Table) (int, error)
}

// ImageOptimizer moves images into the build output.
type ImageOptimizer interface {
	OptimizeAll(ctx context.Context, ps paths.PathSet) (images.Result, error)
}

// Packager archives the build output.
type Packager interface {
	Package(ctx context.Context, dir string) (archive.Result, error)
}

// Deps are the collaborators of the stages.
type Deps struct {
	Loader   DataLoader
	Renderer Renderer
	Compiler mjml.Compiler
	Images   ImageOptimizer
	Packager Packager
}

// Orchestrator runs stage sequences.
type Orchestrator struct {
	paths   paths.PathSet
	deps    Deps
	logger  logging.Logger
	metrics *RunMetrics

	sequences map[string]Sequence
	build     Sequence

	mu        sync.Mutex
	state     State
	lastPkg   archive.Result
	callbacks []RunCallback
}

// RunResult describes a finished sequence run.
type RunResult struct {
	Sequence string
	BuildID  string
	Duration time.Duration
	Err      error
}

// RunCallback is called after every sequence run.
type RunCallback func(result RunResult)

// New creates an Orchestrator for ps.
func New(ps paths.PathSet, deps Deps, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Nop()
	}
	o := &Orchestrator{
		paths:   ps,
		deps:    deps,
		logger:  logger.WithComponent("pipeline"),
		metrics: NewRunMetrics(),
	}

	core := Sequence{Name: SequenceCore, Stages: []Stage{
		{Name: StageClean, Run: o.clean},
		{Name: StageLoadData, Run: o.loadData},
		{Name: StageScanCatalog, Run: o.scanCatalog},
		{Name: StageRenderPreview, Run: o.renderPreview},
		{Name: StageRenderTemplates, Run: o.renderTemplates},
	}}
	standard := core.then(SequenceBuildStandard,
		Stage{Name: StageOptimizeImages, Run: o.optimizeImages})
	responsive := core.then(SequenceBuildResponsive,
		Stage{Name: StageCompileMJML, Run: o.compileMJML},
		Stage{Name: StageOptimizeImages, Run: o.optimizeImages})
	pkg := Sequence{Name: SequencePackage, Stages: []Stage{
		{Name: StagePackage, Run: o.packageOutput},
	}}

	o.sequences = map[string]Sequence{
		core.Name:       core,
		standard.Name:   standard,
		responsive.Name: responsive,
		pkg.Name:        pkg,
	}

	if ps.StructureType == config.StructureResponsive {
		o.build = responsive
	} else {
		o.build = standard
	}
	return o
}

// BuildSequence returns the build sequence for the configured structure type.
func (o *Orchestrator) BuildSequence() Sequence {
	return o.build
}

// Sequence looks up a sequence by name.
func (o *Orchestrator) Sequence(name string) (Sequence, bool) {
	s, ok := o.sequences[name]
	return s, ok
}

// Paths returns the resolved path set.
func (o *Orchestrator) Paths() paths.PathSet {
	return o.paths
}

// AddCallback registers fn to be called after every run.
func (o *Orchestrator) AddCallback(fn RunCallback) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callbacks = append(o.callbacks, fn)
}

// Build runs the build sequence.
func (o *Orchestrator) Build(ctx context.Context) error {
	return o.Run(ctx, o.build)
}

// Package runs the package sequence and returns its result.
func (o *Orchestrator) Package(ctx context.Context) (archive.Result, error) {
	seq := o.sequences[SequencePackage]
	if err := o.Run(ctx, seq); err != nil {
		return archive.Result{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastPkg, nil
}

// Run executes seq stage by stage. The first failing stage aborts the run and
// its error carries the stage name. Concurrent calls are serialised.
// Callbacks run after the orchestrator is unlocked, so they may call State.
func (o *Orchestrator) Run(ctx context.Context, seq Sequence) error {
	result, callbacks := o.run(ctx, seq)
	for _, cb := range callbacks {
		cb(result)
	}
	return result.Err
}

func (o *Orchestrator) run(ctx context.Context, seq Sequence) (RunResult, []RunCallback) {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := &State{BuildID: uuid.NewString()}
	logger := o.logger.With("build_id", st.BuildID, "sequence", seq.Name)
	ctx = withLogger(ctx, logger)

	start := time.Now()
	stageTimes := make(map[string]time.Duration, len(seq.Stages))
	logger.Info(ctx, "Sequence started", "stages", len(seq.Stages))

	var runErr error
	for _, stage := range seq.Stages {
		if err := ctx.Err(); err != nil {
			runErr = errors.WrapStage(err, stage.Name)
			break
		}

		op := logging.StartOperation(logger, stage.Name)
		if err := stage.Run(ctx, st); err != nil {
			stageTimes[stage.Name] = op.EndWithError(ctx, err)
			runErr = errors.WrapStage(err, stage.Name)
			break
		}
		stageTimes[stage.Name] = op.End(ctx)
	}

	duration := time.Since(start)
	o.metrics.RecordRun(st.BuildID, duration, stageTimes, runErr)

	if runErr != nil {
		logger.Error(ctx, runErr, "Sequence failed", "duration", duration)
	} else {
		if st.Table != nil || st.Catalog != nil {
			o.state = *st
		}
		logger.Info(ctx, "Sequence finished", "duration", duration)
	}

	result := RunResult{Sequence: seq.Name, BuildID: st.BuildID, Duration: duration, Err: runErr}
	return result, append([]RunCallback(nil), o.callbacks...)
}

// State returns the state of the last successful build.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Metrics returns the run metrics.
func (o *Orchestrator) Metrics() MetricsSnapshot {
	return o.metrics.Snapshot()
}

// clean removes everything below the build root. A missing build root is
// not an error.
func (o *Orchestrator) clean(ctx context.Context, _ *State) error {
	entries, err := os.ReadDir(o.paths.BuildRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewIOError(errors.ErrCodeReadFailed, "read build root", err).WithPath(o.paths.BuildRoot)
	}
	for _, e := range entries {
		target := filepath.Join(o.paths.BuildRoot, e.Name())
		if err := os.RemoveAll(target); err != nil {
			return errors.NewIOError(errors.ErrCodeWriteFailed, "remove build output", err).WithPath(target)
		}
	}
	loggerFrom(ctx, o.logger).Debug(ctx, "Build root cleaned", "removed", len(entries))
	return nil
}

func (o *Orchestrator) loadData(ctx context.Context, st *State) error {
	table, err := o.deps.Loader.Load(ctx, o.paths)
	if err != nil {
		return err
	}
	st.Table = table
	return nil
}

func (o *Orchestrator) scanCatalog(ctx context.Context, st *State) error {
	st.Catalog = catalog.Scan(ctx, o.paths.Templates, loggerFrom(ctx, o.logger))
	return nil
}

func (o *Orchestrator) renderPreview(ctx context.Context, st *State) error {
	return o.deps.Renderer.RenderPreview(ctx, st.Catalog)
}

func (o *Orchestrator) renderTemplates(ctx context.Context, st *State) error {
	n, err := o.deps.Renderer.RenderTemplates(ctx, st.Table)
	if err != nil {
		return err
	}
	loggerFrom(ctx, o.logger).Debug(ctx, "Templates rendered", "count", n)
	return nil
}

func (o *Orchestrator) compileMJML(ctx context.Context, _ *State) error {
	_, err := mjml.CompileAll(ctx, o.deps.Compiler, o.paths, loggerFrom(ctx, o.logger))
	return err
}

func (o *Orchestrator) optimizeImages(ctx context.Context, _ *State) error {
	_, err := o.deps.Images.OptimizeAll(ctx, o.paths)
	return err
}

func (o *Orchestrator) packageOutput(ctx context.Context, _ *State) error {
	res, err := o.deps.Packager.Package(ctx, o.paths.ZipOutput)
	if err != nil {
		return err
	}
	o.lastPkg = res
	return nil
}

type loggerKey struct{}

func withLogger(ctx context.Context, logger logging.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context, fallback logging.Logger) logging.Logger {
	if l, ok := ctx.Value(loggerKey{}).(logging.Logger); ok {
		return l
	}
	return fallback
}
