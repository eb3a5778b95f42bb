// Package pipeline sequences the build stages for one or more targets:
// acquisition, pinning, generation, compilation, and artifact harvesting.
// Stages run strictly in order and fail fast; parallelism stays inside
// ninja where it belongs.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"webrtcbuild/internal/artifact"
	"webrtcbuild/internal/buildenv"
	"webrtcbuild/internal/config"
	"webrtcbuild/internal/fetch"
	"webrtcbuild/internal/gn"
	"webrtcbuild/internal/logging"
	"webrtcbuild/internal/ninja"
	"webrtcbuild/internal/shell"
	"webrtcbuild/internal/target"
)

// Options adjusts one pipeline run.
type Options struct {
	// SkipSync leaves the existing checkout untouched (no depot_tools
	// update, no gclient sync, no pin, no clean). For iterating on a tree
	// that is already on the right revision.
	SkipSync bool

	// SkipDeps skips the platform-specific dependency installers.
	SkipDeps bool
}

// BuiltArtifact describes one harvested library.
type BuiltArtifact struct {
	Target  target.Target
	Library string
	Objects int
}

// Summary is the outcome of a pipeline run.
type Summary struct {
	Built    []BuiltArtifact
	Headers  int
	Duration time.Duration
}

// Pipeline drives the stages against one workspace.
type Pipeline struct {
	cfg     *config.Config
	runner  shell.Runner
	fetcher *fetch.Fetcher
}

// New creates a Pipeline.
func New(cfg *config.Config, runner shell.Runner) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		runner:  runner,
		fetcher: fetch.New(cfg, runner),
	}
}

// Fetch runs the acquisition stages only: depot_tools, source sync, pin.
func (p *Pipeline) Fetch(ctx context.Context, targetOSes ...target.OS) error {
	if err := p.stage("depot_tools", func() error { return p.fetcher.DepotTools(ctx) }); err != nil {
		return err
	}
	if err := p.stage("source", func() error { return p.fetcher.Source(ctx, targetOSes...) }); err != nil {
		return err
	}
	return p.stage("pin", func() error { return p.fetcher.Pin(ctx) })
}

// Run executes the full pipeline for the given targets, in order.
func (p *Pipeline) Run(ctx context.Context, targets []target.Target, opts Options) (*Summary, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets to build")
	}
	started := time.Now()
	logging.Pipeline("Starting run for %d target(s) at %s", len(targets), p.cfg.Checkout.ShortCommit())

	if !opts.SkipSync {
		oses := make([]target.OS, 0, len(targets))
		for _, t := range targets {
			oses = append(oses, t.OS)
		}
		if err := p.Fetch(ctx, oses...); err != nil {
			return nil, err
		}
		if err := p.stage("clean", func() error { return p.fetcher.Clean(ctx) }); err != nil {
			return nil, err
		}
	} else {
		logging.Pipeline("Sync skipped, building against the existing checkout")
	}

	summary := &Summary{}
	for _, t := range targets {
		built, err := p.buildTarget(ctx, t, opts)
		if err != nil {
			return nil, err
		}
		summary.Built = append(summary.Built, *built)
	}

	headers, err := artifact.Headers(p.cfg.SrcDir(), p.cfg.IncludeDir())
	if err != nil {
		return nil, fmt.Errorf("stage headers: %w", err)
	}
	summary.Headers = headers

	summary.Duration = time.Since(started)
	logging.Pipeline("Run finished in %s: %d libraries, %d headers",
		summary.Duration.Round(time.Second), len(summary.Built), summary.Headers)
	return summary, nil
}

// buildTarget runs the per-target stages: deps, gn, ninja, archive.
func (p *Pipeline) buildTarget(ctx context.Context, t target.Target, opts Options) (*BuiltArtifact, error) {
	logging.Pipeline("Building target %s", t)

	if !opts.SkipDeps {
		if err := p.stage("deps "+t.String(), func() error {
			return p.fetcher.InstallTargetDeps(ctx, t)
		}); err != nil {
			return nil, err
		}
	}

	env := buildenv.ForBuild(p.cfg, t)
	args := gn.DefaultArgs(t, p.cfg.GN.Debug).Merge(p.cfg.GN.ExtraArgs)

	if err := p.stage("gn "+t.String(), func() error {
		return gn.Generate(ctx, p.runner, env, p.cfg.SrcDir(), t, args)
	}); err != nil {
		return nil, err
	}

	if err := p.stage("ninja "+t.String(), func() error {
		return ninja.Build(ctx, p.runner, env, p.cfg.SrcDir(), t, ninja.Options{
			Targets: p.cfg.Ninja.Targets,
			Jobs:    p.cfg.Ninja.Jobs,
			Timeout: p.cfg.Ninja.TimeoutDuration(),
		})
	}); err != nil {
		return nil, err
	}

	built := &BuiltArtifact{Target: t}
	if err := p.stage("archive "+t.String(), func() error {
		outDir := filepath.Join(p.cfg.SrcDir(), t.OutDir())
		lib, objects, err := artifact.StaticLibrary(ctx, p.runner, env, outDir, p.cfg.LibDir(), t)
		if err != nil {
			return err
		}
		built.Library = lib
		built.Objects = objects
		return nil
	}); err != nil {
		return nil, err
	}

	return built, nil
}

// stage wraps one step with timing and a uniform error prefix.
func (p *Pipeline) stage(name string, fn func() error) error {
	started := time.Now()
	logging.PipelineDebug("Stage %s starting", name)

	if err := fn(); err != nil {
		logging.PipelineWarn("Stage %s failed after %s: %v", name, time.Since(started).Round(time.Millisecond), err)
		return fmt.Errorf("stage %s: %w", name, err)
	}

	logging.Pipeline("Stage %s done in %s", name, time.Since(started).Round(time.Millisecond))
	return nil
}
