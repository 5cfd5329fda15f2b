// SPDX-License-Identifier: MPL-2.0

// Package build implements the image build lifecycle: select base
// environment, set working directory, stage source tree, run the install
// procedure, set the default entry command. The lifecycle is strictly
// sequential, every failure is fatal, and no partial-success artifact is
// ever produced; retry policy belongs to whoever invokes the builder.
package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"bakery-cli/internal/engine"
	"bakery-cli/internal/recipe"
)

const (
	defaultPullAttempts = 3
	defaultPullBackoff  = 500 * time.Millisecond
)

type (
	// Builder runs the build lifecycle against a container engine.
	Builder struct {
		engine       engine.Engine
		logger       *log.Logger
		cacheDir     string
		output       io.Writer
		onStep       func(State)
		noCache      bool
		pullAttempts int
	}

	// Option configures a Builder.
	Option func(*Builder)

	// Result reports a finished build.
	Result struct {
		// Tag is the produced (or cache-hit) image tag.
		Tag string
		// Digest is the context digest the tag was derived from.
		Digest string
		// State is the terminal lifecycle state.
		State State
		// Cached is true when an earlier build of the same digest was
		// reused and no steps ran.
		Cached bool
	}
)

// WithLogger sets the step logger.
func WithLogger(logger *log.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// WithCacheDir sets the directory for staging contexts and the cache
// index.
func WithCacheDir(dir string) Option {
	return func(b *Builder) { b.cacheDir = dir }
}

// WithOutput sets the writer that receives the engine's own pull/build
// output. Defaults to stderr.
func WithOutput(w io.Writer) Option {
	return func(b *Builder) { b.output = w }
}

// WithStepHook registers a hook called after each state transition.
func WithStepHook(fn func(State)) Option {
	return func(b *Builder) { b.onStep = fn }
}

// WithNoCache disables both bakery's index lookup and the engine's
// layer cache.
func WithNoCache(noCache bool) Option {
	return func(b *Builder) { b.noCache = noCache }
}

// WithPullAttempts overrides how often a transient pull failure is
// retried.
func WithPullAttempts(attempts int) Option {
	return func(b *Builder) { b.pullAttempts = attempts }
}

// New creates a Builder for the given engine.
func New(eng engine.Engine, opts ...Option) *Builder {
	b := &Builder{
		engine:       eng,
		logger:       log.NewWithOptions(os.Stderr, log.Options{Prefix: "bakery"}),
		output:       os.Stderr,
		pullAttempts: defaultPullAttempts,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.cacheDir == "" {
		b.cacheDir = defaultCacheDir()
	}
	return b
}

// defaultCacheDir places the cache under the user cache directory.
func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "bakery")
	}
	return filepath.Join(os.TempDir(), "bakery-cache")
}

// Build runs the full lifecycle for a recipe and context directory and
// returns the terminal result. tagOverride, when non-empty, replaces the
// digest-derived tag.
//
// Step order is the contract: the base environment resolves before any
// staging I/O happens, and an install failure leaves no usable image
// behind.
func (b *Builder) Build(ctx context.Context, rec *recipe.Recipe, contextDir, tagOverride string) (*Result, error) {
	res := &Result{State: StateStart}

	digest, err := contextDigest(rec, contextDir)
	if err != nil {
		return b.fail(res, &StagingError{Path: contextDir, Cause: err})
	}
	res.Digest = digest

	res.Tag = tagOverride
	if res.Tag == "" {
		res.Tag = defaultTag(contextDir, digest)
	}

	// A previous build of the same digest satisfies the whole lifecycle;
	// rebuilding would no-op through the engine's layer cache anyway.
	if !b.noCache {
		if cached, err := b.cacheHit(ctx, digest, res.Tag); err == nil && cached {
			b.logger.Info("reusing cached image", "tag", res.Tag, "digest", digest[:12])
			res.State = StateEntryCommandSet
			res.Cached = true
			return res, nil
		}
	}

	// Step 1: select base environment.
	start := time.Now()
	if err := b.selectEnvironment(ctx, rec.Base); err != nil {
		return b.fail(res, err)
	}
	b.step(res, StateEnvironmentSelected, start)

	// Step 2: set working directory.
	start = time.Now()
	stagingDir, err := b.createStagingDir()
	if err != nil {
		return b.fail(res, err)
	}
	defer os.RemoveAll(stagingDir)
	b.step(res, StateDirectorySet, start)

	// Step 3: stage source tree.
	start = time.Now()
	if err := stageTree(contextDir, stagingDir, rec.Stage); err != nil {
		return b.fail(res, &StagingError{Path: contextDir, Cause: err})
	}
	containerfile := filepath.Join(stagingDir, containerfileName)
	if err := os.WriteFile(containerfile, []byte(renderContainerfile(rec)), 0o644); err != nil {
		return b.fail(res, &StagingError{Path: containerfile, Cause: err})
	}
	b.step(res, StateSourceStaged, start)

	// Step 4: run install procedure (inside the engine build).
	start = time.Now()
	if err := b.runInstall(ctx, stagingDir, res.Tag); err != nil {
		return b.fail(res, err)
	}
	b.step(res, StatePackageInstalled, start)

	// Step 5: set default entry command. The CMD instruction is already
	// part of the built image configuration; this step seals the
	// lifecycle and records the build in the cache index.
	start = time.Now()
	b.recordBuild(digest, rec, contextDir, res.Tag)
	b.step(res, StateEntryCommandSet, start)

	return res, nil
}

// cacheHit reports whether the index knows this digest and the engine
// still has the image.
func (b *Builder) cacheHit(ctx context.Context, digest, tag string) (bool, error) {
	idx, err := loadCacheIndex(b.cacheDir)
	if err != nil {
		return false, err
	}
	entry, ok := idx.lookup(digest)
	if !ok || entry.Tag != tag {
		return false, nil
	}
	exists, err := b.engine.ImageExists(ctx, tag)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// selectEnvironment resolves the pinned base reference by pulling it.
// Transient registry failures retry with backoff; a reference the
// registry does not know is permanent and fails immediately.
func (b *Builder) selectEnvironment(ctx context.Context, ref string) error {
	var diag bytes.Buffer

	err := engine.RetryWithBackoff(ctx, b.pullAttempts, defaultPullBackoff, func(attempt int) (bool, error) {
		if attempt > 0 {
			b.logger.Warn("retrying base environment pull", "ref", ref, "attempt", attempt+1)
		}
		diag.Reset()
		pullErr := b.engine.Pull(ctx, engine.PullOptions{
			Image:  ref,
			Stdout: b.output,
			Stderr: io.MultiWriter(b.output, &diag),
		})
		if pullErr == nil {
			return false, nil
		}
		return !refLooksUnresolvable(diag.String()), pullErr
	})
	if err != nil {
		return &EnvironmentNotFoundError{Ref: ref, Output: diag.String(), Cause: err}
	}
	return nil
}

// refLooksUnresolvable sniffs the engine's pull diagnostics for the
// registry telling us the reference itself is bad, in which case a
// retry cannot help.
func refLooksUnresolvable(diag string) bool {
	diag = strings.ToLower(diag)
	for _, marker := range []string{
		"manifest unknown",
		"not found",
		"repository does not exist",
		"invalid reference",
		"unauthorized",
		"denied",
	} {
		if strings.Contains(diag, marker) {
			return true
		}
	}
	return false
}

// createStagingDir makes the per-build staging directory under the
// cache dir.
func (b *Builder) createStagingDir() (string, error) {
	parent := filepath.Join(b.cacheDir, "contexts")
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", &PathError{Path: parent, Cause: err}
	}
	dir, err := os.MkdirTemp(parent, "ctx-*")
	if err != nil {
		return "", &PathError{Path: parent, Cause: err}
	}
	return dir, nil
}

// runInstall executes the engine build, which runs the source tree's
// install procedure in the staged working directory. The procedure's
// output is streamed through and captured so a failure surfaces it
// verbatim.
func (b *Builder) runInstall(ctx context.Context, stagingDir, tag string) error {
	var diag bytes.Buffer

	err := b.engine.Build(ctx, engine.BuildOptions{
		ContextDir:    stagingDir,
		Containerfile: containerfileName,
		Tag:           tag,
		NoCache:       b.noCache,
		Stdout:        io.MultiWriter(b.output, &diag),
		Stderr:        io.MultiWriter(b.output, &diag),
	})
	if err != nil {
		return &InstallFailureError{Output: diag.String(), Cause: err}
	}
	return nil
}

// recordBuild writes the cache index entry. Bookkeeping only: a failure
// here costs a future cache hit, not the build.
func (b *Builder) recordBuild(digest string, rec *recipe.Recipe, contextDir, tag string) {
	idx, err := loadCacheIndex(b.cacheDir)
	if err != nil {
		b.logger.Warn("cache index unreadable, skipping record", "err", err)
		return
	}
	idx.record(digest, cacheEntry{
		Tag:     tag,
		Base:    rec.Base,
		Context: absOrSelf(contextDir),
		Created: time.Now().UTC(),
	})
	if err := idx.save(b.cacheDir); err != nil {
		b.logger.Warn("failed to write cache index", "err", err)
	}
}

// step advances the lifecycle to next and logs the transition.
func (b *Builder) step(res *Result, next State, start time.Time) {
	if !res.State.CanTransitionTo(next) {
		// Transitions are driven by the fixed step order above, so this
		// is unreachable short of a programming error.
		panic(fmt.Sprintf("illegal build state transition %s -> %s", res.State, next))
	}
	res.State = next
	b.logger.Info("build step complete", "state", next.String(), "took", time.Since(start).Round(time.Millisecond))
	if b.onStep != nil {
		b.onStep(next)
	}
}

// fail moves the lifecycle to its terminal failure state.
func (b *Builder) fail(res *Result, err error) (*Result, error) {
	res.State = StateFailed
	b.logger.Error("build failed", "err", err)
	if b.onStep != nil {
		b.onStep(StateFailed)
	}
	return res, err
}
