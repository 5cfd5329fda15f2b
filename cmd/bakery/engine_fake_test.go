// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"bakery-cli/internal/engine"
)

// fakeEngine records engine invocations without spawning containers.
type fakeEngine struct {
	mu     sync.Mutex
	pulls  []string
	builds []engine.BuildOptions
	runs   []engine.RunOptions
	images map[string]bool

	pullErr  error
	buildErr error
	runExit  int
	runErr   error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{images: make(map[string]bool)}
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return true }

func (f *fakeEngine) Version(ctx context.Context) (string, error) { return "1.0.0", nil }

func (f *fakeEngine) Pull(ctx context.Context, opts engine.PullOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls = append(f.pulls, opts.Image)
	return f.pullErr
}

func (f *fakeEngine) Build(ctx context.Context, opts engine.BuildOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds = append(f.builds, opts)
	if f.buildErr != nil {
		return f.buildErr
	}
	f.images[opts.Tag] = true
	return nil
}

func (f *fakeEngine) Run(ctx context.Context, opts engine.RunOptions) (*engine.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, opts)
	return &engine.RunResult{ExitCode: f.runExit, Err: f.runErr}, nil
}

func (f *fakeEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images[image], nil
}

func (f *fakeEngine) InspectImage(ctx context.Context, image string) (string, error) {
	return "{}", nil
}

func (f *fakeEngine) RemoveImage(ctx context.Context, image string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.images, image)
	return nil
}

// newTestApp wires an App around a fake engine with buffered output.
func newTestApp(t *testing.T, eng engine.Engine) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	resetGlobalFlags(t)

	var out, errOut bytes.Buffer
	app := NewApp(Dependencies{
		Config:           &stubProvider{cfg: testConfig(t)},
		NewEngine:        func(engine.Type) (engine.Engine, error) { return eng, nil },
		AutoDetectEngine: func() (engine.Engine, error) { return eng, nil },
		Stdout:           &out,
		Stderr:           &errOut,
		Logger:           quietLogger(),
	})
	return app, &out, &errOut
}

const testBakefile = `base:    "docker.io/library/python:3.12-slim"
workdir: "/app"

install: ["pip install --no-cache-dir ."]

entry: ["python3"]
`

// greetContext scaffolds a minimal installable Python tree with a bakefile.
func greetContext(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "greet")
	if err := os.MkdirAll(filepath.Join(dir, "greet"), 0o755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		"bakefile.cue":      testBakefile,
		"setup.py":          "from setuptools import setup\nsetup(name='greet', packages=['greet'])\n",
		"greet/__init__.py": "def hello():\n    print('Hello from greet')\n",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(dir, rel), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
