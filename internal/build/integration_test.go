// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bakery-cli/internal/engine"
	"bakery-cli/internal/recipe"

	"github.com/charmbracelet/log"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestGreetEndToEnd builds a pip-installable "greet" tree into an image
// and checks that the installed module is importable and prints its
// greeting. Requires a container engine and network access; gated
// behind BAKERY_INTEGRATION=1.
func TestGreetEndToEnd(t *testing.T) {
	if os.Getenv("BAKERY_INTEGRATION") != "1" {
		t.Skip("set BAKERY_INTEGRATION=1 to run integration tests")
	}

	eng, err := engine.AutoDetect()
	if err != nil {
		t.Skipf("no container engine available: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	contextDir := filepath.Join(t.TempDir(), "greet")
	if err := os.MkdirAll(filepath.Join(contextDir, "greet"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"setup.py":          "from setuptools import setup\nsetup(name='greet', packages=['greet'])\n",
		"greet/__init__.py": "def hello():\n    print('Hello from greet')\n",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(contextDir, rel), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	rec := &recipe.Recipe{
		Base:    "docker.io/library/python:3.12-slim",
		Workdir: "/app",
		Install: []string{"pip install --no-cache-dir ."},
		Entry:   []string{"python3"},
	}

	builder := New(eng,
		WithCacheDir(t.TempDir()),
		WithOutput(os.Stderr),
		WithLogger(log.New(io.Discard)),
	)

	res, err := builder.Build(ctx, rec, contextDir, "")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() {
		_ = eng.RemoveImage(context.Background(), res.Tag, true)
	})

	if res.State != StateEntryCommandSet {
		t.Errorf("State = %s, want EntryCommandSet", res.State)
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      res.Tag,
			Cmd:        []string{"python3", "-c", "import greet; greet.hello()"},
			WaitingFor: wait.ForExit(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	t.Cleanup(func() {
		_ = ctr.Terminate(context.Background())
	})

	logs, err := ctr.Logs(ctx)
	if err != nil {
		t.Fatalf("failed to read container logs: %v", err)
	}
	defer func() { _ = logs.Close() }()

	output, err := io.ReadAll(logs)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(output), "Hello from greet") {
		t.Errorf("container output = %q, want the greeting", output)
	}

	// Determinism: an unchanged context reuses the same tag.
	again, err := builder.Build(ctx, rec, contextDir, "")
	if err != nil {
		t.Fatalf("second Build() error = %v", err)
	}
	if again.Tag != res.Tag {
		t.Errorf("second build tag = %q, want %q", again.Tag, res.Tag)
	}
	if !again.Cached {
		t.Error("second build should hit the cache")
	}
}
