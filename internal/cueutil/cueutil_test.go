// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"bytes"
	"strings"
	"testing"
)

const testSchema = `
#TestConfig: {
	name:         string
	count:        int
	enabled:      bool
	description?: string
}
`

type testConfig struct {
	Name        string `json:"name"`
	Count       int    `json:"count"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

func TestDecode(t *testing.T) {
	t.Run("valid input decodes", func(t *testing.T) {
		data := []byte(`
name: "test"
count: 42
enabled: true
description: "a test"
`)
		result, err := Decode[testConfig]([]byte(testSchema), data, "#TestConfig")
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}

		if result.Value.Name != "test" {
			t.Errorf("name = %q", result.Value.Name)
		}
		if result.Value.Count != 42 {
			t.Errorf("count = %d", result.Value.Count)
		}
		if !result.Value.Enabled {
			t.Error("enabled = false")
		}
	})

	t.Run("optional field can be omitted", func(t *testing.T) {
		data := []byte(`
name: "minimal"
count: 1
enabled: false
`)
		result, err := Decode[testConfig]([]byte(testSchema), data, "#TestConfig")
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if result.Value.Description != "" {
			t.Errorf("description = %q, want empty", result.Value.Description)
		}
	})

	t.Run("type mismatch is rejected", func(t *testing.T) {
		data := []byte(`
name: "test"
count: "not a number"
enabled: true
`)
		if _, err := Decode[testConfig]([]byte(testSchema), data, "#TestConfig"); err == nil {
			t.Error("expected an error for a mistyped field")
		}
	})

	t.Run("missing required field is rejected", func(t *testing.T) {
		data := []byte(`
name: "test"
enabled: true
`)
		if _, err := Decode[testConfig]([]byte(testSchema), data, "#TestConfig"); err == nil {
			t.Error("expected an error for a missing required field")
		}
	})

	t.Run("WithFilename names the file in errors", func(t *testing.T) {
		data := []byte(`
name: "test"
count: "invalid"
enabled: true
`)
		_, err := Decode[testConfig]([]byte(testSchema), data, "#TestConfig", WithFilename("bakefile.cue"))
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "bakefile.cue") {
			t.Errorf("error should name the file, got: %v", err)
		}
	})

	t.Run("WithConcrete false tolerates unset optionals", func(t *testing.T) {
		schema := `
#Config: {
	engine?: "docker" | "podman"
}
`
		result, err := Decode[struct {
			Engine string `json:"engine,omitempty"`
		}]([]byte(schema), []byte(`{}`), "#Config", WithConcrete(false))
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if result.Value.Engine != "" {
			t.Errorf("engine = %q, want empty", result.Value.Engine)
		}
	})

	t.Run("disjunction outside the schema is rejected", func(t *testing.T) {
		schema := `
#Config: {
	engine: "docker" | "podman"
}
`
		data := []byte(`engine: "kubernetes"`)
		if _, err := Decode[struct {
			Engine string `json:"engine"`
		}]([]byte(schema), data, "#Config"); err == nil {
			t.Error("expected an error for a value outside the disjunction")
		}
	})
}

func TestCheckFileSize(t *testing.T) {
	if err := CheckFileSize(bytes.Repeat([]byte{'a'}, 100), 100, "f.cue"); err != nil {
		t.Errorf("data at the limit must pass: %v", err)
	}

	err := CheckFileSize(bytes.Repeat([]byte{'a'}, 101), 100, "f.cue")
	if err == nil {
		t.Fatal("expected an error for oversized data")
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("error should mention the limit, got: %v", err)
	}
}

func TestDecodeRejectsOversizedInput(t *testing.T) {
	data := bytes.Repeat([]byte{'a'}, int(MaxFileSize)+1)
	if _, err := Decode[testConfig]([]byte(testSchema), data, "#TestConfig"); err == nil {
		t.Error("expected an error for input over the size cap")
	}
}

func TestDecodeExposesUnifiedValue(t *testing.T) {
	data := []byte(`
name: "test"
count: 42
enabled: true
`)
	result, err := Decode[testConfig]([]byte(testSchema), data, "#TestConfig")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if result.Unified.Err() != nil {
		t.Errorf("unified value has error: %v", result.Unified.Err())
	}
}
