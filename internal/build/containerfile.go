// SPDX-License-Identifier: MPL-2.0

package build

import (
	"fmt"
	"sort"
	"strings"

	"bakery-cli/internal/recipe"
)

// containerfileName is the build file rendered into the staging
// directory.
const containerfileName = "Containerfile"

// renderContainerfile turns a recipe into the build file the engine
// consumes. The instruction order mirrors the lifecycle: FROM (base
// environment), WORKDIR (working directory), COPY (staged source tree),
// RUN (install procedure), CMD (default entry command).
func renderContainerfile(rec *recipe.Recipe) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("FROM %s\n\n", rec.Base))
	sb.WriteString(fmt.Sprintf("WORKDIR %s\n\n", rec.Workdir))

	writeKVInstructions(&sb, "ENV", rec.Env)
	writeKVInstructions(&sb, "LABEL", rec.Labels)

	sb.WriteString("COPY . .\n\n")

	for _, cmd := range rec.Install {
		sb.WriteString(fmt.Sprintf("RUN %s\n", cmd))
	}
	sb.WriteString("\n")

	sb.WriteString("CMD " + jsonArray(rec.Entry) + "\n")

	return sb.String()
}

// writeKVInstructions emits one instruction per key in sorted order so
// the rendered file is byte-stable for a given recipe.
func writeKVInstructions(sb *strings.Builder, instruction string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	for _, k := range sortedKeys(m) {
		sb.WriteString(fmt.Sprintf("%s %s=%q\n", instruction, k, m[k]))
	}
	sb.WriteString("\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// jsonArray renders the exec-form argument list for CMD. Exec form
// (not shell form) so the entry command runs without a wrapping shell
// and signals reach it directly.
func jsonArray(parts []string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = fmt.Sprintf("%q", p)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
