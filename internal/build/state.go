// SPDX-License-Identifier: MPL-2.0

package build

// State tracks progress through the build lifecycle. Steps run strictly
// in order; each state is entered exactly once per build, and any step
// failure moves the build to StateFailed, which is terminal.
type State int

const (
	// StateStart is the initial state before any step has run.
	StateStart State = iota
	// StateEnvironmentSelected: the pinned base reference resolved
	// against its upstream registry.
	StateEnvironmentSelected
	// StateDirectorySet: the working directory that anchors all
	// subsequent relative operations exists.
	StateDirectorySet
	// StateSourceStaged: the source tree snapshot is in place under the
	// working directory.
	StateSourceStaged
	// StatePackageInstalled: the source tree's install procedure ran to
	// completion inside the image build.
	StatePackageInstalled
	// StateEntryCommandSet is the terminal success state: the default
	// entry command is recorded in the image configuration.
	StateEntryCommandSet
	// StateFailed is the terminal failure state.
	StateFailed
)

var stateNames = map[State]string{
	StateStart:               "Start",
	StateEnvironmentSelected: "EnvironmentSelected",
	StateDirectorySet:        "DirectorySet",
	StateSourceStaged:        "SourceStaged",
	StatePackageInstalled:    "PackageInstalled",
	StateEntryCommandSet:     "EntryCommandSet",
	StateFailed:              "Failed",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateEntryCommandSet || s == StateFailed
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition: the immediate successor state, or StateFailed
// from any non-terminal state.
func (s State) CanTransitionTo(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return next == s+1 && next <= StateEntryCommandSet
}
