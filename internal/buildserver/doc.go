// SPDX-License-Identifier: MPL-2.0

// Package buildserver provides an SSH endpoint, built on the Wish
// library, through which an external orchestrator triggers image builds
// and streams their output. Authentication is token-based: only clients
// holding a token minted by this process may connect. The server
// accepts one build at a time; retry policy belongs to the caller.
package buildserver
