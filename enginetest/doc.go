// Package enginetest provides compliance test suites for agentdrive
// implementations.
//
// CLI backend compliance tests live in the clitest sub-package.
// Root-level Engine/Process compliance is planned for a future release.
//
// See enginetest/clitest for usage examples.
package enginetest
