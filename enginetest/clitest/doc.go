// Package clitest provides compliance test suites for [cli.Backend] implementations.
//
// Test authors call [RunBackendTests] with a factory function that returns the
// implementation under test. The suite discovers optional capabilities
// ([cli.Streamer], [cli.InputFormatter]) via type assertion.
//
// Example usage in a backend test file:
//
//	package mybackend_test
//
//	import (
//	    "testing"
//	    "github.com/dvaldez/agentdrive/engine/cli"
//	    "github.com/dvaldez/agentdrive/engine/cli/mybackend"
//	    "github.com/dvaldez/agentdrive/enginetest/clitest"
//	)
//
//	func TestCompliance(t *testing.T) {
//	    clitest.RunBackendTests(t, func() cli.Backend {
//	        return mybackend.New()
//	    })
//	}
package clitest
