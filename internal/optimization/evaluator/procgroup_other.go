//go:build !unix

package evaluator

import "os/exec"

// isolate is a no-op where process groups are unavailable; WaitDelay still
// bounds how long a lingering descendant can hold stdout open.
func isolate(*exec.Cmd) {}
