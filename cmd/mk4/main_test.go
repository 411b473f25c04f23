package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestRunCLIReportsErrorsOnStderr verifies fatal errors are printed,
// not just encoded in the exit status.
func TestRunCLIReportsErrorsOnStderr(t *testing.T) {
	var stderr bytes.Buffer

	code := runCLI(nil, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "no input paths given") {
		t.Fatalf("stderr = %q, want the missing-input message", stderr.String())
	}
}

// TestRunCLIReportsFlagErrors verifies parse failures are printed too.
func TestRunCLIReportsFlagErrors(t *testing.T) {
	var stderr bytes.Buffer

	code := runCLI([]string{"--no-such-flag"}, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "no-such-flag") {
		t.Fatalf("stderr = %q, want the unknown-flag message", stderr.String())
	}
}
