// Package deps locates the external programs scribe's speech providers shell
// out to and reports the version each one prints.
package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// versionTimeout bounds each version probe; uvx may resolve its cache first.
const versionTimeout = 5 * time.Second

// Binary names an external program and how to ask it for a version.
type Binary struct {
	Name    string
	Command string
	Purpose string
	// VersionArgs is run after the binary is found. Empty skips the probe.
	VersionArgs []string
}

// Status is the result of probing one Binary.
type Status struct {
	Binary
	Path    string
	Version string
	Detail  string
}

// Available reports whether the binary was found on PATH.
func (s Status) Available() bool { return s.Path != "" }

// Probe resolves each binary on PATH and runs its version command. A failing
// version command does not make a found binary unavailable.
func Probe(ctx context.Context, binaries []Binary) []Status {
	out := make([]Status, 0, len(binaries))
	for _, bin := range binaries {
		bin.Command = strings.TrimSpace(bin.Command)
		st := Status{Binary: bin}
		if bin.Command == "" {
			st.Detail = "command not configured"
			out = append(out, st)
			continue
		}
		path, err := exec.LookPath(bin.Command)
		if err != nil {
			st.Detail = fmt.Sprintf("%q not found on PATH", bin.Command)
			out = append(out, st)
			continue
		}
		st.Path = path
		if len(bin.VersionArgs) > 0 {
			version, err := runVersion(ctx, path, bin.VersionArgs)
			if err != nil {
				st.Detail = "version probe failed: " + err.Error()
			}
			st.Version = version
		}
		out = append(out, st)
	}
	return out
}

func runVersion(ctx context.Context, path string, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, args...).Output() //nolint:gosec
	if err != nil {
		return "", err
	}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", nil
}
