// Package deps reports on the external programs shotbuddy shells out to.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status reports whether one external program can be run.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Counts tallies a set of statuses.
type Counts struct {
	Total           int
	Available       int
	MissingRequired int
	MissingOptional int
}

// Tally counts available and missing programs. Missing optional programs
// degrade a feature; missing required ones stop the daemon from working.
func Tally(statuses []Status) Counts {
	counts := Counts{Total: len(statuses)}
	for _, s := range statuses {
		switch {
		case s.Available:
			counts.Available++
		case s.Optional:
			counts.MissingOptional++
		default:
			counts.MissingRequired++
		}
	}
	return counts
}

// resolve finds an executable. A command containing a path separator must
// name an executable file; a bare name is looked up on PATH.
func resolve(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", fmt.Errorf("command not configured")
	}
	if strings.ContainsRune(command, filepath.Separator) {
		info, err := os.Stat(command)
		if err != nil || info.IsDir() || info.Mode().Perm()&0o111 == 0 {
			return "", fmt.Errorf("binary %q not executable", command)
		}
		return command, nil
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", command)
	}
	return resolved, nil
}
