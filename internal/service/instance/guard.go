package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned by Ensure when another process with the same executable name exists.
var ErrAlreadyRunning = errors.New("another instance is already running")

// processLister returns a snapshot of the process table.
type processLister func() ([]ps.Process, error)

// Ensure fails with ErrAlreadyRunning when another process runs the current executable.
func Ensure() error {
	return ensure(ps.Processes, currentExecutable(), os.Getpid())
}

func ensure(list processLister, executable string, selfPID int) error {
	pid, found, err := findOther(list, executable, selfPID)
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	if found {
		return fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, executable, pid)
	}

	return nil
}

// findOther returns the first process other than selfPID running executable.
func findOther(list processLister, executable string, selfPID int) (int, bool, error) {
	processList, err := list()
	if err != nil {
		return 0, false, err
	}

	for _, process := range processList {
		if process.Pid() == selfPID {
			continue
		}

		if !sameExecutable(process.Executable(), executable) {
			continue
		}

		return process.Pid(), true, nil
	}

	return 0, false, nil
}

// currentExecutable is the base name of this binary as the process table reports it.
func currentExecutable() string {
	return filepath.Base(os.Args[0])
}

// sameExecutable compares names case-insensitively on Windows.
func sameExecutable(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}

	return a == b
}
