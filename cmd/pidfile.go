package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dayuer/tgpilot/internal/utils"
)

const pidFileName = "tgpilot.pid"

func pidFilePath() string {
	return filepath.Join(utils.GetDataPath(), pidFileName)
}

func writePID(pid int) error {
	if _, err := utils.EnsureDir(filepath.Dir(pidFilePath())); err != nil {
		return err
	}
	return utils.WriteFileAtomic(pidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.New("corrupt pid file")
	}
	return pid, nil
}

func removePID() {
	os.Remove(pidFilePath())
}

// isRunning checks if a process with the given PID is alive.
func isRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// runningPID returns the live instance's PID, clearing a stale pid file.
func runningPID() (int, bool) {
	pid, err := readPID()
	if err != nil {
		return 0, false
	}
	if pid == os.Getpid() || !isRunning(pid) {
		removePID()
		return 0, false
	}
	return pid, true
}
