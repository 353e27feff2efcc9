package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrAlreadyRunning = errors.New("daemon already running")

// Instance guards against two daemons sharing one base directory: an advisory
// lock on daemon.lock plus a pid file for status queries.
type Instance struct {
	lockPath string
	lockFile *os.File
	pidFile  *PIDFile
}

func NewInstance(baseDir, pidPath string) *Instance {
	return &Instance{
		lockPath: filepath.Join(baseDir, "daemon.lock"),
		pidFile:  NewPIDFile(pidPath),
	}
}

func (in *Instance) Acquire() error {
	f, err := os.OpenFile(in.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		return err
	}
	in.lockFile = f

	if err := in.pidFile.Write(); err != nil {
		in.Release()
		return err
	}
	return nil
}

// Release unlocks daemon.lock. The file itself is never unlinked while another
// process may be waiting to lock it.
func (in *Instance) Release() error {
	var errs []error
	if err := in.pidFile.Remove(); err != nil {
		errs = append(errs, err)
	}

	if in.lockFile != nil {
		unlockFile(in.lockFile)
		errs = append(errs, in.lockFile.Close())
		in.lockFile = nil
	}
	return errors.Join(errs...)
}

func (in *Instance) PIDFile() *PIDFile {
	return in.pidFile
}
