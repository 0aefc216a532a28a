//go:build !unix

package dirhandle

import (
	"errors"
	"io"
	"os"
)

// checkAccess lists the directory and, for read-write, creates a scratch file.
func checkAccess(path string, mode Mode) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	_, err = f.Readdirnames(1)
	f.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if mode != ModeReadWrite {
		return nil
	}
	scratch, err := os.CreateTemp(path, ".access-*")
	if err != nil {
		return err
	}
	scratch.Close()
	return os.Remove(scratch.Name())
}
