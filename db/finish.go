package db

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const finishFlagName = ".finish"

// FinishFlagExists reports whether the zero-byte finish flag file exists in
// dir, signaling that every tier of the game variant stored there has been
// solved. Only existence matters; the file content is empty by contract.
func FinishFlagExists(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, finishFlagName))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// WriteFinishFlag creates the finish flag file in dir.
func WriteFinishFlag(dir string) error {
	f, err := os.Create(filepath.Join(dir, finishFlagName))
	if err != nil {
		return err
	}
	return f.Close()
}

// RemoveFinishFlag deletes the finish flag file in dir if present.
func RemoveFinishFlag(dir string) error {
	err := os.Remove(filepath.Join(dir, finishFlagName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
