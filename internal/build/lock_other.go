//go:build !unix

package build

import "os"

// Without flock only the in-process guard applies.
func tryLock(*os.File) error {
	return nil
}

func unlock(*os.File) error {
	return nil
}
