//go:build !unix

package preflight

import "os"

// Windows has no access(2); probe by creating a file.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".winprep-preflight-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
