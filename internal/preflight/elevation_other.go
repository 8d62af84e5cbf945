//go:build !windows

package preflight

import "os"

func isElevated() (bool, error) {
	return os.Geteuid() == 0, nil
}
