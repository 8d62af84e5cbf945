//go:build windows

package preflight

import "golang.org/x/sys/windows"

func isElevated() (bool, error) {
	return windows.GetCurrentProcessToken().IsElevated(), nil
}
