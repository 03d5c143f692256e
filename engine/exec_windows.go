//go:build windows

package engine

import "os"

func isExecutable(info os.FileInfo) bool {
	return info.Mode().IsRegular()
}
