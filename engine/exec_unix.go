//go:build !windows

package engine

import "os"

func isExecutable(info os.FileInfo) bool {
	return info.Mode().Perm()&0111 != 0
}
