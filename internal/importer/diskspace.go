package importer

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// checkFreeSpace refuses the install when the destination filesystem does not
// have room for the staged file. The Pi's SD card fills up quietly otherwise.
func checkFreeSpace(stagedPath, destDir string) error {
	info, err := os.Stat(stagedPath)
	if err != nil {
		return fmt.Errorf("stat staged file: %w", err)
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(destDir, &stat); err != nil {
		// Best effort; move still fails loudly if space runs out.
		return nil
	}

	available := int64(stat.Bavail) * int64(stat.Bsize)
	if available < info.Size() {
		return fmt.Errorf("not enough free space in %s: need %d bytes, have %d", destDir, info.Size(), available)
	}
	return nil
}
