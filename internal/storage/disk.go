package storage

import (
	"errors"
	"io/fs"
	"os"
)

// sqliteSidecars are the suffixes of files SQLite keeps next to a database.
var sqliteSidecars = []string{"", "-wal", "-shm", "-journal"}

// DiskUsageBytes returns the bytes used by the transcript database at dbPath,
// including its WAL, shared-memory and rollback journal files. An empty path,
// an in-memory database, or a database not yet created uses 0 bytes.
func DiskUsageBytes(dbPath string) (int64, error) {
	if dbPath == "" || dbPath == memoryPath {
		return 0, nil
	}
	var total int64
	for _, suffix := range sqliteSidecars {
		info, err := os.Stat(dbPath + suffix)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
