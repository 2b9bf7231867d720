package storage

import "time"

type FileInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}
