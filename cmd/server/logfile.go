package main

import (
	"io"
	"os"
	"sync"
)

const (
	maxLogBytes  = 6 << 20
	keepLogBytes = 5 << 20
)

// cappedLog is an append-only log file that, once it grows past limit,
// drops everything except its newest keep bytes.
type cappedLog struct {
	mu    sync.Mutex
	f     *os.File
	limit int64
	keep  int64
}

func openCappedLog(path string, limit, keep int64) (*cappedLog, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	l := &cappedLog{f: f, limit: limit, keep: min(keep, limit)}
	if err := l.trim(); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

func (l *cappedLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, err := l.f.Write(p)
	if err != nil {
		return n, err
	}
	return n, l.trim()
}

func (l *cappedLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// trim must be called with mu held.
func (l *cappedLog) trim() error {
	info, err := l.f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= l.limit {
		return nil
	}

	tail := make([]byte, l.keep)
	n, err := l.f.ReadAt(tail, size-l.keep)
	if err != nil && err != io.EOF {
		return err
	}
	if err := l.f.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes land at the new end of file.
	_, err = l.f.Write(tail[:n])
	return err
}
