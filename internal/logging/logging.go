package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
)

// Setup points the standard logger at an append-only file (plus stderr) and returns
// the combined writer so the gorm logger can share it. The caller closes the file.
func Setup(path string) (io.Writer, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	w := io.MultiWriter(f, os.Stderr)
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags)
	return w, f, nil
}
