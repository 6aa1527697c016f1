//go:build !nolog

package build

import "os"

// Write writes the byte slice to both stderr and the log rotator, if present.
// Standard output is left to the command results.
func (w *LogWriter) Write(b []byte) (int, error) {
	os.Stderr.Write(b)
	if w.RotatorPipe != nil {
		w.RotatorPipe.Write(b)
	}

	return len(b), nil
}
