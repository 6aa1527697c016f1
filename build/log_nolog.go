//go:build nolog

package build

// Write discards b, so binaries built with nolog neither print logs nor
// write a log file.
func (w *LogWriter) Write(b []byte) (int, error) {
	return len(b), nil
}
