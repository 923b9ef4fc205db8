package lsm

import "github.com/nyasuto/mozlsm/internal/lsm/internal/logx"

// fatalf logs and terminates the process. Used at the small number of call
// sites SPEC_FULL.md §7 requires to treat persistent I/O failure as fatal:
// DiskFile create/write/open/seek/read and Run file removal. Every other
// error is returned, wrapped with fmt.Errorf, for the caller to handle.
func fatalf(format string, args ...any) {
	logx.Fatal(format, args...)
}
