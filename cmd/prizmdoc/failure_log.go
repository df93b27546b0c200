package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	client "github.com/hsn0918/prizmdoc-client"
)

var failureLogMu sync.Mutex

// logFailure appends one tab separated line per failure. Server errors also
// record the operation, kind and error code.
func logFailure(path, target string, err error) error {
	if path == "" {
		return nil
	}

	op, kind, code := "unknown", "unknown", "-"
	if perr, ok := client.AsError(err); ok {
		op, kind = string(perr.Op), perr.Kind.String()
		if perr.ErrorCode != "" {
			code = perr.ErrorCode
		}
	}

	timestamp := time.Now().Format(time.RFC3339)
	line := fmt.Sprintf("%s\tlevel=ERROR\top=%s\tkind=%s\terror-code=%s\ttarget=%s\tmessage=%v\n",
		timestamp, op, kind, code, target, err)

	failureLogMu.Lock()
	defer failureLogMu.Unlock()

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return mkErr
		}
	}

	f, openErr := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if openErr != nil {
		return openErr
	}
	defer f.Close()

	_, writeErr := f.WriteString(line)
	return writeErr
}
