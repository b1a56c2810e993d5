package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateFilename enforces spec section 3's filename invariant: matches
// ^[A-Za-z0-9_.-]+$, no "..", no leading "/", length <= 255 bytes.
func ValidateFilename(name string) error {
	if len(name) == 0 || len(name) > 255 {
		return fmt.Errorf("filename length must be 1-255 bytes")
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("filename must not be absolute")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("filename must not contain ..")
	}
	if !filenamePattern.MatchString(name) {
		return fmt.Errorf("filename contains disallowed characters")
	}
	return nil
}

// writeSourceFile validates filename and workdir containment, then writes
// code atomically into workdir/filename. Grounded in the teacher's
// path-traversal guard in job.go's writeFile (filepath.Rel + HasPrefix
// check), adapted here to a single plain-text source file per job instead
// of an arbitrary file list.
func writeSourceFile(workdir, filename, code string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}

	target := filepath.Join(workdir, filename)
	rel, err := filepath.Rel(workdir, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("filename escapes workdir")
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("write source file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return "", fmt.Errorf("finalize source file: %w", err)
	}
	return target, nil
}
