// Package utils contains small helpers shared across packages.
package utils

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// ResolveFile returns the path of the given file relative to the root
// of the codebase. For example, if this file currently
// lives in utils/file.go and ./foo/bar/baz is given, then the result
// is foo/bar/baz. This is helpful when you don't want to relatively
// refer to files when you're not sure where the caller actually
// lives in relation to the target file.
func ResolveFile(fn string) string {
	//nolint:dogsled
	_, thisFilePath, _, _ := runtime.Caller(0)
	thisDirPath, err := filepath.Abs(filepath.Dir(thisFilePath))
	if err != nil {
		panic(err)
	}
	return filepath.Join(thisDirPath, "..", fn)
}

// ReadFileOrStdin reads the named file, or standard input when the name is "-".
func ReadFileOrStdin(name string, stdin io.Reader) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.Wrap(err, "cannot read standard input")
		}
		return data, nil
	}
	//nolint:gosec
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %q", name)
	}
	return data, nil
}
