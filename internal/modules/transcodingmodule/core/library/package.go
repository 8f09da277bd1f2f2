package library

import (
	"os"
	"path/filepath"
	"strings"

	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
	"github.com/mantonx/streamin/internal/utils"
)

// ResolvePackageFile returns the absolute path of file inside the package
// directory name under root. Anything that escapes the package directory or
// is not a regular file is ErrMediaNotFound.
func ResolvePackageFile(root, name, file string) (string, error) {
	notFound := errs.ValidationError("resolve_package_file", errs.ErrMediaNotFound).
		WithDetail("package", name).
		WithDetail("file", file)

	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", notFound
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", notFound
	}
	rootAbs, err = filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return "", notFound
	}
	pkgDir := filepath.Join(rootAbs, name)

	path, err := filepath.EvalSymlinks(filepath.Join(pkgDir, filepath.FromSlash(filepath.Clean("/"+file))))
	if err != nil {
		return "", notFound
	}
	if path == pkgDir || !utils.IsWithin(pkgDir, path) {
		return "", notFound
	}
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return "", notFound
	}
	return path, nil
}
