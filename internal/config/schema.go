package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// Validate checks config against the embedded CUE schema.
func Validate(config *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("invalid config schema: %w", err)
	}

	value := ctx.Encode(config)
	if err := value.Err(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s", cueerrors.Details(err, nil))
	}
	return nil
}

// CheckDirs verifies both media directories can be listed.
func CheckDirs(dirs DirsConfig) error {
	for _, dir := range []string{dirs.Unprocessed, dirs.Processed} {
		if _, err := os.ReadDir(dir); err != nil {
			return fmt.Errorf("media directory %s is not readable: %w", dir, err)
		}
	}
	return nil
}
