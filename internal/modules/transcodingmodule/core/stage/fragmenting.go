package stage

import (
	"os"

	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
)

// Fragmenting converts an mp4 into a fragmented mp4 with mp4fragment.
type Fragmenting struct {
	Layout Layout
	Input  string
	// Output defaults to Layout.Fragment(Input) when empty.
	Output  string
	CanFail bool
}

// NewFragmenting returns a fragmenting stage for input.
func NewFragmenting(layout Layout, input string) *Fragmenting {
	return &Fragmenting{Layout: layout, Input: input}
}

func (f *Fragmenting) sealed() {}

// Kind implements Stage.
func (f *Fragmenting) Kind() Kind { return KindFragmenting }

// ToleratesFailure implements Stage.
func (f *Fragmenting) ToleratesFailure() bool { return f.CanFail }

// Validate implements Stage.
func (f *Fragmenting) Validate() error {
	if _, err := os.Stat(f.Input); err != nil {
		return errs.ConfigError("validate_fragmenting", errs.ErrFileNotFound).WithDetail("path", f.Input)
	}
	return nil
}

// OutputPath returns the explicit output or the layout default.
func (f *Fragmenting) OutputPath() string {
	if f.Output != "" {
		return f.Output
	}
	return f.Layout.Fragment(f.Input)
}

// Build implements Stage.
func (f *Fragmenting) Build() (*Invocation, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	out := f.OutputPath()
	return &Invocation{
		Kind:   KindFragmenting,
		Binary: ToolMP4Fragment,
		Args:   []string{f.Input, out},
		Output: out,
	}, nil
}
