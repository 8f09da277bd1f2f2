// Package stage describes the external-process invocations that make up a
// conversion job.
//
// A Stage is an immutable, validated specification of one process run. The
// set of stage kinds is closed: Encoding (ffmpeg), Fragmenting (mp4fragment)
// and Packaging (mp4dash). Each variant validates its own fields and builds an
// Invocation; none of them spawns anything itself.
//
// File names shared between stages come from Layout so that the encoder,
// the fragmenter and the packager agree on every path.
package stage

import (
	"fmt"
	"strings"
)

// Kind identifies a stage variant.
type Kind int

const (
	KindEncoding Kind = iota + 1
	KindFragmenting
	KindPackaging
)

var kindNames = map[Kind]string{
	KindEncoding:    "encoding",
	KindFragmenting: "fragmenting",
	KindPackaging:   "packaging",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ValidatesAhead reports whether stages of this kind depend only on inputs
// that exist before a job starts. Fragmenting reads an encoder's output, so
// it can only be validated once the stages before it have run.
func (k Kind) ValidatesAhead() bool {
	return k != KindFragmenting
}

// Stage is one external-process specification within a job.
type Stage interface {
	// Kind returns the variant.
	Kind() Kind

	// Validate checks the specification. Failures are config errors from the
	// closed set in the errors package.
	Validate() error

	// Build validates and returns the concrete invocation.
	Build() (*Invocation, error)

	// ToleratesFailure reports whether a non-zero exit may be ignored.
	ToleratesFailure() bool

	sealed()
}

// Invocation is a fully resolved process run. Stdin is always null; stdout
// and stderr are always captured.
type Invocation struct {
	Kind Kind
	// Binary is the tool name ("ffmpeg", "mp4fragment", "mp4dash"). The
	// launcher maps it to a configured executable path.
	Binary string
	Args   []string
	// Output is the file or directory the process writes.
	Output string
}

// String renders the invocation as a shell-like command line for logs.
func (i *Invocation) String() string {
	return strings.Join(append([]string{i.Binary}, i.Args...), " ")
}

// Tool names used in invocations.
const (
	ToolFFmpeg      = "ffmpeg"
	ToolMP4Fragment = "mp4fragment"
	ToolMP4Dash     = "mp4dash"
)
