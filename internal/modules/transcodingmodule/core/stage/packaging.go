package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
)

// Packaging multiplexes fragmented tracks and subtitles into a DASH
// manifest with mp4dash.
type Packaging struct {
	Layout Layout
	Files  []string
	outDir string
}

// NewPackaging returns a packaging stage over files, in order.
func NewPackaging(layout Layout, files []string) *Packaging {
	return &Packaging{Layout: layout, Files: files}
}

func (p *Packaging) sealed() {}

// Kind implements Stage.
func (p *Packaging) Kind() Kind { return KindPackaging }

// ToleratesFailure implements Stage. Packaging is always fatal.
func (p *Packaging) ToleratesFailure() bool { return false }

// SetOutDir overrides the output directory. The directory must not exist
// yet and must not look like a file name.
func (p *Packaging) SetOutDir(dir string) error {
	if err := checkOutDir(dir); err != nil {
		return err
	}
	p.outDir = dir
	return nil
}

func checkOutDir(dir string) error {
	const op = "set_out_dir"
	if _, err := os.Stat(dir); err == nil {
		return errs.ConfigError(op, errs.ErrDirectoryExists).WithDetail("path", dir)
	}
	if filepath.Ext(dir) != "" {
		return errs.ConfigError(op, errs.ErrNotDirectory).WithDetail("path", dir)
	}
	return nil
}

// OutDir returns the explicit output directory or the layout default
// derived from the first input.
func (p *Packaging) OutDir() string {
	if p.outDir != "" {
		return p.outDir
	}
	if len(p.Files) == 0 {
		return ""
	}
	return p.Layout.PackageDir(p.Files[0])
}

// Validate implements Stage.
func (p *Packaging) Validate() error {
	if len(p.Files) == 0 {
		return errs.ConfigError("validate_packaging", errs.ErrNoInputs)
	}
	if p.outDir != "" {
		return checkOutDir(p.outDir)
	}
	return nil
}

// Build implements Stage. Audio inputs are tagged with a running language
// number starting at 1 and subtitle inputs are declared as WebVTT.
func (p *Packaging) Build() (*Invocation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := p.OutDir()
	args := []string{"-o", out, "--mpd-name=" + ManifestName, "--use-segment-timeline"}

	language := 0
	for _, file := range p.Files {
		name := filepath.Base(file)
		switch {
		case strings.Contains(name, "-"+string(TrackAudio)+"-"):
			language++
			args = append(args, fmt.Sprintf("[+language=%d]%s", language, file))
		case strings.Contains(name, "-"+string(TrackSubtitle)+"-"):
			args = append(args, "[+format=webvtt]"+file)
		default:
			args = append(args, file)
		}
	}

	return &Invocation{
		Kind:   KindPackaging,
		Binary: ToolMP4Dash,
		Args:   args,
		Output: out,
	}, nil
}
