package nix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/blackwell-systems/neix/internal/errdefs"
)

// Source produces a full snapshot of package metadata.
type Source interface {
	Fetch(ctx context.Context) (Snapshot, error)

	// Describe names the source for logs and index metadata,
	// e.g. "nix search nixpkgs".
	Describe() string
}

// Source kinds accepted by NewSource.
const (
	KindSearch = "search"
	KindEval   = "eval"
	KindFile   = "file"
)

// DefaultCommand is the nix executable looked up on PATH.
const DefaultCommand = "nix"

// SearchSource runs `nix search <flake> . --json`.
type SearchSource struct {
	Flake   string
	Command string // defaults to DefaultCommand
}

func (s *SearchSource) Describe() string {
	return "nix search " + s.Flake
}

func (s *SearchSource) Fetch(ctx context.Context) (Snapshot, error) {
	out, err := run(ctx, s.Command, "search", s.Flake, ".", "--json")
	if err != nil {
		return nil, err
	}
	return Parse(out, ParseOptions{})
}

// EvalSource runs `nix eval --json --file <file>`.
type EvalSource struct {
	File    string
	Command string // defaults to DefaultCommand
}

func (s *EvalSource) Describe() string {
	return "nix eval --file " + s.File
}

func (s *EvalSource) Fetch(ctx context.Context) (Snapshot, error) {
	out, err := run(ctx, s.Command, "eval", "--json", "--file", s.File)
	if err != nil {
		return nil, err
	}
	return Parse(out, ParseOptions{NameFromAttr: true})
}

// FileSource reads a snapshot previously written by `nix search --json` or
// `neix export`.
type FileSource struct {
	Path string
}

func (s *FileSource) Describe() string {
	return "file " + s.Path
}

func (s *FileSource) Fetch(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, errdefs.Snapshot(errdefs.PhaseFetch, "fetch cancelled", err)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errdefs.Snapshot(errdefs.PhaseFetch, fmt.Sprintf("failed to read snapshot file %s", s.Path), err)
	}
	return Parse(data, ParseOptions{})
}

// SourceOptions carries the settings NewSource needs for every kind.
type SourceOptions struct {
	Flake    string
	EvalFile string
	File     string
	Command  string
}

// NewSource builds the Source for kind.
func NewSource(kind string, opts SourceOptions) (Source, error) {
	switch kind {
	case KindSearch, "":
		flake := opts.Flake
		if flake == "" {
			flake = "nixpkgs"
		}
		return &SearchSource{Flake: flake, Command: opts.Command}, nil
	case KindEval:
		if opts.EvalFile == "" {
			return nil, errors.New("eval source requires an expression file (--eval-file or eval_file)")
		}
		return &EvalSource{File: opts.EvalFile, Command: opts.Command}, nil
	case KindFile:
		if opts.File == "" {
			return nil, errors.New("file source requires a snapshot path (--from-file or snapshot_file)")
		}
		return &FileSource{Path: opts.File}, nil
	default:
		return nil, fmt.Errorf("unknown source %q (want %s, %s or %s)", kind, KindSearch, KindEval, KindFile)
	}
}

// run executes the nix command and returns its stdout. On failure the
// command's stderr is carried in the error.
func run(ctx context.Context, command string, args ...string) ([]byte, error) {
	if command == "" {
		command = DefaultCommand
	}
	display := command + " " + strings.Join(args, " ")

	cmd := exec.CommandContext(ctx, command, args...)
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errdefs.Snapshot(errdefs.PhaseFetch, display+" cancelled", ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			return nil, errdefs.Snapshot(errdefs.PhaseFetch, display+" failed", fmt.Errorf("%w (stderr: %s)", err, stderr))
		}
		return nil, errdefs.Snapshot(errdefs.PhaseFetch, display+" failed", err)
	}
	return out, nil
}
