package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/blackwell-systems/neix/internal/store"
)

const (
	noVersion     = "no version"
	noDescription = "no description"
)

// RenderResults writes query results as numbered entries:
//
//	Found 2 package(s):
//
//	[1] legacyPackages.x86_64-linux.hello
//	  Name: hello
//	  Version: 2.12.1
//	  Description: A program that produces a familiar, friendly greeting
//
// An empty result prints the no-match hint instead.
func RenderResults(w io.Writer, pkgs []store.Package, st Styles) {
	if len(pkgs) == 0 {
		RenderNoResults(w, st)
		return
	}

	fmt.Fprintf(w, "%s %s %s\n\n",
		st.paint(st.Label.Bold(true), "Found"),
		st.paint(st.Count, fmt.Sprint(len(pkgs))),
		st.paint(st.Label.Bold(true), "package(s):"))

	for i, pkg := range pkgs {
		fmt.Fprintf(w, "%s %s\n", st.paint(st.Dim, fmt.Sprintf("[%d]", i+1)), st.paint(st.Attr, pkg.Attr))
		fmt.Fprintf(w, "  %s %s\n", st.paint(st.Label, "Name:"), st.paint(st.Value, pkg.Name))
		fmt.Fprintf(w, "  %s %s\n", st.paint(st.Label, "Version:"), versionText(pkg, st))
		fmt.Fprintf(w, "  %s %s\n", st.paint(st.Label, "Description:"), descriptionText(pkg, st))
		if i < len(pkgs)-1 {
			fmt.Fprintln(w)
		}
	}
}

// RenderNoResults writes the message shown when a query matches nothing.
func RenderNoResults(w io.Writer, st Styles) {
	fmt.Fprintln(w, st.paint(st.Warning, "No packages found"))
	fmt.Fprintln(w, st.paint(st.Warning, "Run neix --update to create the database"))
}

func versionText(pkg store.Package, st Styles) string {
	if pkg.Version == nil {
		return st.paint(st.Dim, noVersion)
	}
	return st.paint(st.Count, *pkg.Version)
}

func descriptionText(pkg store.Package, st Styles) string {
	if pkg.Description == nil {
		return st.paint(st.Dim, noDescription)
	}
	// Keep each entry to one line per field.
	return strings.Join(strings.Fields(*pkg.Description), " ")
}

// RenderJSON writes results as an indented JSON array. Absent fields are null.
func RenderJSON(w io.Writer, pkgs []store.Package) error {
	if pkgs == nil {
		pkgs = []store.Package{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pkgs); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

// Success writes a check-marked status line.
func Success(w io.Writer, st Styles, msg string) {
	fmt.Fprintf(w, "%s %s\n", st.paint(st.Success, "✓"), st.paint(st.Success.UnsetBold(), msg))
}

// Failure writes a cross-marked status line.
func Failure(w io.Writer, st Styles, msg string) {
	fmt.Fprintf(w, "%s %s\n", st.paint(st.Error, "✗"), st.paint(st.Error.UnsetBold(), msg))
}
