package config

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// workspaceMarkers are the glob patterns (matched against a single
// directory entry name, not a full path) that mark a directory as a
// project root. Using doublestar.Match instead of a plain equality
// check lets the list hold patterns like "*.sln" without changes to
// the matching code. The list is fixed at build time; there is no
// configuration hook for it.
var workspaceMarkers = []string{
	".git",
	"Cargo.toml",
	"go.mod",
	"package.json",
	"pyproject.toml",
	"setup.py",
	"pom.xml",
	"build.gradle",
	"Gemfile",
	"composer.json",
	"mix.exs",
	"dune-project",
}

// DetectWorkspaceRoot walks upward from path looking for a directory
// containing one of workspaceMarkers.
//
// This lives outside the dispatch core on purpose: workspace_root is
// caller-supplied so that dispatch stays pure. Only the leta CLI
// client calls this, to fill in a default when the user omits
// --workspace-root.
func DetectWorkspaceRoot(path string) (string, bool) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, entry := range entries {
				for _, marker := range workspaceMarkers {
					if ok, _ := doublestar.Match(marker, entry.Name()); ok {
						return dir, true
					}
				}
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
