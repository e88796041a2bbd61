// Package platforms locates each platform's default on-disk store, per the
// documented platform source locations. Every function is best-effort: a
// platform whose store cannot be found returns an empty path rather than an
// error, so the orchestrator simply treats that platform as unavailable.
package platforms

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	Augment        = "augment"
	Warp           = "warp"
	ClaudeDesktop  = "claudedesktop"
	ClaudeCLI      = "claudecli"
)

// AugmentStorePath searches VSCode's workspaceStorage for the first
// Augment.vscode-augment/augment-kv-store LevelDB directory.
func AugmentStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	roots := []string{
		filepath.Join(home, "Library", "Application Support", "Code", "User", "workspaceStorage"),
		filepath.Join(home, ".config", "Code", "User", "workspaceStorage"),
		filepath.Join(home, "AppData", "Roaming", "Code", "User", "workspaceStorage"),
	}

	for _, root := range roots {
		matches, err := doublestar.FilepathGlob(filepath.Join(root, "*", "Augment.vscode-augment", "augment-kv-store"))
		if err != nil || len(matches) == 0 {
			continue
		}
		return matches[0]
	}
	return ""
}

// WarpDBPath returns Warp's SQLite store path on macOS, the only platform
// Warp ships a desktop client for today.
func WarpDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, "Library", "Group Containers", "2BBY89MBSN.dev.warp", "Library", "Application Support", "dev.warp.Warp-Stable", "warp.sqlite")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// ClaudeDesktopDBPath returns the first *.db found under Claude Desktop's
// application support directory.
func ClaudeDesktopDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	root := filepath.Join(home, "Library", "Application Support", "Claude")
	matches, err := doublestar.FilepathGlob(filepath.Join(root, "**", "*.db"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// ClaudeCLIProjectsDir returns ~/.claude/projects, the root Claude CLI
// stores one subdirectory per project under.
func ClaudeCLIProjectsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".claude", "projects")
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}
