// Package repository resolves the GitHub owner/repo pair a local checkout
// points at.
package repository

import (
	"fmt"
	"os/exec"
	"strings"
)

// FromGit reads the origin remote of the git repository at root and parses
// it into owner and repo.
func FromGit(root string) (string, string, error) {
	cmd := exec.Command("git", "config", "--get", "remote.origin.url")
	cmd.Dir = root
	out, err := cmd.Output()
	url := strings.TrimSpace(string(out))
	if err != nil || url == "" {
		return "", "", fmt.Errorf("missing git remote origin URL")
	}
	owner, repo, ok := ParseRemote(url)
	if !ok {
		return "", "", fmt.Errorf("unsupported git remote URL: %s", url)
	}
	return owner, repo, nil
}

// ParseRemote extracts owner and repo from a GitHub remote URL in SSH or
// HTTPS form.
func ParseRemote(url string) (string, string, bool) {
	var path string
	switch {
	case strings.HasPrefix(url, "git@github.com:"):
		path = strings.TrimPrefix(url, "git@github.com:")
	case strings.HasPrefix(url, "https://github.com/"):
		path = strings.TrimPrefix(url, "https://github.com/")
	case strings.HasPrefix(url, "https://www.github.com/"):
		path = strings.TrimPrefix(url, "https://www.github.com/")
	default:
		return "", "", false
	}
	path = strings.TrimSuffix(path, ".git")

	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
