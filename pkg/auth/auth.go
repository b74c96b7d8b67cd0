// Package auth resolves the GitHub token used for API calls.
package auth

import (
	"os"
	"os/exec"
	"strings"
)

// Token resolves a GitHub token: the GITHUB_TOKEN environment variable
// first, then GH_TOKEN, then the gh CLI's stored credentials. Returns the
// empty string when no token is available.
func Token() string {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token
	}
	return tokenFromGH()
}

func tokenFromGH() string {
	out, err := exec.Command("gh", "auth", "token").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
