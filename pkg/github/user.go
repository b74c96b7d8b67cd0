package github

import (
	"context"

	gogithub "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// AuthenticatedUser resolves the login of the user the token belongs to.
// Used by identity checks before any sync work happens.
func AuthenticatedUser(ctx context.Context, token string) (*gogithub.User, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := gogithub.NewClient(oauth2.NewClient(ctx, ts))
	user, _, err := client.Users.Get(ctx, "")
	return user, err
}
