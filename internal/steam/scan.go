package steam

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/optiscaler-linux/optiscaler-manager/internal/launchopts"
)

// UserLaunchOptions is one user's LaunchOptions for an app. Err is set when
// that user's config could not be read or parsed.
type UserLaunchOptions struct {
	User  User
	Value string
	Found bool
	Err   error
}

// ScanLaunchOptions reads appID's LaunchOptions from every user's config
// concurrently. Per-user failures are reported in the results; only
// cancellation aborts the scan.
func ScanLaunchOptions(ctx context.Context, users []User, appID string) ([]UserLaunchOptions, error) {
	if err := launchopts.ValidateAppID(appID); err != nil {
		return nil, err
	}
	results := make([]UserLaunchOptions, len(users))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, u := range users {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = readUser(u, appID)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func readUser(u User, appID string) UserLaunchOptions {
	r := UserLaunchOptions{User: u}
	if !u.HasConfig {
		r.Err = fmt.Errorf("user %s has no localconfig.vdf", u.ID)
		return r
	}
	data, err := os.ReadFile(u.ConfigPath)
	if err != nil {
		r.Err = err
		return r
	}
	r.Value, r.Found, r.Err = launchopts.Read(data, appID)
	return r
}
