// Command tokenmanager-demo exercises the token-manager facade end to
// end against an in-memory storage backend and a stub renewal client,
// logging every lifecycle event to stdout. The library itself has no
// CLI — this command exists only to give the facade something to run
// against outside of tests. Grounded on cmd/main.go's flag parsing and
// structured-logging bootstrap.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/okta-compat/token-manager/eventbus"
	"github.com/okta-compat/token-manager/storage"
	"github.com/okta-compat/token-manager/tokenmanager"
	"github.com/okta-compat/token-manager/tokenstore"
)

// stubRenewClient always succeeds after a short simulated delay,
// returning an access token that expires an hour from the call. The
// token value is the same "demo-access-token" on every call; only its
// expiry differs between renewals.
type stubRenewClient struct {
	calls int
}

func (c *stubRenewClient) Renew(ctx context.Context, key string) (tokenstore.Token, error) {
	c.calls++
	time.Sleep(50 * time.Millisecond)
	return tokenstore.Token{
		Scopes:      []string{"openid", "profile"},
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		AccessToken: "demo-access-token",
	}, nil
}

func main() {
	storageKey := flag.String("storage-key", "okta-token-storage", "top-level persisted storage key")
	expireEarly := flag.Int("expire-early", 30, "seconds subtracted from expiresAt before a token is considered expired")
	autoRenew := flag.Bool("auto-renew", true, "invoke the renewal coordinator when a token's timer fires")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	bus := eventbus.New()
	for _, event := range []string{eventbus.Added, eventbus.Removed, eventbus.Renewed, eventbus.Expired, eventbus.Error} {
		event := event
		bus.On(event, func(args ...any) {
			logger.Info("token event", "event", event, "args", args)
		}, nil)
	}

	client := &stubRenewClient{}
	cfg := tokenmanager.Config{
		Storage:            storage.OptionMemory,
		StorageKey:         *storageKey,
		ExpireEarlySeconds: expireEarly,
		AutoRenew:          *autoRenew,
	}

	facade, err := tokenmanager.New(cfg, client, bus, nil, nil, logger, nil)
	if err != nil {
		logger.Error("failed to construct token manager", "error", err)
		os.Exit(1)
	}
	defer facade.Close()

	tok := tokenstore.Token{
		Scopes:      []string{"openid"},
		ExpiresAt:   time.Now().Add(2 * time.Second).Unix(),
		AccessToken: "initial-access-token",
	}
	if err := facade.Add("accessToken", tok); err != nil {
		logger.Error("failed to add token", "error", err)
		os.Exit(1)
	}

	logger.Info("token manager demo running; waiting for expiration and renewal")
	time.Sleep(5 * time.Second)

	got, ok, err := facade.Get("accessToken")
	if err != nil {
		logger.Error("get failed", "error", err)
		os.Exit(1)
	}
	logger.Info("final token state", "present", ok, "token", got.String())
}
