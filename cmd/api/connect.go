package main

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"mermaidrender/internal/pkg/logger"
)

const (
	connectAttempts = 5
	connectTimeout  = 5 * time.Second
)

// connect pings a backing store until it answers, backing off between
// attempts.
func connect(ctx context.Context, log *logger.Logger, name string, ping func(ctx context.Context) error) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectAttempts),
		ctx,
	)

	return backoff.RetryNotify(func() error {
		pctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return ping(pctx)
	}, b, func(err error, wait time.Duration) {
		log.Warn("backing store not ready, retrying",
			"store", name,
			"error", err.Error(),
			"retry_in", wait.String(),
		)
	})
}
