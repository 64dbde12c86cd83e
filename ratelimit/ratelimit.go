// Package ratelimit throttles requests per client key. Limiters are plain
// values handed to the HTTP layer; nothing here is process-global.
package ratelimit

import (
	"context"
	"time"
)

// Rule allows Limit requests per Window for every key.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

var (
	LoginRule    = Rule{Name: "login", Limit: 5, Window: time.Minute}
	RegisterRule = Rule{Name: "register", Limit: 3, Window: time.Hour}
	PanicRule    = Rule{Name: "panic", Limit: 10, Window: time.Minute}
	DefaultRule  = Rule{Name: "default", Limit: 50, Window: time.Hour}
)

// Limiter decides whether one more request for key fits in rule.
type Limiter interface {
	Allow(ctx context.Context, rule Rule, key string) (bool, error)
}

// Unlimited lets everything through. Used when rate limiting is disabled.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, Rule, string) (bool, error) {
	return true, nil
}
