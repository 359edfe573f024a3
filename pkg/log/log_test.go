package log_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nimbuschat/nimbus/pkg/log"
)

// zerolog's level methods have pointer receivers, so the accessors must
// return an addressable logger for direct chaining.
func TestAccessorsAllowChainedCalls(t *testing.T) {
	log.L().Debug().Str("k", "v").Msg("chained on global")
	log.Ctx(context.Background()).Debug().Msg("chained on fallback")
}

func TestCtxRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	child := zerolog.New(&buf).With().Str("scope", "test").Logger()
	ctx := log.WithLogger(context.Background(), child)

	log.Ctx(ctx).Info().Msg("hello")
	if !strings.Contains(buf.String(), `"scope":"test"`) {
		t.Errorf("context logger not used, output: %s", buf.String())
	}
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	if log.Ctx(context.Background()) != log.L() {
		t.Error("expected the global logger when the context carries none")
	}
}
