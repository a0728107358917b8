package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestScopedPrefersContextLogger(t *testing.T) {
	var base, req bytes.Buffer
	baseLogger := slog.New(slog.NewTextHandler(&base, nil))
	reqLogger := slog.New(slog.NewTextHandler(&req, nil))

	ctx := ContextWithLogger(context.Background(), reqLogger)
	Scoped(ctx, baseLogger, "rota", "edit", "user", "jdoe").Info("hello")
	if base.Len() != 0 {
		t.Fatalf("base logger should be unused, got %q", base.String())
	}
	out := req.String()
	for _, want := range []string{"component=rota", "operation=edit", "user=jdoe", "msg=hello"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}

	Scoped(context.Background(), baseLogger, "rota", "").Info("fallback")
	if !strings.Contains(base.String(), "msg=fallback") || strings.Contains(base.String(), "operation=") {
		t.Fatalf("unexpected fallback output %q", base.String())
	}
}

func TestFromContextWithoutLogger(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("expected nil logger")
	}
	ctx := context.Background()
	if ContextWithLogger(ctx, nil) != ctx {
		t.Fatal("nil logger should return the same context")
	}
}
