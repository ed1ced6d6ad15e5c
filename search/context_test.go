package search_test

import (
	"context"
	"testing"

	"github.com/dshills/pexplore/search"
)

func TestContextKeysRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = context.WithValue(ctx, search.RunIDKey, "run-1")
	ctx = context.WithValue(ctx, search.IterKey, 3)
	ctx = context.WithValue(ctx, search.DepthKey, 7)
	ctx = context.WithValue(ctx, search.ChoiceDepthKey, 2)

	if got, _ := ctx.Value(search.RunIDKey).(string); got != "run-1" {
		t.Fatalf("expected run-1, got %v", got)
	}
	if got, _ := ctx.Value(search.IterKey).(int); got != 3 {
		t.Fatalf("expected iter 3, got %v", got)
	}
	if got, _ := ctx.Value(search.DepthKey).(int); got != 7 {
		t.Fatalf("expected depth 7, got %v", got)
	}
	if got, _ := ctx.Value(search.ChoiceDepthKey).(int); got != 2 {
		t.Fatalf("expected choice depth 2, got %v", got)
	}
}
