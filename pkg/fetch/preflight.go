package fetch

import (
	"context"
	"fmt"

	"github.com/Rastion/openshop-problem/pkg/source"
)

// Preflight verifies that listing is permitted under the first derived
// prefix before any downloads start.
//
// This turns credential and bucket problems into a single fast failure
// instead of one error record per key.
func Preflight(ctx context.Context, src source.Source, prefixes []string) error {
	prefix := ""
	if len(prefixes) > 0 {
		prefix = prefixes[0]
	}

	_, err := src.List(ctx, source.ListOptions{Prefix: prefix, MaxKeys: 1})
	if err != nil {
		return fmt.Errorf("preflight list probe (prefix=%q): %w", prefix, err)
	}
	return nil
}
