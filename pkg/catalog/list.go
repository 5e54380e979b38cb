package catalog

import (
	"context"

	"github.com/Rastion/openshop-problem/pkg/source"
)

// ListAll drains all pages of a listing for the given prefix.
//
// Intended for bounded collections (fingerprinting, fetch preflight);
// large scans should use the Scanner pipeline instead.
func ListAll(ctx context.Context, src source.Source, prefix string) ([]source.ObjectSummary, error) {
	var all []source.ObjectSummary
	var token string

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := src.List(ctx, source.ListOptions{
			Prefix:            prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}

		all = append(all, result.Objects...)

		if !result.IsTruncated || result.ContinuationToken == "" {
			return all, nil
		}
		token = result.ContinuationToken
	}
}
