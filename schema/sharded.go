package schema

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// LearnSharded learns every source concurrently, at most shards at a time,
// and merges the per-shard profiles. Shards share no state until the final
// merge, so the result is independent of shard scheduling. A non-positive
// shards runs every source at once.
func LearnSharded(ctx context.Context, sources []RecordSource, shards int) (*Profile, error) {
	if len(sources) == 0 {
		return NewProfile(), nil
	}
	if shards <= 0 {
		shards = len(sources)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(shards)

	profiles := make([]*Profile, len(sources))
	for i, source := range sources {
		g.Go(func() error {
			profile, err := Learn(gctx, source)
			if err != nil {
				return err
			}
			profiles[i] = profile
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := profiles[0]
	for _, profile := range profiles[1:] {
		merged = Merge(merged, profile)
	}
	return merged, nil
}
