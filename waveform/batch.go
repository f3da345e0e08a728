package waveform

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Batch synthesizes each element of params concurrently.  The output is in
// the same order as the input.  The first error cancels the remaining work
// and is returned annotated with the index of the failing element.
func (s Synthesizer) Batch(ctx context.Context, params []interface{}) ([]PulseEnvelope, error) {
	out := make([]PulseEnvelope, len(params))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx := range params {
		idx := idx
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := s.Synthesize(params[idx])
			if err != nil {
				return errors.Wrapf(err, "pulse %d", idx)
			}
			out[idx] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
