// SPDX-License-Identifier: EPL-2.0

package transcode

import (
	"context"
	"sync/atomic"
)

// Canceler is the coordinator's cancellation token: an atomic.Bool flipped
// by an explicit Cancel() call, plus an optional context.Context so a
// caller that already manages cancellation through a context (as
// thesyncim/gopus's test helpers or any ctx-aware caller would) gets the
// same trip without the coordinator threading a context into every
// lower-level call — §5 keeps context.Context at CORE-owned suspension
// points only, never passed into external decoder/encoder calls.
type Canceler struct {
	canceled atomic.Bool
	ctx      context.Context
}

// NewCanceler returns a Canceler that trips when either Cancel is called
// or ctx is done. ctx may be nil.
func NewCanceler(ctx context.Context) *Canceler {
	return &Canceler{ctx: ctx}
}

// Cancel trips the token.
func (c *Canceler) Cancel() {
	c.canceled.Store(true)
}

// Canceled reports whether the token has tripped, implementing
// audio.Canceler.
func (c *Canceler) Canceled() bool {
	if c.canceled.Load() {
		return true
	}
	return c.ctx != nil && c.ctx.Err() != nil
}
