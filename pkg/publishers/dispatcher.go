package publishers

import (
	"context"
	"errors"
	"io"
)

// Dispatcher fans one event out to every publisher in order.
type Dispatcher struct {
	pubs []Publisher
	log  Logger
}

// NewDispatcher wraps pubs. A Dispatcher with no publishers is a no-op.
func NewDispatcher(log Logger, pubs ...Publisher) *Dispatcher {
	return &Dispatcher{pubs: pubs, log: ensureLogger(log)}
}

// Len reports how many publishers are attached.
func (d *Dispatcher) Len() int {
	if d == nil {
		return 0
	}
	return len(d.pubs)
}

// Publish delivers evt to each publisher. Failures are logged and counted, never returned.
func (d *Dispatcher) Publish(ctx context.Context, evt Event) (failed int) {
	if d == nil {
		return 0
	}

	for _, pub := range d.pubs {
		if ctx.Err() != nil {
			return failed + 1
		}
		if err := pub.Publish(ctx, evt); err != nil {
			failed++
			d.log.ErrorObj("publisher failed", "publisher_error", map[string]any{
				"publisher_id": pub.ID(),
				"type":         pub.Type(),
				"provider_id":  evt.ProviderID,
				"error":        err,
			})
			continue
		}
		d.log.InfoObj("feed event published", "publisher_delivered", map[string]any{
			"publisher_id": pub.ID(),
			"provider_id":  evt.ProviderID,
			"items":        evt.ItemCount,
		})
	}
	return failed
}

// Close releases publishers that hold connections.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	return closeAll(d.pubs)
}

func closeAll(pubs []Publisher) error {
	var errs []error
	for _, pub := range pubs {
		if c, ok := pub.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
