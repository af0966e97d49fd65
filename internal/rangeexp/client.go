// Package rangeexp resolves R@ cluster queries against an external range
// server.
package rangeexp

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/square/erg"
)

// Client wraps an erg range client and bounds each lookup with the
// caller's context. It satisfies match.RangeExpander.
type Client struct {
	erg *erg.Erg
	log logrus.FieldLogger
}

func New(host string, port int, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{erg: erg.New(host, port), log: log}
}

// Expand resolves one range query. The erg client has no context
// support, so the lookup runs in a goroutine and its result is abandoned
// when the context expires; the orphaned goroutine finishes its HTTP
// call and exits.
func (c *Client) Expand(ctx context.Context, query string) ([]string, error) {
	type result struct {
		nodes []string
		err   error
	}
	ch := make(chan result, 1)
	start := time.Now()
	go func() {
		nodes, err := c.erg.Expand(query)
		ch <- result{nodes: nodes, err: err}
	}()
	select {
	case <-ctx.Done():
		c.log.WithFields(logrus.Fields{
			"query":   query,
			"elapsed": time.Since(start),
		}).Warn("range lookup abandoned")
		return nil, ctx.Err()
	case r := <-ch:
		return r.nodes, r.err
	}
}
