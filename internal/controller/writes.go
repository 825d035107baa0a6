package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"matter-go-home/internal/dispatch"
)

// WriteResult is emitted on the bus when a write completes.
type WriteResult struct {
	RequestID string          `json:"request_id"`
	Node      string          `json:"node"`
	Endpoint  uint16          `json:"endpoint"`
	Cluster   string          `json:"cluster"`
	Attribute string          `json:"attribute"`
	Status    dispatch.Status `json:"status"`
	Error     string          `json:"error,omitempty"`
	Elapsed   time.Duration   `json:"elapsed_ns"`
}

// OK reports whether the device accepted the write.
func (r WriteResult) OK() bool {
	return r.Error == "" && r.Status == dispatch.StatusSuccess
}

// WriteAttribute looks up cluster.attribute in the dispatch table and
// submits the write to node/endpoint. It returns a request ID once the
// write is on its way; the outcome is delivered to cb (which may be nil)
// and emitted as a write_result event carrying the same ID.
func (c *Controller) WriteAttribute(ctx context.Context, node uint64, endpoint uint16, cluster, attribute string, args dispatch.Args, cb dispatch.Callback, opts ...dispatch.InvokeOption) (string, error) {
	d, err := c.writes.Lookup(cluster, attribute)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	start := c.now()
	done := func(res dispatch.Result) {
		wr := WriteResult{
			RequestID: id,
			Node:      FormatNodeID(node),
			Endpoint:  endpoint,
			Cluster:   d.Cluster,
			Attribute: d.Attribute,
			Status:    res.Status,
			Elapsed:   c.now().Sub(start),
		}
		if res.Err != nil {
			wr.Error = res.Err.Error()
		}
		if wr.OK() {
			c.logger.Info("attribute write done", "id", id, "node", wr.Node, "attr", d.Cluster+"."+d.Attribute)
		} else {
			c.logger.Warn("attribute write failed", "id", id, "node", wr.Node, "attr", d.Cluster+"."+d.Attribute,
				"status", res.Status, "err", res.Err)
		}
		c.events.Emit(Event{Type: EventWriteResult, Data: wr})
		if cb != nil {
			cb(res)
		}
	}

	if err := d.Invoke(ctx, c.Endpoint(node, endpoint), args, done, opts...); err != nil {
		return "", fmt.Errorf("write %s.%s: %w", d.Cluster, d.Attribute, err)
	}
	c.logger.Debug("attribute write submitted", "id", id, "node", FormatNodeID(node), "endpoint", endpoint,
		"attr", d.Cluster+"."+d.Attribute, "timed", d.Timed())
	return id, nil
}

// WriteAttributeSync is WriteAttribute that waits for the outcome or ctx.
func (c *Controller) WriteAttributeSync(ctx context.Context, node uint64, endpoint uint16, cluster, attribute string, args dispatch.Args, opts ...dispatch.InvokeOption) (dispatch.Result, error) {
	ch := make(chan dispatch.Result, 1)
	if _, err := c.WriteAttribute(ctx, node, endpoint, cluster, attribute, args, func(r dispatch.Result) { ch <- r }, opts...); err != nil {
		return dispatch.Result{}, err
	}
	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return dispatch.Result{}, ctx.Err()
	}
}
