package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"matter-go-home/internal/controller"
	"matter-go-home/internal/dispatch"
	"matter-go-home/internal/filter"
	"matter-go-home/internal/store"
	"matter-go-home/internal/transport"
)

const maxWriteWait = 30 * time.Second

// clusterSummary is one row of GET /api/clusters.
type clusterSummary struct {
	ID         uint32 `json:"id"`
	Name       string `json:"name"`
	Attributes int    `json:"attributes"`
	Writable   int    `json:"writable"`
	Events     int    `json:"events"`
}

func (s *Server) handleAPIListClusters(w http.ResponseWriter, r *http.Request) {
	defs := s.ctrl.Schema().All()
	out := make([]clusterSummary, 0, len(defs))
	for _, c := range defs {
		sum := clusterSummary{ID: c.ID, Name: c.Name, Attributes: len(c.Attributes), Events: len(c.Events)}
		if ds, err := s.ctrl.Writes().Writable(c.Name); err == nil {
			sum.Writable = len(ds)
		}
		out = append(out, sum)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIGetCluster(w http.ResponseWriter, r *http.Request) {
	c := s.ctrl.Schema().ByName(r.PathValue("cluster"))
	if c == nil {
		s.writeError(w, http.StatusNotFound, "cluster not found")
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAPIWritable(w http.ResponseWriter, r *http.Request) {
	ds, err := s.ctrl.Writes().Writable(r.PathValue("cluster"))
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleAPILookup(w http.ResponseWriter, r *http.Request) {
	d, err := s.ctrl.Writes().Lookup(r.PathValue("cluster"), r.PathValue("attribute"))
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAPIListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.ctrl.Nodes()
	if err != nil {
		s.logger.Error("list nodes", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if nodes == nil {
		nodes = []*store.Node{}
	}
	s.writeJSON(w, http.StatusOK, nodes)
}

// pathNode parses the {node} path value, writing a 400 on failure.
func (s *Server) pathNode(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := controller.ParseNodeID(r.PathValue("node"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid node id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleAPIGetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathNode(w, r)
	if !ok {
		return
	}
	node, err := s.ctrl.Store().GetNode(id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "node not found")
		return
	}
	if err != nil {
		s.logger.Error("get node", "err", err, "node", controller.FormatNodeID(id))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

type labelNodeRequest struct {
	Label string `json:"label"`
}

func (s *Server) handleAPILabelNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathNode(w, r)
	if !ok {
		return
	}

	var req labelNodeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	node, err := s.ctrl.SetNodeLabel(id, req.Label)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "node not found")
		return
	}
	if err != nil {
		s.logger.Error("label node", "err", err, "node", controller.FormatNodeID(id))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleAPIForgetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathNode(w, r)
	if !ok {
		return
	}
	err := s.ctrl.ForgetNode(id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "node not found")
		return
	}
	if err != nil {
		s.logger.Error("forget node", "err", err, "node", controller.FormatNodeID(id))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeAttributeRequest is the body of POST /api/nodes/{node}/write.
// Either Value (the attribute's single "value" parameter, JSON null for
// nullable attributes) or Args is given.
type writeAttributeRequest struct {
	Endpoint  uint16          `json:"endpoint"`
	Cluster   string          `json:"cluster"`
	Attribute string          `json:"attribute"`
	Value     json.RawMessage `json:"value,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	TimedMs   *uint32         `json:"timed_ms,omitempty"`
	// Wait holds the response until the device answers.
	Wait bool `json:"wait,omitempty"`
}

// decodeArgs builds the argument bag, keeping numbers exact.
func (req *writeAttributeRequest) decodeArgs() (dispatch.Args, error) {
	switch {
	case len(req.Args) > 0:
		var args dispatch.Args
		if err := decodeNumbers(req.Args, &args); err != nil {
			return nil, err
		}
		return args, nil
	case len(req.Value) > 0:
		var v any
		if err := decodeNumbers(req.Value, &v); err != nil {
			return nil, err
		}
		return dispatch.Single(v), nil
	}
	return dispatch.Args{}, nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

type writeAttributeResponse struct {
	RequestID string           `json:"request_id"`
	Status    *dispatch.Status `json:"status,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func (s *Server) handleAPIWriteAttribute(w http.ResponseWriter, r *http.Request) {
	node, ok := s.pathNode(w, r)
	if !ok {
		return
	}

	var req writeAttributeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Cluster == "" || req.Attribute == "" {
		s.writeError(w, http.StatusBadRequest, "cluster and attribute are required")
		return
	}
	args, err := req.decodeArgs()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid value")
		return
	}

	var opts []dispatch.InvokeOption
	if req.TimedMs != nil {
		opts = append(opts, dispatch.WithTimedTimeout(time.Duration(*req.TimedMs)*time.Millisecond))
	}

	var results chan dispatch.Result
	var cb dispatch.Callback
	if req.Wait {
		results = make(chan dispatch.Result, 1)
		cb = func(res dispatch.Result) { results <- res }
	}

	// The write outlives the request unless the caller waits for it.
	ctx := s.ctrl.Context()
	id, err := s.ctrl.WriteAttribute(ctx, node, req.Endpoint, req.Cluster, req.Attribute, args, cb, opts...)
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	if !req.Wait {
		s.writeJSON(w, http.StatusAccepted, writeAttributeResponse{RequestID: id})
		return
	}

	wctx, cancel := context.WithTimeout(r.Context(), maxWriteWait)
	defer cancel()
	select {
	case res := <-results:
		resp := writeAttributeResponse{RequestID: id, Status: &res.Status}
		if res.Err != nil {
			resp.Error = res.Err.Error()
		}
		s.writeJSON(w, http.StatusOK, resp)
	case <-wctx.Done():
		s.writeJSON(w, http.StatusGatewayTimeout, writeAttributeResponse{RequestID: id, Error: "no response yet"})
	}
}

// writeDispatchError maps lookup and contract errors to client errors and
// link errors to 503.
func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrLookup):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dispatch.ErrContract):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, transport.ErrBusy), errors.Is(err, transport.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("write attribute", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// handleAPIEvents reads the journal. Query parameters: after, before (journal
// sequence numbers, exclusive), node, filter, limit, newest.
func (s *Server) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		eq  = controller.EventQuery{Filter: q.Get("filter")}
		err error
	)

	parseUint := func(name string, dst *uint64) bool {
		if v := q.Get(name); v != "" {
			if *dst, err = strconv.ParseUint(v, 10, 64); err != nil {
				s.writeError(w, http.StatusBadRequest, "invalid "+name)
				return false
			}
		}
		return true
	}
	if !parseUint("after", &eq.After) || !parseUint("before", &eq.Before) {
		return
	}
	if v := q.Get("node"); v != "" {
		if eq.Node, err = controller.ParseNodeID(v); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid node")
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		if eq.Limit, err = strconv.Atoi(v); err != nil || eq.Limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	if v := q.Get("newest"); v != "" {
		if eq.Newest, err = strconv.ParseBool(v); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid newest")
			return
		}
	}
	if _, err := filter.Compile(eq.Filter); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.ctrl.Events(eq)
	if err != nil {
		s.logger.Error("read events", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}
