// Package coordinator implements the replication algorithm spec.md
// §4.5 describes: rank replicas by rendezvous hash, fan out to the
// first `from` of them one at a time until `ack` confirm, merge their
// answers by last-writer-wins timestamp, and read-repair whichever
// replicas were never asked. Grounded on the original's
// ProxyResponse.proxy/mergeResponses/askHttpClient trio, generalized
// from a one-nio HTTP client to Go's net/http plus clientpool.Pool.
package coordinator

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"ringkv/pkg/clientpool"
	"ringkv/pkg/cluster"
	"ringkv/pkg/clock"
	"ringkv/pkg/record"
	"ringkv/pkg/workerpool"
)

// Coordinator routes one node's /v0/entity traffic across the
// cluster's replica set.
type Coordinator struct {
	topo   *cluster.Topology
	engine Engine
	pools  []*clientpool.Pool // indexed by node id; pools[topo.Self()] is nil
	clock  clock.Source
	repair *workerpool.Pool
	logger *slog.Logger
}

// New builds a Coordinator. pools must be indexed identically to
// topo's node ids, with a nil entry at topo.Self().
func New(topo *cluster.Topology, engine Engine, pools []*clientpool.Pool, clk clock.Source, repair *workerpool.Pool, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		topo:   topo,
		engine: engine,
		pools:  pools,
		clock:  clk,
		repair: repair,
		logger: logger,
	}
}

// Handle routes req across the replica set ranked for req.ID and
// returns the merged client-facing response.
//
// A Proxy request is never re-ranked: it is an inbound subrequest
// from another node's coordinator and must be served locally, in
// replica form, directly.
func (c *Coordinator) Handle(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		return Response{}, ErrBadID
	}

	if req.Proxy {
		return c.serveLocal(req, true), nil
	}

	if c.topo.Size() == 1 {
		return c.serveLocal(req, false), nil
	}

	ranked := cluster.Rank(c.topo, []byte(req.ID))
	return c.fanOut(ctx, req, ranked), nil
}

// fanOut asks the first req.From ranked replicas in order, stopping
// once req.Ack have confirmed, then merges the responses collected so
// far and read-repairs whatever replicas were never asked.
func (c *Coordinator) fanOut(ctx context.Context, req Request, ranked []int) Response {
	from := req.From
	if from > len(ranked) {
		from = len(ranked)
	}

	responses := make([]Response, 0, from)
	confirms := 0
	asked := 0

	for ; asked < from; asked++ {
		resp := c.callReplica(ctx, ranked[asked], req)
		responses = append(responses, resp)
		if isConfirm(resp.Status) {
			confirms++
		}
		if confirms >= req.Ack {
			asked++
			break
		}
	}

	if confirms < req.Ack {
		return Response{Status: http.StatusGatewayTimeout, Body: []byte("Not Enough Replicas")}
	}

	result := mergeResponses(req.Method, responses)

	if asked < from {
		c.readRepair(req, ranked[asked:from])
	}

	return result
}

// readRepair asks every replica that wasn't queried during the
// synchronous quorum phase, off the request's goroutine, purely to
// bring it up to date. The remaining replicas are independent of one
// another, so a single repair-pool slot fans them out concurrently
// with errgroup rather than working through them one at a time.
// Results are discarded.
func (c *Coordinator) readRepair(req Request, remaining []int) {
	nodes := append([]int(nil), remaining...)
	job := func(ctx context.Context) {
		var g errgroup.Group
		for _, idx := range nodes {
			idx := idx
			g.Go(func() error {
				c.callReplica(ctx, idx, req)
				return nil
			})
		}
		_ = g.Wait()
	}

	if err := c.repair.Submit(job); err != nil {
		c.logger.Warn("read repair dropped, pool closed", "id", req.ID, "err", err)
	}
}

func isConfirm(status int) bool {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNotFound:
		return true
	default:
		return false
	}
}

// mergeResponses combines the collected replica responses into the
// single answer the client sees, per spec.md §4.5's last-writer-wins
// rule for GET and fixed statuses for writes.
func mergeResponses(method string, responses []Response) Response {
	switch method {
	case http.MethodPut:
		return Response{Status: http.StatusCreated}
	case http.MethodDelete:
		return Response{Status: http.StatusAccepted}
	default:
		return mergeGet(responses)
	}
}

func mergeGet(responses []Response) Response {
	bestTimestamp := int64(-2)
	var best Response
	found := false

	for _, resp := range responses {
		ts := int64(-1)
		if resp.Status == http.StatusOK {
			_, decoded, err := record.DecodeReplicaBody(resp.Body)
			if err == nil {
				ts = decoded
			}
		}
		if ts > bestTimestamp {
			bestTimestamp = ts
			best = resp
			found = true
		}
	}

	if !found || bestTimestamp < 0 || best.Status != http.StatusOK {
		return Response{Status: http.StatusNotFound}
	}
	if best.Tombstone {
		return Response{Status: http.StatusNotFound}
	}

	value, _, err := record.DecodeReplicaBody(best.Body)
	if err != nil {
		return Response{Status: http.StatusServiceUnavailable}
	}
	return Response{Status: http.StatusOK, Body: value}
}
