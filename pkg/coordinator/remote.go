package coordinator

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
)

const proxyHeader = "Proxy"
const tombstoneHeader = "Tombstone"

// callReplica dispatches req to node idx and returns its replica-form
// response: locally via serveLocal if idx is this node, over HTTP
// with the Proxy header otherwise. Any transport failure already
// comes back as a synthesized 503 from the client pool, so this never
// returns an error.
func (c *Coordinator) callReplica(ctx context.Context, idx int, req Request) Response {
	if c.topo.IsSelf(idx) {
		return c.serveLocal(req, true)
	}
	return c.callRemote(ctx, idx, req)
}

func (c *Coordinator) callRemote(ctx context.Context, idx int, req Request) Response {
	pool := c.pools[idx]
	if pool == nil {
		return Response{Status: http.StatusServiceUnavailable}
	}

	query := url.Values{"id": {req.ID}}.Encode()
	target := pool.BaseURL() + "/v0/entity?" + query
	var body io.Reader
	if req.Method == http.MethodPut {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return Response{Status: http.StatusServiceUnavailable}
	}
	httpReq.Header.Set(proxyHeader, "true")

	resp := pool.Do(httpReq)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{Status: http.StatusServiceUnavailable}
	}

	return Response{
		Status:    resp.StatusCode,
		Body:      respBody,
		Tombstone: resp.Header.Get(tombstoneHeader) != "",
	}
}
