package coordinator

import (
	"net/http"

	"ringkv/pkg/record"
)

// serveLocal executes req directly against this node's engine. When
// wrapped is true the response is in internal replica form — a GET's
// body carries its trailing timestamp so a caller merging several
// replicas' answers can pick the newest — which is what every
// cross-node subrequest and every local replica answer uses. wrapped
// is false only for the single-node shortcut, where there is no
// quorum to merge and the plain value can go straight to the client.
func (c *Coordinator) serveLocal(req Request, wrapped bool) Response {
	key := []byte(req.ID)

	switch req.Method {
	case http.MethodGet:
		rec, found, err := c.engine.Get(key)
		if err != nil {
			return Response{Status: http.StatusServiceUnavailable}
		}
		if !found {
			return Response{Status: http.StatusNotFound}
		}
		if wrapped {
			return Response{
				Status:    http.StatusOK,
				Body:      record.EncodeReplicaBody(rec),
				Tombstone: rec.Tombstone,
			}
		}
		if rec.Tombstone {
			return Response{Status: http.StatusNotFound}
		}
		return Response{Status: http.StatusOK, Body: rec.Value}

	case http.MethodPut:
		rec := record.New(key, req.Body, c.clock.NowMillis())
		if err := c.engine.Upsert(rec); err != nil {
			return Response{Status: http.StatusServiceUnavailable}
		}
		return Response{Status: http.StatusCreated}

	case http.MethodDelete:
		rec := record.NewTombstone(key, c.clock.NowMillis())
		if err := c.engine.Upsert(rec); err != nil {
			return Response{Status: http.StatusServiceUnavailable}
		}
		return Response{Status: http.StatusAccepted}

	default:
		return Response{Status: http.StatusBadRequest}
	}
}
