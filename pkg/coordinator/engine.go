package coordinator

import "ringkv/pkg/record"

// Engine is the local storage this node's coordinator drives for
// whichever requests rank it as a replica. *ringkv/pkg/lsm.Engine
// satisfies this.
type Engine interface {
	Upsert(rec record.Record) error
	Get(key []byte) (record.Record, bool, error)
}
