package httpapi

import (
	"fmt"
	"strconv"
	"strings"
)

// parseReplicas parses a "replicas=ack/from" query value against the
// topology size n, or returns the cluster's configured defaults when
// raw is empty. It enforces 0 < ack <= from <= n, matching the
// original service's ack/from validation but additionally bounding
// from by the topology size rather than letting an over-large from
// panic deep inside the fan-out.
func parseReplicas(raw string, n, defaultAck, defaultFrom int) (ack, from int, err error) {
	if raw == "" {
		return defaultAck, defaultFrom, nil
	}

	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("replicas must be ack/from, got %q", raw)
	}

	ack, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid ack in replicas %q: %w", raw, err)
	}
	from, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid from in replicas %q: %w", raw, err)
	}

	if ack <= 0 || from < ack || from > n {
		return 0, 0, fmt.Errorf("replicas %q violates 0 < ack <= from <= %d", raw, n)
	}
	return ack, from, nil
}
