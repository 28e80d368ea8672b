package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

// RequestIDKey carries the per-request identifier assigned by the HTTP
// middleware so operation timings can be correlated with access logs.
const RequestIDKey ctxKey = "req_id"

// Time measures one named operation. Use with a named error return:
//
//	defer obs.Time(ctx, "solver.SolveOpenPath")(&err)
//
// so the closing log line records whether the operation failed. Matrix
// fetches and day solves are the operations worth watching here; both are
// dominated by external latency.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Printf("req_id=%s op=%s dur=%dms err=%v", reqID, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("req_id=%s op=%s dur=%dms", reqID, name, dur.Milliseconds())
	}
}
