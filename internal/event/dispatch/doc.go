// Package dispatch runs event handlers in the caller's goroutine and
// classifies each run.
//
// A handler never unwinds into the tree operation that triggered it. Panics
// are recovered and reported as OutcomePanicked, handlers that outlive
// their deadline as OutcomeTimedOut.
//
//	r := dispatch.NewRunner(
//	    dispatch.WithTimeout(time.Second),
//	    dispatch.WithPanicHandler(func(subject, value any, stack []byte) {
//	        logger.Error("handler panic", "value", value)
//	    }),
//	)
//	rep := r.Run(ctx, ev, func(ctx context.Context) error { return h.Handle(ctx, ev) })
//	if rep.Outcome != dispatch.OutcomeOK {
//	    ...
//	}
package dispatch
