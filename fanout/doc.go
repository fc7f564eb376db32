// Package fanout implements the Fan-Out Coordinator: one conversation is sent
// to N models concurrently and the independent outcomes are fanned back in.
//
// Three consumption modes share the same launch path:
//
//   - InvokeAll blocks until every model resolved and returns a BatchResult
//   - InvokeStream returns a channel yielding items in completion order
//   - Stream returns a lazy iterator; breaking out of it cancels in-flight calls
//
// Every requested model yields exactly one outcome. Failures, timeouts and
// even panicking invokers are contained to their own model and surface as
// core.Failure(). Invocations run on a bounded ants worker pool so resource
// use stays predictable as the model set grows.
//
// Example:
//
//	coord, err := fanout.New(invoker, func(o *fanout.Options) {
//	    o.MaxConcurrency = 8
//	    o.Timeout = 60 * time.Second
//	})
//	if err != nil {
//	    return err
//	}
//	defer coord.Close()
//
//	items, err := coord.InvokeStream(ctx, models, messages)
//	if err != nil {
//	    return err
//	}
//	for item := range items {
//	    handle(item.Model, item.Result)
//	}
package fanout
