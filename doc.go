// Package iara is a single-process asynchronous coordination runtime built
// from three tightly coupled subsystems:
//
//   - [github.com/andsmedeiros/iara/eventloop]: a time-indexed scheduler for
//     one-shot, recurring, and always-on events, driven by an external
//     monotonic time source.
//   - [github.com/andsmedeiros/iara/promise]: single-assignment
//     value-or-error cells with resolve/reject settling, synchronous
//     chaining, and composition combinators.
//   - [github.com/andsmedeiros/iara/bus]: an in-process, type-indexed
//     publish/subscribe primitive with revocable listeners.
//
// Together they implement a cooperative concurrency model without a thread
// pool: external time ticks drive the loop, due events fire, handlers settle
// promises or publish messages, and settlements invoke chain handlers that
// may schedule further events. The bus is orthogonal and usable on its own.
//
// The [github.com/andsmedeiros/iara/failure] package supplies the
// type-erased, rethrowable carrier the promise engine stores rejection
// reasons in.
package iara
