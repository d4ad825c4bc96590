// Package events carries grading progress notifications from workers to
// waiting clients. Delivery is at-most-once: the authoritative task
// state is always the dispatcher's status query, events only cut the
// latency of learning about it.
package events
