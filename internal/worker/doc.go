// Package worker runs background jobs on a bounded queue drained by a fixed
// pool of goroutines. Enqueue never blocks: a full queue is reported to the
// caller, which decides whether dropping the job is acceptable.
package worker
