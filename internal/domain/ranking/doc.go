// Package ranking is the priority ranking engine: an indexed min-heap of
// scored tasks, the multi-factor scoring function, and an online learner that
// adjusts the scoring weights from drag-reorder feedback.
//
// Everything here is synchronous and performs no I/O. The heap, the learner
// state and the current weights form one critical section; Engine owns all
// three and serialises access with a single mutex. The lower-level types
// (IndexedHeap, OnlineLearner, RebalanceObserver) are not safe for concurrent
// use on their own.
//
// Scores are signed and lower means more urgent.
package ranking
