// Package task queues speech-synthesis jobs and executes them in the
// background. Submissions return immediately with a task identifier; a
// single worker runs jobs one at a time in FIFO order and records their
// progress, result, or failure in an in-memory store that callers poll.
package task
