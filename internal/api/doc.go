// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between external clients
// and the task runner, translating HTTP concerns to submission, status
// queries, deletion, and result downloads.
package api
