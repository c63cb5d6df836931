// Package events carries task lifecycle notifications from the task runner
// to interested consumers such as metrics, without the runner knowing who
// listens.
//
// The primary components are:
// - TaskEvent: a single lifecycle transition of a synthesis task
// - EventHandler: interface for components that consume events
// - EventEmitter: interface for components that publish events
package events
