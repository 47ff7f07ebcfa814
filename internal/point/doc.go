// Package point defines the click point and run configuration data model.
//
// A ClickPoint is one configured tap. Points live in an owned collection
// (List) whose Order values are kept contiguous (0..n-1) at rest: every
// insert, removal or reorder renumbers the siblings.
//
// Execution order is derived, never stored: ExecutionOrder filters out
// disabled points and sorts the rest by ascending Order. Disabled points keep
// their Order value in storage.
//
// Drift and DriftSpeed are carried for round-tripping script files. Nothing
// in this module consumes them.
package point
