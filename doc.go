// Package effektif provides an embeddable BPMN-style workflow engine for Go.
//
// The engine compiles a declarative workflow definition (activities,
// transitions, nested scopes, data bindings) into an executable graph and
// drives running instances of that graph through a suspend/resume state
// machine until completion. It targets backend services that need durable,
// long-running orchestration of human and system tasks: approvals, service
// calls, sub-workflows.
//
// # Core Concepts
//
//  1. Workflow definitions and Deploy
//  2. Activity kinds and the registry
//  3. Workflow instances, Start, and Signal
//  4. The persistence gateway
//
// # Workflow definitions
//
// A Workflow is a graph of activities connected by transitions; composite
// activities (subprocesses) own nested scopes of their own, to arbitrary
// depth. Definitions are plain values, built either directly or with the
// fluent builder:
//
//	wf := effektif.NewWorkflow("approval").
//	    StartEvent("start").
//	    UserTask("approve").
//	    EndEvent("done").
//	    Transition("start", "approve").
//	    Transition("approve", "done").
//	    Workflow()
//
// Deploy validates the whole graph (identifier resolution, condition
// compilation, kind lookup) and either stores a new immutable version or
// reports every diagnostic found in one pass.
//
// # Activity kinds
//
// Each activity declares a kind that selects its behavior from a registry:
// events and none tasks complete immediately, user and receive tasks
// suspend until an external signal, script tasks evaluate an expression,
// service tasks invoke a registered native function, call activities launch
// a sub-workflow, gateways branch (exclusive, first-match-wins) or fan out
// (parallel). Applications can register their own kinds through the
// api.ActivityType contract.
//
// # Instances
//
// Start creates a workflow instance and runs it until every open activity
// is suspended or the instance has completed. Signal resumes one suspended
// activity instance with a payload and continues from there. Operations on
// one instance are serialized by optimistic persistence revisions;
// different instances run fully in parallel.
//
// # Persistence
//
// Engines can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - MongoDB (separate module, see mongo/)
//
// The store treats instance trees as opaque state; all interpretation
// happens in the engine.
//
// For runnable programs, see the /examples directory.
package effektif
