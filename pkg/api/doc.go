// Package api defines the public model and contracts of the workflow
// engine: the definition model (Workflow, Scope, Activity, Transition,
// Binding), the instance model (WorkflowInstance and its activity instance
// arena), deploy diagnostics, the Engine interface, the activity type
// plugin contract, and the Observer used for logging and metrics.
//
// Most applications import the root package instead, which re-exports the
// types defined here.
package api
