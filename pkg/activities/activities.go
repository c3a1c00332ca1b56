// Package activities provides the builtin activity kinds: start and end
// events, tasks (none, user, receive, script, service), call activities,
// embedded subprocesses, and the exclusive and parallel gateways.
//
// The configuration structs in this package are what goes into
// api.Activity.Config; the matching activity type implementations are
// registered through DefaultRegistry or Register.
package activities

import (
	"context"
	"encoding/gob"

	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

func init() {
	// Definition configs travel through gob-based persistence codecs.
	gob.Register(UserTask{})
	gob.Register(ReceiveTask{})
	gob.Register(ScriptTask{})
	gob.Register(ServiceTask{})
	gob.Register(CallActivity{})
}

// Builtin kind discriminators.
const (
	KindStartEvent       = "startEvent"
	KindEndEvent         = "endEvent"
	KindNoneTask         = "noneTask"
	KindUserTask         = "userTask"
	KindReceiveTask      = "receiveTask"
	KindScriptTask       = "scriptTask"
	KindServiceTask      = "serviceTask"
	KindCallActivity     = "callActivity"
	KindSubprocess       = "subprocess"
	KindExclusiveGateway = "exclusiveGateway"
	KindParallelGateway  = "parallelGateway"
)

// Register adds every builtin activity type to the given registry.
func Register(r *api.Registry) error {
	types := []api.ActivityType{
		passThroughType{kind: KindStartEvent},
		passThroughType{kind: KindEndEvent},
		passThroughType{kind: KindNoneTask},
		userTaskType{},
		receiveTaskType{},
		scriptTaskType{},
		serviceTaskType{},
		callActivityType{},
		subprocessType{},
		exclusiveGatewayType{},
		parallelGatewayType{},
	}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRegistry returns a fresh registry with all builtin kinds.
func DefaultRegistry() *api.Registry {
	r := api.NewRegistry()
	if err := Register(r); err != nil {
		panic(err)
	}
	return r
}

// passThroughType backs the kinds with no configuration and no waiting
// behavior: start events, end events, and none tasks. The instance ends as
// soon as it executes.
type passThroughType struct {
	kind string
}

func (t passThroughType) Kind() string         { return t.kind }
func (t passThroughType) Routing() api.Routing { return api.RouteAll }

func (t passThroughType) Parse(a *api.Activity, pc *api.ParseContext) any {
	return nil
}

func (t passThroughType) Execute(ctx context.Context, ac api.ActivityContext) (api.Result, error) {
	return api.ResultEnded, nil
}
