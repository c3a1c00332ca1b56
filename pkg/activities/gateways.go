package activities

import (
	"context"

	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// exclusiveGatewayType routes first-match-wins: outgoing transitions are
// evaluated in declaration order and the first whose condition holds (or
// which has none) is followed. When nothing matches, the activity's default
// transition is taken; without one the engine reports a dead end.
type exclusiveGatewayType struct{}

func (exclusiveGatewayType) Kind() string         { return KindExclusiveGateway }
func (exclusiveGatewayType) Routing() api.Routing { return api.RouteExclusive }

func (exclusiveGatewayType) Parse(a *api.Activity, pc *api.ParseContext) any {
	return nil
}

func (exclusiveGatewayType) Execute(ctx context.Context, ac api.ActivityContext) (api.Result, error) {
	return api.ResultEnded, nil
}

// parallelGatewayType fans out: every outgoing transition whose condition
// is absent or true is followed, each spawning a sibling activity instance.
type parallelGatewayType struct{}

func (parallelGatewayType) Kind() string         { return KindParallelGateway }
func (parallelGatewayType) Routing() api.Routing { return api.RouteAll }

func (parallelGatewayType) Parse(a *api.Activity, pc *api.ParseContext) any {
	return nil
}

func (parallelGatewayType) Execute(ctx context.Context, ac api.ActivityContext) (api.Result, error) {
	return api.ResultEnded, nil
}
