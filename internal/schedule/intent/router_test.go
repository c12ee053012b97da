package intent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouteScheduleCues(t *testing.T) {
	require.Equal(t, ScheduleRequest, Route("schedule a call with Sam", Options{}))
	require.Equal(t, ScheduleRequest, Route("book the conference room", Options{}))
	require.Equal(t, ScheduleRequest, Route("can we meet tomorrow at 3pm", Options{}))
	require.Equal(t, ScheduleRequest, Route("put it on my calendar", Options{}))
}

func TestRoutePlanCues(t *testing.T) {
	require.Equal(t, PlanRequest, Route("help me think about my career", Options{}))
	require.Equal(t, PlanRequest, Route("draft a product roadmap", Options{}))
}

func TestRouteBothCueFamiliesYieldMixed(t *testing.T) {
	require.Equal(t, Mixed, Route("schedule time to work on my career plan", Options{}))
	// The bias flag never affects dual-cue input.
	require.Equal(t, Mixed, Route("schedule time to work on my career plan", Options{ScheduleBias: true}))
}

func TestRouteEmptyAlwaysMixed(t *testing.T) {
	require.Equal(t, Mixed, Route("", Options{}))
	require.Equal(t, Mixed, Route("   ", Options{ScheduleBias: true}))
}

func TestRouteAmbiguousFollowsBias(t *testing.T) {
	ambiguous := "interesting stuff"
	require.Equal(t, Mixed, Route(ambiguous, Options{}))
	require.Equal(t, ScheduleRequest, Route(ambiguous, Options{ScheduleBias: true}))
}

func TestIsScheduleAllowed(t *testing.T) {
	require.True(t, IsScheduleAllowed(ScheduleRequest))
	require.True(t, IsScheduleAllowed(Mixed))
	require.False(t, IsScheduleAllowed(PlanRequest))
}
