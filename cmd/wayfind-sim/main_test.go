package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-wayfind/pkg/positioning"
	"github.com/teslashibe/go-wayfind/pkg/venue"
)

func TestWalkPath(t *testing.T) {
	v := &venue.Venue{
		Beacons: []positioning.Beacon{
			{ID: "b1", Position: positioning.Point{X: 0}},
			{ID: "b2", Position: positioning.Point{X: 10}},
			{ID: "b3", Position: positioning.Point{X: 20}},
		},
		Targets: []venue.Target{{ID: "exit", Position: positioning.Point{X: 5, Y: 5}}},
	}

	assert.Equal(t, []positioning.Point{{X: 0}, {X: 5, Y: 5}}, walkPath(v, "exit"))
	assert.Equal(t, []positioning.Point{{X: 0}, {X: 10}, {X: 20}}, walkPath(v, ""))
	assert.Len(t, walkPath(v, "missing"), 3)
}
