package network

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	overpass "github.com/serjvanilla/go-overpass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoamTeshuva/pedestrian-web/internal/geo"
)

type fakeQuerier struct {
	lastQuery string
	result    overpass.Result
	err       error
}

func (f *fakeQuerier) Query(query string) (overpass.Result, error) {
	f.lastQuery = query
	return f.result, f.err
}

func node(id int64, lat, lon float64) *overpass.Node {
	return &overpass.Node{Meta: overpass.Meta{ID: id}, Lat: lat, Lon: lon}
}

func way(id int64, highway string, nodes ...*overpass.Node) *overpass.Way {
	return &overpass.Way{
		Meta:  overpass.Meta{ID: id, Tags: map[string]string{"highway": highway}},
		Nodes: nodes,
	}
}

func testBox() geo.BoundingBox {
	return geo.BoundingBox{West: 7.40, South: 43.71, East: 7.44, North: 43.75}
}

func TestService_WalkNetwork(t *testing.T) {
	a := node(1, 43.7200, 7.4100)
	b := node(2, 43.7210, 7.4100)
	c := node(3, 43.7210, 7.4110)

	querier := &fakeQuerier{result: overpass.Result{
		Ways: map[int64]*overpass.Way{
			205: way(205, "footway", b, c),
			101: way(101, "residential", a, b),
		},
	}}
	service := NewService(ServiceConfig{Logger: zerolog.Nop(), client: querier})

	network, err := service.WalkNetwork(context.Background(), testBox())
	require.NoError(t, err)

	require.Len(t, network.GeoJSON.Features, 2)
	assert.Equal(t, 2, network.Stats.NEdges)
	assert.Equal(t, 3, network.Stats.NNodes, "shared node counted once")
	assert.Greater(t, network.Stats.TotalLengthKM, 0.0)

	// Sorted by way ID for deterministic output.
	first := network.GeoJSON.Features[0]
	assert.Equal(t, "e_101", first.Properties["edge_id"])
	assert.Equal(t, int64(101), first.Properties["osmid"])
	assert.Equal(t, "residential", first.Properties["highway"])
	assert.Equal(t, "e_205", network.GeoJSON.Features[1].Properties["edge_id"])

	// Coordinates are [lon, lat] pairs.
	require.Len(t, first.Geometry.Coordinates, 2)
	assert.Equal(t, []float64{7.4100, 43.7200}, first.Geometry.Coordinates[0])

	// One node spacing of ~111 m.
	length, ok := first.Properties["length"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 111, length, 5)
}

func TestService_WalkNetwork_QueryShape(t *testing.T) {
	querier := &fakeQuerier{}
	service := NewService(ServiceConfig{Logger: zerolog.Nop(), client: querier})

	_, err := service.WalkNetwork(context.Background(), testBox())
	require.NoError(t, err)

	assert.Contains(t, querier.lastQuery, `way["highway"]`)
	assert.Contains(t, querier.lastQuery, "43.710000,7.400000,43.750000,7.440000", "bbox filter is south,west,north,east")
	assert.Contains(t, querier.lastQuery, "motorway")
	assert.True(t, strings.Contains(querier.lastQuery, "[out:json]"))
}

func TestService_WalkNetwork_SkipsDegenerateWays(t *testing.T) {
	querier := &fakeQuerier{result: overpass.Result{
		Ways: map[int64]*overpass.Way{
			7: way(7, "footway", node(1, 43.72, 7.41)),
		},
	}}
	service := NewService(ServiceConfig{Logger: zerolog.Nop(), client: querier})

	network, err := service.WalkNetwork(context.Background(), testBox())
	require.NoError(t, err)
	assert.Empty(t, network.GeoJSON.Features)
	assert.Equal(t, 0, network.Stats.NEdges)
}

func TestService_WalkNetwork_InvalidBox(t *testing.T) {
	service := NewService(ServiceConfig{Logger: zerolog.Nop(), client: &fakeQuerier{}})

	_, err := service.WalkNetwork(context.Background(), geo.BoundingBox{West: 7.44, South: 43.71, East: 7.40, North: 43.75})
	assert.ErrorIs(t, err, geo.ErrInvalidBBox)
}

func TestService_WalkNetwork_QueryError(t *testing.T) {
	querier := &fakeQuerier{err: errors.New("gateway timeout")}
	service := NewService(ServiceConfig{Logger: zerolog.Nop(), client: querier})

	_, err := service.WalkNetwork(context.Background(), testBox())
	assert.ErrorContains(t, err, "overpass query failed")
}

func TestService_WalkNetwork_CancelledContext(t *testing.T) {
	service := NewService(ServiceConfig{Logger: zerolog.Nop(), client: &fakeQuerier{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.WalkNetwork(ctx, testBox())
	assert.ErrorIs(t, err, context.Canceled)
}
