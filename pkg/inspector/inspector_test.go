package inspector

import (
	"testing"

	"github.com/ritzau/storygraph/pkg/graphstate"
	"github.com/ritzau/storygraph/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(version int, edges ...[2]string) *graphstate.Snapshot {
	snap := &graphstate.Snapshot{Version: version}
	for _, id := range []string{"root", "a", "b", "c", "lonely"} {
		snap.Nodes = append(snap.Nodes, &model.VisualNode{ID: id, Data: &model.NodeData{ChapterID: id}})
	}
	for _, e := range edges {
		snap.Edges = append(snap.Edges, &model.VisualEdge{ID: model.EdgeID(e[0], e[1]), Source: e[0], Target: e[1]})
	}
	return snap
}

func TestInspect(t *testing.T) {
	snap := snapshot(1, [2]string{"root", "a"}, [2]string{"root", "b"}, [2]string{"a", "c"}, [2]string{"c", "a"}, [2]string{"b", "a"})
	insp := New()

	details, err := insp.Inspect(snap, "a")
	require.NoError(t, err)

	assert.Equal(t, "a", details.Node.ID)
	var in, out []string
	for _, e := range details.Incoming {
		in = append(in, e.ID)
	}
	for _, e := range details.Outgoing {
		out = append(out, e.ID)
	}
	assert.Equal(t, []string{"root-a", "c-a", "b-a"}, in)
	assert.Equal(t, []string{"a-c"}, out)
	assert.Equal(t, []string{"b", "c", "root"}, details.Connected)
}

func TestInspectIsolatedNode(t *testing.T) {
	details, err := New().Inspect(snapshot(1, [2]string{"root", "a"}), "lonely")
	require.NoError(t, err)
	assert.Empty(t, details.Incoming)
	assert.Empty(t, details.Outgoing)
	assert.Empty(t, details.Connected)
}

func TestInspectUnknownNode(t *testing.T) {
	_, err := New().Inspect(snapshot(1), "ghost")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestInspectMemoFollowsVersion(t *testing.T) {
	insp := New()

	first, err := insp.Inspect(snapshot(1, [2]string{"root", "a"}), "root")
	require.NoError(t, err)
	again, err := insp.Inspect(snapshot(1, [2]string{"root", "a"}), "root")
	require.NoError(t, err)
	assert.Same(t, first, again)

	next, err := insp.Inspect(snapshot(2, [2]string{"root", "a"}, [2]string{"root", "b"}), "root")
	require.NoError(t, err)
	assert.NotSame(t, first, next)
	assert.Equal(t, []string{"a", "b"}, next.Connected)
}

func TestNeighborhood(t *testing.T) {
	snap := snapshot(1, [2]string{"root", "a"}, [2]string{"root", "b"}, [2]string{"a", "c"}, [2]string{"c", "ghost"})

	got, err := Neighborhood(snap, "b", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"b": 0, "root": 1, "a": 2}, got)

	all, err := Neighborhood(snap, "b", -1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"b": 0, "root": 1, "a": 2, "c": 3}, all)

	self, err := Neighborhood(snap, "lonely", 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"lonely": 0}, self)

	_, err = Neighborhood(snap, "ghost", 1)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
