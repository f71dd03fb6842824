package resource

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kindRecorder struct {
	seen []string
}

func (r *kindRecorder) VisitNode(n SimpleNode) error {
	r.seen = append(r.seen, "node:"+n.Name)
	return nil
}

func (r *kindRecorder) VisitGroup(g SimpleGroup) error {
	r.seen = append(r.seen, "group:"+g.Name)
	return nil
}

func (r *kindRecorder) VisitServer(s SimpleServer) error {
	r.seen = append(r.seen, "server:"+s.ID.String())
	return errors.New("stop")
}

func TestAcceptDispatchesByVariant(t *testing.T) {
	id := uuid.New()
	rec := &kindRecorder{}

	require.NoError(t, NewSimpleNode("n").Accept(rec))
	require.NoError(t, NewSimpleGroup("g").Accept(rec))
	assert.EqualError(t, NewSimpleServer(id, "s").Accept(rec), "stop")

	assert.Equal(t, []string{"node:n", "group:g", "server:" + id.String()}, rec.seen)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "node", NewSimpleNode("n").Kind().String())
	assert.Equal(t, "group", NewSimpleGroup("g").Kind().String())
	assert.Equal(t, "server", SimpleServer{}.Kind().String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestParseSimpleServer(t *testing.T) {
	id := uuid.New()

	s, err := ParseSimpleServer(id.String(), "hub")
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, "hub ("+id.String()+")", s.String())

	_, err = ParseSimpleServer("not-a-uuid", "")
	assert.Error(t, err)
	assert.Equal(t, id.String(), NewSimpleServer(id, "").String())
}

func TestGroupNodesAreCopied(t *testing.T) {
	nodes := []string{"b", "a"}
	g := NewGroup("lobby", nodes, Constraints{}, Scaling{}, Resources{}, Specification{})

	nodes[0] = "changed"
	got := g.Nodes()
	got[1] = "changed"

	assert.Equal(t, []string{"b", "a"}, g.Nodes())
}

func TestServerGroupPresence(t *testing.T) {
	empty := ""
	tests := []struct {
		name      string
		group     *string
		wantGroup string
		wantOK    bool
	}{
		{name: "absent", group: nil},
		{name: "present but empty", group: &empty, wantOK: true},
		{name: "named", group: func() *string { s := "lobby"; return &s }(), wantGroup: "lobby", wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(ServerAttributes{Name: "s", ID: uuid.New(), Group: tt.group})

			group, ok := s.Group()

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantGroup, group)
		})
	}
}

func TestServerDoesNotAliasGroup(t *testing.T) {
	group := "lobby"
	s := NewServer(ServerAttributes{ID: uuid.New(), Group: &group, State: StateRunning})

	group = "other"

	got, _ := s.Group()
	assert.Equal(t, "lobby", got)
	assert.Equal(t, "running", s.State().String())
	assert.Equal(t, s.ID(), s.Simple().ID)
}
