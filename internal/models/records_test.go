package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/ShadowFalcon24/atomic-cloud/internal/proto"
)

func TestCloneDoesNotShareState(t *testing.T) {
	group := "lobby"
	orig := &Server{Detail: proto.ServerDetail{
		ID:         "id",
		Group:      &group,
		Allocation: proto.Allocation{Ports: []proto.Address{{Host: "h", Port: 1}}},
	}}

	clone := orig.Clone()
	if diff := cmp.Diff(orig, clone); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	*clone.Detail.Group = "other"
	clone.Detail.Allocation.Ports[0].Port = 2

	assert.Equal(t, "lobby", *orig.Detail.Group)
	assert.Equal(t, uint32(1), orig.Detail.Allocation.Ports[0].Port)
}
