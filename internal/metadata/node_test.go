// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metadata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(t *testing.T, nodes ...*Node) *Node {
	t.Helper()
	for i := 0; i < len(nodes)-1; i++ {
		require.NoError(t, nodes[i].DelegateTo(nodes[i+1]))
	}
	return nodes[0]
}

func TestNode_Defaults(t *testing.T) {
	n := NewNode(SourceStatic, nil, nil, nil)

	assert.Equal(t, "", n.DisplayTitle())
	assert.Equal(t, Item{}, n.Current())
	assert.Nil(t, n.Next())
	assert.Equal(t, DefaultService, n.Service())
	assert.False(t, n.Eligible())
}

func TestNode_DelegateFirst(t *testing.T) {
	own := &Item{DisplayTitle: "own"}
	fromDelegate := &Item{DisplayTitle: "delegate"}
	next := &Item{DisplayTitle: "own next"}

	root := chain(t,
		NewNode(SourceNative, own, next, &Service{Identifier: "root-svc"}),
		NewNode(SourceICY, fromDelegate, nil, nil),
	)

	assert.Equal(t, "delegate", root.DisplayTitle())
	assert.Equal(t, "delegate", root.Current().DisplayTitle)
	// the delegate knows no next item, so the node's own wins
	require.NotNil(t, root.Next())
	assert.Equal(t, "own next", root.Next().DisplayTitle)
	assert.Equal(t, "root-svc", root.Service().Identifier)
}

func TestNode_SetServiceLandsOnLeaf(t *testing.T) {
	for depth := 1; depth <= 5; depth++ {
		nodes := make([]*Node, depth)
		for i := range nodes {
			svc := &Service{Identifier: "discovered"}
			nodes[i] = NewNode(SourceNative, nil, nil, svc)
		}
		root := chain(t, nodes...)

		assigned := Service{Identifier: "assigned", DisplayName: "Operator Choice"}
		root.SetService(assigned)

		leaf := nodes[depth-1]
		require.NotNil(t, leaf.superior, "depth %d", depth)
		assert.Equal(t, assigned, *leaf.superior)
		for _, n := range nodes[:depth-1] {
			assert.Nil(t, n.superior)
		}
		assert.Equal(t, assigned, root.Service(), "depth %d", depth)
	}
}

func TestNode_AssignedOutranksLaterDelegate(t *testing.T) {
	root := NewNode(SourceNative, nil, nil, nil)
	root.SetService(Service{Identifier: "assigned"})

	late := NewNode(SourceICY, &Item{DisplayTitle: "x"}, nil, &Service{Identifier: "discovered"})
	require.NoError(t, root.DelegateTo(late))

	assert.Equal(t, "assigned", root.Service().Identifier)
}

func TestNode_DelegationCycle(t *testing.T) {
	a := NewNode(SourceStatic, nil, nil, nil)
	b := NewNode(SourceStatic, nil, nil, nil)
	require.NoError(t, a.DelegateTo(b))

	assert.ErrorIs(t, b.DelegateTo(a), ErrDelegationCycle)
	assert.ErrorIs(t, a.DelegateTo(a), ErrDelegationCycle)
}

func TestNode_Eligible(t *testing.T) {
	empty := NewNode(SourceStatic, nil, nil, nil)
	withURL := NewNode(SourceICY, nil, nil, nil)
	withURL.SetStreamURL("https://example.invalid/info")

	assert.False(t, chain(t, NewNode(SourceStatic, nil, nil, nil), empty).Eligible())
	assert.True(t, chain(t, NewNode(SourceStatic, nil, nil, nil), withURL).Eligible())
	assert.True(t, NewNode(SourceStatic, nil, &Item{}, nil).Eligible())
	assert.True(t, NewNode(SourceStatic, nil, nil, &Service{Identifier: "s"}).Eligible())
}

func TestNode_ViewIsDetached(t *testing.T) {
	music := TypeMusic
	cur := &Item{DisplayTitle: "a", Type: &music, Companions: []string{"c1"}}
	n := NewNode(SourceNative, cur, nil, nil)

	v := n.View()
	v.Current.Companions[0] = "mutated"
	*v.Current.Type = TypeNews

	again := n.View()
	want := View{
		DisplayTitle: "a",
		Current:      Item{DisplayTitle: "a", Type: TypeMusic.Ptr(), Companions: []string{"c1"}},
		Service:      DefaultService,
	}
	if diff := cmp.Diff(want, again); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, want.Equal(again))
}

func TestParseItemType(t *testing.T) {
	assert.Equal(t, TypeNews, ParseItemType("news"))
	assert.Equal(t, TypeUnknown, ParseItemType("podcast"))
	assert.Equal(t, TypeUnknown, ParseItemType("UNKNOWN"))
}

func TestBouquetEqual(t *testing.T) {
	a := Bouquet{Active: "one", Services: []Service{{Identifier: "one"}, {Identifier: "two"}}}
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Active = "two"
	assert.False(t, a.Equal(b))

	c := a.Clone()
	c.Services[1].DisplayName = "Two"
	assert.False(t, a.Equal(c))

	svc, ok := a.ActiveService()
	require.True(t, ok)
	assert.Equal(t, "one", svc.Identifier)
}
