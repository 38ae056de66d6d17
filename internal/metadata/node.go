// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metadata

import (
	"errors"
	"slices"
)

// Source names where a node's information came from.
type Source string

const (
	SourceICY    Source = "icy"
	SourceNative Source = "native"
	SourceStatic Source = "static"
)

// ErrDelegationCycle is returned when a delegation would make the chain circular.
var ErrDelegationCycle = errors.New("metadata: delegation cycle")

// Node is one provider in a delegation chain. Reads ask the delegate first, then
// the node's own fields, then process-wide defaults. The exception is the
// service: an assigned (superior) service anywhere in the chain outranks any
// discovered one.
//
// A Node is not safe for concurrent mutation. Sessions mutate nodes only from
// their ordered queue and hand out Views to everyone else.
type Node struct {
	source    Source
	current   *Item
	next      *Item
	service   *Service
	streamURL string

	superior *Service
	delegate *Node
}

// NewNode creates a chain node. Any of current, next and service may be nil.
func NewNode(source Source, current, next *Item, service *Service) *Node {
	return &Node{
		source:  source,
		current: cloneItem(current),
		next:    cloneItem(next),
		service: cloneService(service),
	}
}

// Source reports where this node's own fields came from.
func (n *Node) Source() Source {
	return n.source
}

// SetStreamURL records the stream URL an inline tag announced.
func (n *Node) SetStreamURL(u string) {
	n.streamURL = u
}

// Delegate returns the next node of the chain or nil.
func (n *Node) Delegate() *Node {
	return n.delegate
}

// DelegateTo attaches other as the next node of the chain. Passing nil
// detaches the current delegate.
func (n *Node) DelegateTo(other *Node) error {
	for d := other; d != nil; d = d.delegate {
		if d == n {
			return ErrDelegationCycle
		}
	}
	n.delegate = other
	return nil
}

// Leaf returns the deepest node of the chain.
func (n *Node) Leaf() *Node {
	leaf := n
	for leaf.delegate != nil {
		leaf = leaf.delegate
	}
	return leaf
}

// SetService assigns an operator chosen service. It is stored on the leaf so
// that delegates attached later cannot shadow it with a discovered service.
func (n *Node) SetService(s Service) {
	n.Leaf().superior = &s
}

// Eligible reports whether this node or any delegate carries information worth
// surfacing.
func (n *Node) Eligible() bool {
	for c := n; c != nil; c = c.delegate {
		if c.current != nil || c.next != nil || c.service != nil || c.streamURL != "" {
			return true
		}
	}
	return false
}

// DisplayTitle is the display title of the resolved current item.
func (n *Node) DisplayTitle() string {
	return n.Current().DisplayTitle
}

// Current returns the resolved current item or an empty item.
func (n *Node) Current() Item {
	if it := n.resolve(func(c *Node) *Item { return c.current }); it != nil {
		return *cloneItem(it)
	}
	return Item{}
}

// Next returns the resolved next item, nil if no node knows it.
func (n *Node) Next() *Item {
	return cloneItem(n.resolve(func(c *Node) *Item { return c.next }))
}

// Service resolves the service: assigned before discovered, delegate before self.
func (n *Node) Service() Service {
	if s := n.resolveService(func(c *Node) *Service { return c.superior }); s != nil {
		return *s
	}
	if s := n.resolveService(func(c *Node) *Service { return c.service }); s != nil {
		return *s
	}
	return DefaultService
}

// StreamURL returns the resolved stream URL, empty if unknown.
func (n *Node) StreamURL() string {
	if n.delegate != nil {
		if u := n.delegate.StreamURL(); u != "" {
			return u
		}
	}
	return n.streamURL
}

// View takes an immutable snapshot of the resolved chain.
func (n *Node) View() View {
	cur := n.Current()
	return View{
		DisplayTitle: cur.DisplayTitle,
		Current:      cur,
		Next:         n.Next(),
		Service:      n.Service(),
		StreamURL:    n.StreamURL(),
	}
}

func (n *Node) resolve(field func(*Node) *Item) *Item {
	if n.delegate != nil {
		if it := n.delegate.resolve(field); it != nil {
			return it
		}
	}
	return field(n)
}

func (n *Node) resolveService(field func(*Node) *Service) *Service {
	if n.delegate != nil {
		if s := n.delegate.resolveService(field); s != nil {
			return s
		}
	}
	return field(n)
}

func cloneItem(it *Item) *Item {
	if it == nil {
		return nil
	}
	c := *it
	if it.Type != nil {
		t := *it.Type
		c.Type = &t
	}
	c.Companions = slices.Clone(it.Companions)
	return &c
}

func cloneService(s *Service) *Service {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// View is the resolved, immutable metadata handed to listeners.
type View struct {
	DisplayTitle string
	Current      Item
	Next         *Item
	Service      Service
	StreamURL    string
}

// Equal reports structural equality of two views.
func (v View) Equal(o View) bool {
	if (v.Next == nil) != (o.Next == nil) {
		return false
	}
	if v.Next != nil && !v.Next.Equal(*o.Next) {
		return false
	}
	return v.DisplayTitle == o.DisplayTitle &&
		v.Current.Equal(o.Current) &&
		v.Service == o.Service &&
		v.StreamURL == o.StreamURL
}
