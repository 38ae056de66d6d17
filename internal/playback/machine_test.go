// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle(t *testing.T) {
	m := New()
	require.Equal(t, StateStopped, m.State())

	assert.False(t, m.BufferReady(), "cannot play without buffering first")
	assert.Equal(t, StateStopped, m.State())

	require.True(t, m.Play())
	assert.Equal(t, StateBuffering, m.State())

	require.True(t, m.BufferReady())
	assert.Equal(t, StatePlaying, m.State())

	require.True(t, m.BufferEmpty())
	assert.Equal(t, StateBuffering, m.State())

	require.True(t, m.Stop())
	assert.Equal(t, StateStopped, m.State())
	assert.False(t, m.Stop(), "stop while stopped is a no-op")
}

func TestPlayWhileActiveIsNoop(t *testing.T) {
	m := New()
	require.True(t, m.Play())
	assert.False(t, m.Play())
	assert.Equal(t, StateBuffering, m.State())

	require.True(t, m.BufferReady())
	assert.False(t, m.Play())
	assert.Equal(t, StatePlaying, m.State())
}

func TestFailStops(t *testing.T) {
	m := New()
	assert.False(t, m.Fail())
	require.True(t, m.Play())
	require.True(t, m.Fail())
	assert.Equal(t, StateStopped, m.State())
}

func TestConcurrentPlayAdmitsOne(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Play() {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, admitted)
}

func TestOnChangeNeverSkipsBuffering(t *testing.T) {
	m := New()
	var seen []State
	m.OnChange(func(_, to State) { seen = append(seen, to) })

	m.Play()
	m.BufferReady()
	m.BufferEmpty()
	m.BufferReady()
	m.Stop()

	assert.Equal(t, []State{StateBuffering, StatePlaying, StateBuffering, StatePlaying, StateStopped}, seen)
	assert.True(t, StateBuffering.Active())
	assert.False(t, StateStopped.Active())
}
