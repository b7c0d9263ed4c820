package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub(t *testing.T) {
	hub := NewHub()
	rig := newTestRig(t, []int64{501})

	assert.Nil(t, hub.Get(77))

	hub.Add(rig.engine)
	assert.Same(t, rig.engine, hub.Get(77))
	assert.Same(t, rig.engine, hub.GetByLeague(10))
	assert.Nil(t, hub.GetByLeague(99))

	hub.Remove(77)
	assert.Nil(t, hub.Get(77))

	// removing twice is a no-op
	hub.Remove(77)
}
