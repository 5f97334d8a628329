package featureflags

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	f := Parse("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, f.Enabled(name, "u1"), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, f.Enabled(name, "u1"), name)
	}
}

func TestEnabled_Percentages(t *testing.T) {
	f := Parse("always=100%,never=0%,canary=25%,junk=abc%,bare=25")

	assert.True(t, f.Enabled("always", ""))
	assert.False(t, f.Enabled("never", "u1"))
	assert.False(t, f.Enabled("junk", "u1"))
	assert.False(t, f.Enabled("bare", "u1"))
	assert.False(t, f.Enabled("canary", ""), "anonymous users are outside partial rollouts")

	first := f.Enabled("canary", "user-42")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, f.Enabled("canary", "user-42"))
	}

	on := 0
	for i := 0; i < 1000; i++ {
		if f.Enabled("canary", fmt.Sprintf("user-%d", i)) {
			on++
		}
	}
	assert.InDelta(t, 250, on, 80)
}

func TestParse_SnapshotAndRaw(t *testing.T) {
	f := Parse(" bad ,X=on, y = 20% ,z=off,=on")

	raw := f.Raw()
	assert.Equal(t, map[string]string{"x": "on", "y": "20%", "z": "off"}, raw)
	raw["x"] = "off"
	assert.True(t, f.Enabled("x", "u"), "Raw returns a copy")

	snap := f.Snapshot("u")
	assert.Len(t, snap, 3)
	assert.True(t, snap["x"])
	assert.False(t, snap["z"])
}

func TestNilFlags(t *testing.T) {
	var f *Flags
	assert.False(t, f.Enabled(Realtime, "u"))
}
