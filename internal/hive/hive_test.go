package hive

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/beehive/internal/config"
)

const radius = 12.0

func defaultHive() Hive {
	return New(config.Defaults().Hive)
}

func TestEntranceGeometry(t *testing.T) {
	h := defaultHive()

	assert.Equal(t, mgl64.Vec2{400, 460}, h.EntrancePoint())
	assert.Equal(t, mgl64.Vec2{0, 1}, h.EntranceNormal())

	g0, g1 := h.Gap()
	assert.InDelta(t, 340, g0.X(), 1e-9)
	assert.InDelta(t, 460, g1.X(), 1e-9)
	assert.Len(t, h.Walls(), 5)

	assert.True(t, h.InGap(mgl64.Vec2{350, 470}))
	assert.False(t, h.InGap(mgl64.Vec2{300, 470}))
}

func TestEntranceSides(t *testing.T) {
	examples := []struct {
		Name   string
		Side   config.Side
		Point  mgl64.Vec2
		Normal mgl64.Vec2
	}{
		{"top", config.SideTop, mgl64.Vec2{400, 200}, mgl64.Vec2{0, -1}},
		{"bottom", config.SideBottom, mgl64.Vec2{400, 460}, mgl64.Vec2{0, 1}},
		{"left", config.SideLeft, mgl64.Vec2{200, 330}, mgl64.Vec2{-1, 0}},
		{"right", config.SideRight, mgl64.Vec2{600, 330}, mgl64.Vec2{1, 0}},
	}
	for _, example := range examples {
		t.Run(example.Name, func(t *testing.T) {
			p := config.Defaults().Hive
			p.EntranceSide = example.Side
			h := New(p)
			assert.Equal(t, example.Point, h.EntrancePoint())
			assert.Equal(t, example.Normal, h.EntranceNormal())
			assert.True(t, h.InGap(example.Point))
			along := mgl64.Vec2{example.Normal.Y(), example.Normal.X()}
			assert.False(t, h.InGap(example.Point.Add(along.Mul(150))))

			outer, inner := h.ApproachPoints(24)
			assert.False(t, h.Contains(outer))
			assert.True(t, h.Contains(inner))
			assert.False(t, h.Blocked(outer, inner))
		})
	}
}

func TestWallPenetrationStaysWithinMargin(t *testing.T) {
	examples := []struct {
		Name  string
		Start mgl64.Vec2
		Vel   mgl64.Vec2
	}{
		{"bottom wall from outside", mgl64.Vec2{260, 520}, mgl64.Vec2{0, -80}},
		{"top wall from outside", mgl64.Vec2{400, 150}, mgl64.Vec2{0, 80}},
		{"left wall from outside", mgl64.Vec2{150, 300}, mgl64.Vec2{80, 0}},
		{"right wall from inside", mgl64.Vec2{560, 300}, mgl64.Vec2{80, 0}},
		{"top wall from inside", mgl64.Vec2{300, 240}, mgl64.Vec2{0, -80}},
		{"corner from outside", mgl64.Vec2{150, 150}, mgl64.Vec2{60, 60}},
	}

	for _, example := range examples {
		t.Run(example.Name, func(t *testing.T) {
			h := defaultHive()
			pos, vel := example.Start, example.Vel
			dt := 1.0 / 120.0
			reflected := false
			for i := 0; i < 600; i++ {
				prev := pos
				pos = pos.Add(vel.Mul(dt))
				res := h.Resolve(&pos, &vel, prev, radius)
				reflected = reflected || res.Reflected
				require.LessOrEqual(t, h.Penetration(pos, radius), h.SafetyMargin+1e-9, "tick %d", i)
			}
			assert.True(t, reflected)
		})
	}
}

func TestResolveReflectsWithRestitution(t *testing.T) {
	h := defaultHive()
	prev := mgl64.Vec2{300, 475}
	pos := mgl64.Vec2{300, 465}
	vel := mgl64.Vec2{10, -60}

	res := h.Resolve(&pos, &vel, prev, radius)

	assert.Equal(t, 1, res.Contacts)
	assert.True(t, res.Reflected)
	assert.InDelta(t, 460+radius+h.SafetyMargin, pos.Y(), 1e-9)
	assert.InDelta(t, 60*h.Restitution, vel.Y(), 1e-9)
	assert.InDelta(t, 10*h.TangentDamp, vel.X(), 1e-9)
}

func TestEntranceCrossingIsFree(t *testing.T) {
	h := defaultHive()
	pos := mgl64.Vec2{400, 520}
	vel := mgl64.Vec2{0, -60}
	dt := 1.0 / 120.0

	for i := 0; i < 240; i++ {
		prev := pos
		pos = pos.Add(vel.Mul(dt))
		res := h.Resolve(&pos, &vel, prev, radius)
		require.False(t, res.Reflected, "tick %d", i)
		require.Zero(t, res.Contacts, "tick %d", i)
	}
	assert.Equal(t, mgl64.Vec2{0, -60}, vel)
	assert.True(t, h.Contains(pos))
}

func TestResolvePreventsTunneling(t *testing.T) {
	h := defaultHive()
	prev := mgl64.Vec2{300, 480}
	pos := mgl64.Vec2{300, 430}
	vel := mgl64.Vec2{0, -3000}

	res := h.Resolve(&pos, &vel, prev, radius)

	assert.True(t, res.Tunneled)
	assert.False(t, h.Contains(pos))
	assert.Greater(t, vel.Y(), 0.0)
}

func TestRoute(t *testing.T) {
	h := defaultHive()
	clearance := 2 * radius
	outer, inner := h.ApproachPoints(clearance)

	examples := []struct {
		Name     string
		From, To mgl64.Vec2
		First    *mgl64.Vec2
	}{
		{"inside to far side", mgl64.Vec2{400, 300}, mgl64.Vec2{400, 100}, &inner},
		{"outside to inside", mgl64.Vec2{100, 100}, mgl64.Vec2{400, 300}, nil},
		{"around the hive", mgl64.Vec2{100, 330}, mgl64.Vec2{700, 330}, nil},
		{"clear line", mgl64.Vec2{100, 600}, mgl64.Vec2{700, 600}, nil},
	}

	for _, example := range examples {
		t.Run(example.Name, func(t *testing.T) {
			path := h.Route(example.From, example.To, clearance)
			if !h.Blocked(example.From, example.To) {
				assert.Empty(t, path)
				return
			}
			require.NotEmpty(t, path)
			if example.First != nil {
				assert.Equal(t, *example.First, path[0])
			}
			legs := append([]mgl64.Vec2{example.From}, path...)
			legs = append(legs, example.To)
			for i := 1; i < len(legs); i++ {
				assert.False(t, h.Blocked(legs[i-1], legs[i]), "leg %d", i)
			}
		})
	}

	path := h.Route(mgl64.Vec2{300, 700}, mgl64.Vec2{300, 300}, clearance)
	assert.Equal(t, []mgl64.Vec2{outer, inner}, path)
}

func TestDisabledHive(t *testing.T) {
	h := New(config.HiveParams{})
	pos := mgl64.Vec2{10, 10}
	vel := mgl64.Vec2{1, 1}

	res := h.Resolve(&pos, &vel, pos, radius)

	assert.Equal(t, Result{}, res)
	assert.Nil(t, h.Route(mgl64.Vec2{0, 0}, mgl64.Vec2{100, 100}, radius))
	assert.False(t, h.Contains(pos))
}
