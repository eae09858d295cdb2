package orm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type event struct {
	Name  string
	At    time.Time
	Until *time.Time
	Tags  []string
	Meta  map[string]any
	Hook  func()
}

func TestEqualNormalizesTimezones(t *testing.T) {
	instant := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	tokyo := instant.In(time.FixedZone("JST", 9*60*60))
	later := instant.Add(time.Hour)

	a := event{Name: "launch", At: instant, Until: &later}
	b := event{Name: "launch", At: tokyo, Until: &later}
	assert.True(t, Equal(a, b))

	b.At = tokyo.Add(time.Nanosecond)
	assert.False(t, Equal(a, b))
}

func TestEqualValues(t *testing.T) {
	base := event{Name: "x", Tags: []string{"a"}, Meta: map[string]any{"n": 1}}

	other := base
	other.Tags = []string{"a"}
	other.Meta = map[string]any{"n": 1}
	assert.True(t, Equal(base, other))

	other.Meta = map[string]any{"n": 2}
	assert.False(t, Equal(base, other))

	other = base
	other.Tags = nil
	assert.False(t, Equal(base, other))

	other = base
	later := time.Now()
	other.Until = &later
	assert.False(t, Equal(base, other))

	other = base
	other.Hook = func() {}
	assert.False(t, Equal(base, other))

	assert.True(t, Equal(&base, &base))
	assert.True(t, Equal[*event](nil, nil))
	assert.False(t, Equal(&base, nil))
}
