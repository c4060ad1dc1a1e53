package ranks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLadderValidation(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		wantErr bool
	}{
		{
			name:    "empty",
			names:   nil,
			wantErr: true,
		},
		{
			name:    "blank name",
			names:   []string{"Low", " "},
			wantErr: true,
		},
		{
			name:    "duplicate",
			names:   []string{"Low", "Mid", "Low"},
			wantErr: true,
		},
		{
			name:  "ok",
			names: []string{"Low", "Mid", "High"},
		},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				l, err := NewLadder(test.names)
				if test.wantErr {
					assert.Error(t, err)
					assert.Nil(t, l)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, len(test.names), l.Len())
			},
		)
	}
}

func TestName(t *testing.T) {
	l := MustNewLadder([]string{"Low", "Mid", "High"})

	name, err := l.Name(1)
	require.NoError(t, err)
	assert.Equal(t, "Mid", name)

	_, err = l.Name(3)
	var oor OutOfRangeError
	require.True(t, errors.As(err, &oor))
	assert.Equal(t, 3, oor.Index)

	_, err = l.Name(-1)
	assert.Error(t, err)

	assert.Equal(t, UnknownRank, l.DisplayName(42))
	assert.Equal(t, "High", l.DisplayName(2))
}

func TestPromoteReachesTopInNMinusOneSteps(t *testing.T) {
	for n := 1; n <= len(DefaultNames); n++ {
		l := MustNewLadder(DefaultNames[:n])
		idx := l.Lowest()
		steps := 0
		for {
			next, changed := l.Step(idx, Promote)
			if !changed {
				assert.Equal(t, idx, next)
				break
			}
			assert.Equal(t, idx+1, next)
			idx = next
			steps++
		}
		assert.Equal(t, n-1, steps, "ladder of %d ranks", n)
		assert.Equal(t, l.Highest(), idx)

		next, changed := l.Step(idx, Promote)
		assert.False(t, changed)
		assert.Equal(t, l.Highest(), next)
	}
}

func TestDemoteReachesBottomInNMinusOneSteps(t *testing.T) {
	for n := 1; n <= len(DefaultNames); n++ {
		l := MustNewLadder(DefaultNames[:n])
		idx := l.Highest()
		steps := 0
		for {
			next, changed := l.Step(idx, Demote)
			if !changed {
				break
			}
			idx = next
			steps++
		}
		assert.Equal(t, n-1, steps)
		assert.Equal(t, 0, idx)
	}
}

func TestStepInverse(t *testing.T) {
	l := Default()
	for i := 0; i < l.Len(); i++ {
		if i < l.Highest() {
			up, changed := l.Step(i, Promote)
			require.True(t, changed)
			back, changed := l.Step(up, Demote)
			require.True(t, changed)
			assert.Equal(t, i, back)
		}
		if i > l.Lowest() {
			down, changed := l.Step(i, Demote)
			require.True(t, changed)
			back, changed := l.Step(down, Promote)
			require.True(t, changed)
			assert.Equal(t, i, back)
		}
	}
}

func TestClampAndIndex(t *testing.T) {
	l := MustNewLadder([]string{"Low", "Mid", "High"})
	assert.Equal(t, 0, l.Clamp(-5))
	assert.Equal(t, 2, l.Clamp(99))
	assert.Equal(t, 1, l.Clamp(1))

	i, ok := l.Index("mid")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = l.Index("General")
	assert.False(t, ok)
}

func TestNamesIsACopy(t *testing.T) {
	l := MustNewLadder([]string{"Low", "High"})
	names := l.Names()
	names[0] = "changed"
	assert.Equal(t, "Low", l.DisplayName(0))
}
