package resolve

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

func TestRegisterAndResolve(t *testing.T) {
	c := New()
	var built atomic.Int32
	require.NoError(t, c.Register("clock", func(*Container) (any, error) {
		built.Add(1)
		return 42, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Resolve("clock")
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), built.Load(), "factory runs once")
}

func TestFreezeRejectsRegistrations(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterInstance("a", 1))
	c.Freeze()

	assert.True(t, c.IsFrozen())
	err := c.RegisterInstance("b", 2)
	assert.ErrorIs(t, err, ErrFrozen)

	v, err := c.Resolve("a")
	require.NoError(t, err, "resolving stays allowed after freeze")
	assert.Equal(t, 1, v)
}

func TestDuplicateAndMissing(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterInstance("a", 1))

	assert.ErrorIs(t, c.RegisterInstance("a", 2), ErrDuplicate)
	_, err := c.Resolve("nope")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestFactoryErrorIsSticky(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	require.NoError(t, c.Register("bad", func(*Container) (any, error) { return nil, boom }))

	_, err := c.Resolve("bad")
	assert.ErrorIs(t, err, boom)
	_, err = c.Resolve("bad")
	assert.ErrorIs(t, err, boom)
}

func TestResetUnfreezes(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterInstance("a", 1))
	c.Freeze()
	c.Reset()

	assert.False(t, c.IsFrozen())
	assert.Empty(t, c.Names())
	assert.NoError(t, c.RegisterInstance("a", 1))
}

func TestTypedHelpers(t *testing.T) {
	c := New()
	require.NoError(t, Provide[greeter](c, english{}))
	require.NoError(t, ProvideFunc(c, func(c *Container) (string, error) {
		g, err := Get[greeter](c)
		if err != nil {
			return "", err
		}
		return g.Greet() + " world", nil
	}))

	s, err := Get[string](c)
	require.NoError(t, err)
	assert.Equal(t, "hello world", s)
	assert.Equal(t, "hello", MustGet[greeter](c).Greet())
	assert.Equal(t, []string{"resolve.greeter", "string"}, c.Names())

	_, err = Get[int](c)
	assert.ErrorIs(t, err, ErrNotRegistered)
}
