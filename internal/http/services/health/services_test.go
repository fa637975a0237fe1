package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReady(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	s := NewService("test", 0).Add("store", ok).Add("cache", nil)
	res := s.Ready(context.Background())
	assert.True(t, res.Ready)
	assert.Equal(t, map[string]string{"store": "ok"}, res.Components)

	s.Add("redis", down)
	res = s.Ready(context.Background())
	assert.False(t, res.Ready)
	assert.Equal(t, "connection refused", res.Components["redis"])
}
