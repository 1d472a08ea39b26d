package httpc

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClient(t *testing.T) {
	c := NewClient(3 * time.Second)
	assert.Equal(t, 3*time.Second, c.Timeout)

	tr, ok := c.Transport.(*http.Transport)
	if assert.True(t, ok) {
		assert.Equal(t, DefaultIdleConnTimeout, tr.IdleConnTimeout)
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewClient(0).Timeout)
	assert.Equal(t, DefaultTimeout, Client.Timeout)
}

func TestNewClient_SeparateTransports(t *testing.T) {
	a, b := NewClient(time.Second), NewClient(time.Second)
	assert.NotSame(t, a.Transport, b.Transport)
}
