package proxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobinProxySwitcher(t *testing.T) {
	p, err := RoundRobinProxySwitcher("http://127.0.0.1:7890", "http://127.0.0.1:7891")
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "https://news.example.com", http.NoBody)
	var got []string
	for i := 0; i < 4; i++ {
		u, err := p(req)
		require.NoError(t, err)
		got = append(got, u.Host)
	}
	assert.Equal(t, []string{"127.0.0.1:7890", "127.0.0.1:7891", "127.0.0.1:7890", "127.0.0.1:7891"}, got)
}

func TestRoundRobinProxySwitcher_Invalid(t *testing.T) {
	_, err := RoundRobinProxySwitcher()
	assert.ErrorIs(t, err, ErrNoProxy)

	_, err = RoundRobinProxySwitcher("http://[::1")
	assert.Error(t, err)
}
