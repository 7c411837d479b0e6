package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	cases := []struct {
		Name     string
		Password string
		Check    string
		Valid    bool
	}{
		{Name: "same password", Password: "secret", Check: "secret", Valid: true},
		{Name: "wrong password", Password: "secret", Check: "Secret", Valid: false},
		{Name: "empty check", Password: "secret", Check: "", Valid: false},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			hash, err := HashPassword(c.Password)
			require.NoError(t, err)
			assert.NotEqual(t, c.Password, hash)
			assert.Equal(t, c.Valid, CheckPasswordHash(hash, c.Check))
		})
	}
}

func TestHashLongPassword(t *testing.T) {
	long := strings.Repeat("p", 80)

	hash, err := HashPassword(long)
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash(hash, long))
	assert.True(t, CheckPasswordHash(hash, long[:72]))
	assert.False(t, CheckPasswordHash(hash, long[:71]))
}
