package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("BANKMATCH_TEST_DIR", "/var/data")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "bare tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/db/bank.db", want: filepath.Join(home, "db", "bank.db")},
		{name: "env var", in: "$BANKMATCH_TEST_DIR/bank.db", want: "/var/data/bank.db"},
		{name: "plain path untouched", in: "/opt/bankmatch.db", want: "/opt/bankmatch.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDatabasePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := DatabasePath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "bankmatch", "bankmatch.db"), got)

	got, err = DatabasePath("~/custom.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "custom.db"), got)
}
