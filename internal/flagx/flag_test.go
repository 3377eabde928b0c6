package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "conf.json", "-a", "localhost"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "long flag with equals",
			args:    []string{"--config=alt.json", "-a", "localhost"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "unknown flags ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag without value at end",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-c", "-notvalue"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "several allowed flags keep order",
			args:    []string{"-a", "http://api", "-c", "conf.json", "--other", "x"},
			allowed: []string{"-c", "-a"},
			want:    []string{"-a", "http://api", "-c", "conf.json"},
		},
		{
			name:    "empty args",
			args:    []string{},
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFileFlags(t *testing.T) {
	t.Run("short forms", func(t *testing.T) {
		p := ConfigFileFlags([]string{"-a", "x", "-c", "conf.json", "-e", ".env.local"})
		assert.Equal(t, FilePaths{Config: "conf.json", Env: ".env.local"}, p)
	})

	t.Run("long forms with equals", func(t *testing.T) {
		p := ConfigFileFlags([]string{"-config=/etc/fs.json", "-env=/etc/fs.env"})
		assert.Equal(t, FilePaths{Config: "/etc/fs.json", Env: "/etc/fs.env"}, p)
	})

	t.Run("absent", func(t *testing.T) {
		assert.Equal(t, FilePaths{}, ConfigFileFlags([]string{"-l", "debug"}))
	})
}
