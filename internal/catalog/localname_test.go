package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveLocalName(t *testing.T) {
	tests := []struct {
		name     string
		locator  string
		override string
		want     string
	}{
		{"git url with suffix", "https://github.com/ltdrdata/ComfyUI-Manager.git", "", "ComfyUI-Manager"},
		{"git url without suffix", "https://github.com/kijai/ComfyUI-WanVideoWrapper", "", "ComfyUI-WanVideoWrapper"},
		{"trailing slash", "https://github.com/user/repo/", "", "repo"},
		{"only one git suffix removed", "https://github.com/user/repo.git.git", "", "repo.git"},
		{"download url with query", "https://huggingface.co/x/resolve/main/wan_vae.safetensors?download=true", "", "wan_vae.safetensors"},
		{"fragment ignored", "https://host/a/b.ckpt#frag", "", "b.ckpt"},
		{"scp style remote", "git@github.com:user/ComfyUI-KJNodes.git", "", "ComfyUI-KJNodes"},
		{"override wins", "https://github.com/user/repo.git", "custom-folder", "custom-folder"},
		{"override trimmed", "", "  model.gguf ", "model.gguf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveLocalName(tt.locator, tt.override)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveLocalName_Errors(t *testing.T) {
	tests := []struct {
		name     string
		locator  string
		override string
	}{
		{"nothing", "", ""},
		{"host only", "https://github.com", ""},
		{"host with slash", "https://github.com/", ""},
		{"override with separator", "https://github.com/u/r", "a/b"},
		{"override dot dot", "", ".."},
		{"bare git suffix", "https://github.com/u/.git", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveLocalName(tt.locator, tt.override)
			require.ErrorIs(t, err, ErrInvalidLocalName)
		})
	}
}

func TestDeriveLocalName_Deterministic(t *testing.T) {
	const locator = "https://github.com/cubiq/ComfyUI_essentials.git"
	first, err := DeriveLocalName(locator, "")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := DeriveLocalName(locator, "")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNodeIDFromName(t *testing.T) {
	assert.Equal(t, "comfyui-manager", NodeIDFromName("ComfyUI Manager"))
	assert.Equal(t, "was-node-suite", NodeIDFromName(" WAS_Node Suite "))
	assert.Equal(t, "kjnodes", NodeIDFromName("KJNodes"))
}
