package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/comfydepot/internal/pathguard"
)

func allow() *pathguard.Allowlist {
	return pathguard.NewAllowlist(pathguard.DefaultModelFolders...)
}

func TestModelDocument_PutWorkflowExpandsTiers(t *testing.T) {
	doc := NewModelDocument()
	ids, err := doc.PutWorkflow(WorkflowDraft{
		ID:       "gcv-wan",
		Name:     "Wan I2V",
		Category: "video",
		Models: []DraftModel{
			{Filename: "wan2.2_i2v_720p_14B_fp8_e4m3fn.safetensors", TargetPath: "diffusion_models/wan", URL: "https://h/wan.safetensors", SizeMB: 14000, Tiers: []string{"L"}},
			{Filename: "wan-q4.gguf", TargetPath: "diffusion_models/wan", Tiers: []string{"s", "M"}},
			{Filename: "wan_2.2_vae.safetensors", TargetPath: "/vae/"},
		},
	}, allow())
	require.NoError(t, err)
	assert.Equal(t, []string{"wan2_2_i2v_720p_14b_fp8_e4m3fn_safetensors", "wan_q4_gguf", "wan_2_2_vae_safetensors"}, ids)

	wf := doc.Workflows["gcv-wan"]
	assert.Equal(t, "Wan I2V", wf.Name)
	assert.Equal(t, "video", wf.Category)
	require.Len(t, wf.ModelSets, 5)
	assert.Equal(t, ModelSet{Name: "8GB VRAM", VRAMGB: 8, Models: []string{"wan_q4_gguf", "wan_2_2_vae_safetensors"}}, wf.ModelSets["8GB"])
	assert.Equal(t, []string{"wan_q4_gguf", "wan_2_2_vae_safetensors"}, wf.ModelSets["16GB"].Models)
	assert.Equal(t, []string{"wan2_2_i2v_720p_14b_fp8_e4m3fn_safetensors", "wan_2_2_vae_safetensors"}, wf.ModelSets["32GB"].Models)

	vae := doc.Models["wan_2_2_vae_safetensors"]
	assert.Equal(t, "vae", vae.TargetPath)
	assert.Equal(t, "wan_2.2_vae.safetensors", vae.Name)

	tiers, err := doc.Tiers("gcv-wan")
	require.NoError(t, err)
	assert.Equal(t, []string{"L", "M", "S"}, tiers)

	items, err := doc.Items("gcv-wan", "S")
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestModelDocument_PutWorkflowIDCollision(t *testing.T) {
	doc := NewModelDocument()
	doc.Models["style_safetensors"] = ModelEntry{Name: "Style", Filename: "style.safetensors", URL: "https://h/a", TargetPath: "loras", Required: true}

	ids, err := doc.PutWorkflow(WorkflowDraft{ID: "wf", Models: []DraftModel{
		{Filename: "style.safetensors", TargetPath: "loras/wan"},
		{Filename: "style.safetensors", TargetPath: "loras"},
		{Filename: "style.safetensors", TargetPath: "loras"},
	}}, allow())
	require.NoError(t, err)
	assert.Equal(t, []string{"style_safetensors_loras_wan", "style_safetensors"}, ids)

	// the existing declaration keeps what the draft did not say
	kept := doc.Models["style_safetensors"]
	assert.Equal(t, "https://h/a", kept.URL)
	assert.Equal(t, "Style", kept.Name)
	assert.True(t, kept.Required)
	assert.Equal(t, "loras/wan", doc.Models["style_safetensors_loras_wan"].TargetPath)
}

func TestModelDocument_PutWorkflowRejects(t *testing.T) {
	tests := []struct {
		name  string
		draft WorkflowDraft
		want  error
	}{
		{"disallowed folder", WorkflowDraft{ID: "wf", Models: []DraftModel{{Filename: "x.safetensors", TargetPath: "custom_nodes"}}}, pathguard.ErrDisallowedFolder},
		{"empty folder", WorkflowDraft{ID: "wf", Models: []DraftModel{{Filename: "x.safetensors"}}}, pathguard.ErrDisallowedFolder},
		{"bad filename", WorkflowDraft{ID: "wf", Models: []DraftModel{{Filename: "..", TargetPath: "vae"}}}, ErrInvalidLocalName},
		{"unknown tier", WorkflowDraft{ID: "wf", Models: []DraftModel{{Filename: "x.pt", TargetPath: "vae", Tiers: []string{"XL"}}}}, ErrUnknownTier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sampleModels()
			before := len(doc.Models)
			_, err := doc.PutWorkflow(tt.draft, allow())
			require.ErrorIs(t, err, tt.want)
			assert.Len(t, doc.Models, before)
			assert.NotContains(t, doc.Workflows, "wf")
		})
	}

	_, err := NewModelDocument().PutWorkflow(WorkflowDraft{ID: " "}, allow())
	require.Error(t, err)
}

func TestModelDocument_PutWorkflowReplacesSets(t *testing.T) {
	doc := sampleModels()
	_, err := doc.PutWorkflow(WorkflowDraft{ID: "flux", Models: []DraftModel{
		{Filename: "flux.safetensors", TargetPath: "diffusion_models", Tiers: []string{"M"}},
	}}, allow())
	require.NoError(t, err)

	wf := doc.Workflows["flux"]
	assert.Equal(t, "Flux Dev", wf.Name)
	assert.Equal(t, "image", wf.Category)
	require.Len(t, wf.ModelSets, 1)
	assert.Equal(t, []string{"flux-fp8"}, wf.ModelSets["16GB"].Models, "declared slot keeps its id")
	assert.Equal(t, "Flux fp8", doc.Models["flux-fp8"].Name)
}

func TestModelDocument_TargetFolderEdits(t *testing.T) {
	doc := NewModelDocument()

	added, err := doc.AddTargetFolder("/loras/wan/", allow())
	require.NoError(t, err)
	assert.True(t, added)
	added, err = doc.AddTargetFolder("vae", allow())
	require.NoError(t, err)
	assert.True(t, added)
	added, err = doc.AddTargetFolder("vae", allow())
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, []string{"loras/wan", "vae"}, doc.Folders)

	_, err = doc.AddTargetFolder("../etc", allow())
	require.ErrorIs(t, err, pathguard.ErrDisallowedFolder)
	_, err = doc.AddTargetFolder("  ", allow())
	require.Error(t, err)

	require.NoError(t, doc.RemoveTargetFolder("vae"))
	assert.Equal(t, []string{"loras/wan"}, doc.TargetFolders())
	require.ErrorIs(t, doc.RemoveTargetFolder("vae"), ErrItemNotFound)
}
