// Package workflow reads ComfyUI workflow files.
//
// ComfyUI saves workflows in two shapes: the editor format, a "nodes" array
// whose loader filenames sit in positional "widgets_values", and the API
// format, an object keyed by node id whose "inputs" name every value. Parse
// accepts both and reports the model files the loader nodes reference,
// together with the models/ subfolder ComfyUI loads each from.
package workflow

// Loader describes a node type that loads model files.
type Loader struct {
	// Folder is the models/ subfolder the node reads from
	Folder string

	// Inputs are the filename inputs, in widget order
	Inputs []string
}

// Loaders maps node class types to the model folder they load from.
var Loaders = map[string]Loader{
	"UNETLoader":              {Folder: "diffusion_models", Inputs: []string{"unet_name"}},
	"UnetLoaderGGUF":          {Folder: "diffusion_models", Inputs: []string{"unet_name"}},
	"UNETLoaderNF4":           {Folder: "diffusion_models", Inputs: []string{"unet_name"}},
	"WanI2VLoader":            {Folder: "diffusion_models/wan", Inputs: []string{"model"}},
	"DownloadAndLoadWanModel": {Folder: "diffusion_models/wan", Inputs: []string{"model"}},

	"VAELoader": {Folder: "vae", Inputs: []string{"vae_name"}},

	"CheckpointLoaderSimple": {Folder: "checkpoints", Inputs: []string{"ckpt_name"}},
	"LTXVLoader":             {Folder: "checkpoints", Inputs: []string{"ckpt_name"}},

	"CLIPLoader":       {Folder: "text_encoders", Inputs: []string{"clip_name"}},
	"DualCLIPLoader":   {Folder: "text_encoders", Inputs: []string{"clip_name1", "clip_name2"}},
	"CLIPVisionLoader": {Folder: "clip_vision", Inputs: []string{"clip_name"}},

	"LoraLoader":          {Folder: "loras", Inputs: []string{"lora_name"}},
	"LoraLoaderModelOnly": {Folder: "loras", Inputs: []string{"lora_name"}},

	"ControlNetLoader":   {Folder: "controlnet", Inputs: []string{"control_net_name"}},
	"UpscaleModelLoader": {Folder: "upscale_models", Inputs: []string{"model_name"}},

	"DownloadAndLoadFlorence2Model": {Folder: "LLM", Inputs: []string{"model"}},
	"Florence2ModelLoader":          {Folder: "LLM", Inputs: []string{"model_name"}},
}
