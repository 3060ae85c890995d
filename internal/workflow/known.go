package workflow

import "strings"

// KnownModel is a published weight file with a stable download URL.
type KnownModel struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	SizeMB   int64  `json:"sizeMb"`
	Folder   string `json:"folder"`
}

const (
	hfWan  = "https://huggingface.co/Comfy-Org/Wan_2.2_ComfyUI_repackaged/resolve/main/split_files/"
	hfFlux = "https://huggingface.co/comfyanonymous/flux_text_encoders/resolve/main/"
)

// KnownModels are the files Suggest can fill in a URL for.
var KnownModels = []KnownModel{
	{Name: "WAN 2.2 14B I2V (bf16)", Filename: "wan2.2_i2v_720p_14B_bf16.safetensors", URL: hfWan + "diffusion_models/wan2.2_i2v_720p_14B_bf16.safetensors", SizeMB: 28000, Folder: "diffusion_models/wan"},
	{Name: "WAN 2.2 14B I2V (fp8)", Filename: "wan2.2_i2v_720p_14B_fp8_e4m3fn.safetensors", URL: hfWan + "diffusion_models/wan2.2_i2v_720p_14B_fp8_e4m3fn.safetensors", SizeMB: 14000, Folder: "diffusion_models/wan"},
	{Name: "WAN 2.2 5B I2V (bf16)", Filename: "wan2.2_i2v_480p_5B_bf16.safetensors", URL: hfWan + "diffusion_models/wan2.2_i2v_480p_5B_bf16.safetensors", SizeMB: 10000, Folder: "diffusion_models/wan"},
	{Name: "WAN 2.2 VAE", Filename: "wan_2.2_vae.safetensors", URL: hfWan + "vae/wan_2.2_vae.safetensors", SizeMB: 250, Folder: "vae"},
	{Name: "UMT5-XXL Encoder (GGUF)", Filename: "umt5_xxl_encoder_q4_k_m.gguf", URL: hfWan + "text_encoders/umt5_xxl_encoder_q4_k_m.gguf", SizeMB: 5000, Folder: "text_encoders"},
	{Name: "CLIP Vision H", Filename: "clip_vision_h.safetensors", URL: hfWan + "clip_vision/clip_vision_h.safetensors", SizeMB: 3500, Folder: "clip_vision"},
	{Name: "SVI LoRA", Filename: "svi.safetensors", URL: "https://huggingface.co/Kijai/WanVideo_comfy/resolve/main/svi.safetensors", SizeMB: 800, Folder: "loras/wan"},
	{Name: "FLUX.1 Dev", Filename: "flux1-dev.safetensors", URL: "https://huggingface.co/black-forest-labs/FLUX.1-dev/resolve/main/flux1-dev.safetensors", SizeMB: 24000, Folder: "diffusion_models"},
	{Name: "FLUX.1 Dev (fp8)", Filename: "flux1-dev-fp8.safetensors", URL: "https://huggingface.co/Comfy-Org/flux1-dev/resolve/main/flux1-dev-fp8.safetensors", SizeMB: 12000, Folder: "diffusion_models"},
	{Name: "FLUX VAE (ae)", Filename: "ae.safetensors", URL: "https://huggingface.co/black-forest-labs/FLUX.1-dev/resolve/main/ae.safetensors", SizeMB: 300, Folder: "vae"},
	{Name: "T5-XXL (fp16)", Filename: "t5xxl_fp16.safetensors", URL: hfFlux + "t5xxl_fp16.safetensors", SizeMB: 9500, Folder: "text_encoders"},
	{Name: "T5-XXL (fp8)", Filename: "t5xxl_fp8_e4m3fn.safetensors", URL: hfFlux + "t5xxl_fp8_e4m3fn.safetensors", SizeMB: 4700, Folder: "text_encoders"},
	{Name: "CLIP-L", Filename: "clip_l.safetensors", URL: hfFlux + "clip_l.safetensors", SizeMB: 250, Folder: "text_encoders"},
	{Name: "SDXL Base 1.0", Filename: "sd_xl_base_1.0.safetensors", URL: "https://huggingface.co/stabilityai/stable-diffusion-xl-base-1.0/resolve/main/sd_xl_base_1.0.safetensors", SizeMB: 6900, Folder: "checkpoints"},
	{Name: "SDXL VAE", Filename: "sdxl_vae.safetensors", URL: "https://huggingface.co/stabilityai/sdxl-vae/resolve/main/sdxl_vae.safetensors", SizeMB: 350, Folder: "vae"},
	{Name: "LTX Video 2B", Filename: "ltx-video-2b-v0.9.safetensors", URL: "https://huggingface.co/Lightricks/LTX-Video/resolve/main/ltx-video-2b-v0.9.safetensors", SizeMB: 9000, Folder: "checkpoints"},
}

// Suggest looks filename up in KnownModels, ignoring case.
func Suggest(filename string) (KnownModel, bool) {
	for _, m := range KnownModels {
		if strings.EqualFold(m.Filename, filename) {
			return m, true
		}
	}
	return KnownModel{}, false
}
