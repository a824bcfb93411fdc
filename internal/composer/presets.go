package composer

import "strings"

// Preset categories.
const (
	CategoryBasic         = "basic"
	CategoryAdvanced      = "advanced"
	CategoryDebug         = "debug"
	CategoryExperimental  = "experimental"
	CategoryFSR4          = "fsr4"
	CategoryGameSpecific  = "game_specific"
	CategoryCompatibility = "compatibility"
)

const (
	mangohudSuffix = "_mangohud"
	rdna3Suffix    = "_rdna3"
)

// Preset is a named, described Options set.
type Preset struct {
	Key           string
	Name          string
	Description   string
	Category      string
	Compatibility string
	Requirements  []string
	Options       Options
}

// Command composes the preset. Catalog entries always compose cleanly.
func (p Preset) Command() string {
	s, err := Compose(p.Options)
	if err != nil {
		panic("composer: preset " + p.Key + ": " + err.Error())
	}
	return s
}

var basePresets = []Preset{
	{
		Key:           "basic",
		Name:          "Basic OptiScaler",
		Description:   "Essential OptiScaler setup, the recommended starting point",
		Category:      CategoryBasic,
		Compatibility: "All games",
		Requirements:  []string{"OptiScaler installed"},
	},
	{
		Key:           "advanced",
		Name:          "Advanced OptiScaler",
		Description:   "Enhanced performance and compatibility settings",
		Category:      CategoryAdvanced,
		Compatibility: "Most games",
		Requirements:  []string{"OptiScaler installed", "DXVK"},
		Options: Options{Env: []EnvVar{
			{"DXVK_ASYNC", "1"},
			{"PROTON_ENABLE_NVAPI", "1"},
			{"PROTON_HIDE_NVIDIA_GPU", "0"},
			{"VKD3D_CONFIG", "dxr11,dxr"},
			{"WINE_CPU_TOPOLOGY", "4:2"},
		}},
	},
	{
		Key:           "debug",
		Name:          "Debug Mode",
		Description:   "Detailed logging for troubleshooting",
		Category:      CategoryDebug,
		Compatibility: "All games",
		Requirements:  []string{"OptiScaler installed"},
		Options:       Options{Debug: true},
	},
	{
		Key:           "antilag",
		Name:          "Anti-Lag 2",
		Description:   "Experimental latency reduction",
		Category:      CategoryExperimental,
		Compatibility: "AMD GPUs only",
		Requirements:  []string{"OptiScaler installed", "AMD GPU"},
		Options:       Options{RADVPerftest: []string{"rt"}},
	},
	{
		Key:           "fsr4_enhanced",
		Name:          "FSR4 Enhanced",
		Description:   "FSR4 upgrade with RADV ray tracing and NGG culling",
		Category:      CategoryFSR4,
		Compatibility: "AMD GPUs (FSR4 capable)",
		Requirements:  []string{"OptiScaler installed", "AMD GPU", "FSR4 DLL"},
		Options:       Options{RADVPerftest: []string{"nggc", "rt"}},
	},
	{
		Key:           "ue_dx12",
		Name:          "Unreal Engine + DX12",
		Description:   "Forces DirectX 12 for Unreal Engine games",
		Category:      CategoryGameSpecific,
		Compatibility: "Unreal Engine games",
		Requirements:  []string{"OptiScaler installed", "UE game"},
		Options:       Options{GameArgs: []string{"-dx12"}},
	},
	{
		Key:           "no_dlss_fg",
		Name:          "Disable DLSS Frame Generation",
		Description:   "For games with DLSS Frame Generation issues",
		Category:      CategoryCompatibility,
		Compatibility: "Games with DLSS FG issues",
		Requirements:  []string{"OptiScaler installed"},
		Options:       Options{DisableDLSSFrameGen: true},
	},
}

// Catalog returns the presets in display order. Each base preset is followed
// by its MangoHUD variant when mangohud is set, and RDNA3 variants of all of
// them follow when rdna3 is set.
func Catalog(rdna3, mangohud bool) []Preset {
	var out []Preset
	for _, p := range basePresets {
		p = clonePreset(p)
		out = append(out, p)
		if mangohud {
			out = append(out, withMangoHUD(p))
		}
	}
	if rdna3 {
		n := len(out)
		for _, p := range out[:n] {
			out = append(out, withRDNA3(p))
		}
	}
	return out
}

// Lookup finds a preset by key across every variant.
func Lookup(key string) (Preset, bool) {
	for _, p := range Catalog(true, true) {
		if p.Key == key {
			return p, true
		}
	}
	return Preset{}, false
}

// Categories returns the preset categories in display order.
func Categories() []string {
	return []string{
		CategoryBasic, CategoryAdvanced, CategoryDebug, CategoryExperimental,
		CategoryFSR4, CategoryGameSpecific, CategoryCompatibility,
	}
}

func withMangoHUD(p Preset) Preset {
	p = clonePreset(p)
	p.Key += mangohudSuffix
	p.Name += " + MangoHUD"
	p.Description += ", with performance overlay"
	p.Requirements = append(p.Requirements, "MangoHUD")
	p.Options.MangoHUD = true
	return p
}

func withRDNA3(p Preset) Preset {
	p = clonePreset(p)
	p.Key += rdna3Suffix
	p.Name += " (RDNA3)"
	p.Description += ", RDNA3 GPU workaround"
	p.Compatibility = "RDNA3 GPUs only"
	p.Requirements = append(p.Requirements, "RDNA3 GPU")
	p.Options.RDNA3Workaround = true
	return p
}

// clonePreset copies the slices so variants never share backing arrays.
func clonePreset(p Preset) Preset {
	p.Requirements = append([]string(nil), p.Requirements...)
	p.Options.RADVPerftest = append([]string(nil), p.Options.RADVPerftest...)
	p.Options.Env = append([]EnvVar(nil), p.Options.Env...)
	p.Options.GameArgs = append([]string(nil), p.Options.GameArgs...)
	return p
}

// RequirementsText joins the requirements for display.
func (p Preset) RequirementsText() string {
	return strings.Join(p.Requirements, ", ")
}
