// internal/appconfig/parameter_templates.go
package appconfig

import "strings"

// ProfileName identifies a sampling preset for the llm baseline.
type ProfileName string

const (
	ProfileDeterministic ProfileName = "deterministic"
	ProfileFactChecker   ProfileName = "fact_checker"
	ProfileGenericChat   ProfileName = "generic"
)

// SamplingParams are the chat-completion knobs the llm baseline forwards.
// Nil fields leave the endpoint default in place.
type SamplingParams struct {
	Temperature *float32 `mapstructure:"temperature" json:"temperature,omitempty"`
	TopP        *float32 `mapstructure:"topP" json:"topP,omitempty"`
	MaxTokens   *int     `mapstructure:"maxTokens" json:"maxTokens,omitempty"`
	Seed        *int     `mapstructure:"seed" json:"seed,omitempty"`
}

// ProfileNames lists the known sampling profiles.
func ProfileNames() []string {
	return []string{string(ProfileDeterministic), string(ProfileFactChecker), string(ProfileGenericChat)}
}

// SamplingForProfile selects a sampling profile by name.
// Behavior:
//   - empty string => deterministic (default)
//   - unknown string => deterministic (default)
func SamplingForProfile(name string) SamplingParams {
	switch ProfileName(normalizeProfileName(name)) {
	case ProfileFactChecker:
		return DefaultFactCheckerSampling()
	case ProfileGenericChat:
		return DefaultGenericChatSampling()
	case ProfileDeterministic:
		fallthrough
	default:
		return DefaultDeterministicSampling()
	}
}

// DefaultDeterministicSampling keeps runs reproducible: greedy decoding and a
// fixed seed.
func DefaultDeterministicSampling() SamplingParams {
	return SamplingParams{
		Temperature: ptrFloat32(0),
		TopP:        ptrFloat32(1),
		MaxTokens:   ptrInt(256),
		Seed:        ptrInt(42),
	}
}

// DefaultFactCheckerSampling favors short, precise answers with a little
// variance.
func DefaultFactCheckerSampling() SamplingParams {
	return SamplingParams{
		Temperature: ptrFloat32(0.2),
		TopP:        ptrFloat32(0.6),
		MaxTokens:   ptrInt(128),
		Seed:        ptrInt(42),
	}
}

// DefaultGenericChatSampling is a conversational preset; results will not be
// reproducible.
func DefaultGenericChatSampling() SamplingParams {
	return SamplingParams{
		Temperature: ptrFloat32(0.8),
		TopP:        ptrFloat32(1),
		MaxTokens:   ptrInt(512),
	}
}

// mergeSampling overlays every non-nil field of override onto base.
func mergeSampling(base, override SamplingParams) SamplingParams {
	if override.Temperature != nil {
		base.Temperature = override.Temperature
	}
	if override.TopP != nil {
		base.TopP = override.TopP
	}
	if override.MaxTokens != nil {
		base.MaxTokens = override.MaxTokens
	}
	if override.Seed != nil {
		base.Seed = override.Seed
	}
	return base
}

func normalizeProfileName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

func ptrInt(v int) *int             { return &v }
func ptrFloat32(v float32) *float32 { return &v }
