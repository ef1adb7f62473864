package speech

// Voice configures backend speech synthesis. Empty fields fall back to the
// defaults below.
type Voice struct {
	Gender string `json:"gender" yaml:"gender"`
	Speed  string `json:"speed" yaml:"speed"`
	Pitch  string `json:"pitch" yaml:"pitch"`
	Lang   string `json:"lang" yaml:"lang"`
}

const (
	DefaultGender = "female"
	DefaultSpeed  = "1.0"
	DefaultPitch  = "1.0"
	DefaultLang   = "en-US"
)

func DefaultVoice() *Voice {
	return &Voice{
		Gender: DefaultGender,
		Speed:  DefaultSpeed,
		Pitch:  DefaultPitch,
		Lang:   DefaultLang,
	}
}

func (v Voice) WithDefaults() Voice {
	if v.Gender == "" {
		v.Gender = DefaultGender
	}
	if v.Speed == "" {
		v.Speed = DefaultSpeed
	}
	if v.Pitch == "" {
		v.Pitch = DefaultPitch
	}
	if v.Lang == "" {
		v.Lang = DefaultLang
	}
	return v
}
