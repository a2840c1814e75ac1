package synthesizer

import (
	"github.com/foxseedlab/madoguchin/internal/config"
	"github.com/foxseedlab/madoguchin/internal/synthesizer"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (synthesizer.Synthesizer, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewElevenLabsSynthesizer(ElevenLabsConfig{
			APIKey:  c.ElevenLabsAPIKey,
			VoiceID: c.ElevenLabsVoiceID,
			ModelID: c.ElevenLabsModelID,
		}), nil
	})
}
