package reasoner

import (
	"github.com/foxseedlab/madoguchin/internal/config"
	"github.com/foxseedlab/madoguchin/internal/reasoner"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (reasoner.Reasoner, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewOpenRouterReasoner(OpenRouterConfig{
			APIKey:  c.OpenRouterAPIKey,
			BaseURL: c.OpenRouterBaseURL,
		}), nil
	})
}
