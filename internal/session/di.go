package session

import (
	"github.com/foxseedlab/madoguchin/internal/audiocache"
	"github.com/foxseedlab/madoguchin/internal/config"
	"github.com/foxseedlab/madoguchin/internal/reasoner"
	"github.com/foxseedlab/madoguchin/internal/repository"
	"github.com/foxseedlab/madoguchin/internal/synthesizer"
	"github.com/foxseedlab/madoguchin/internal/tools"
	"github.com/foxseedlab/madoguchin/internal/transcriber"
	"github.com/foxseedlab/madoguchin/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*tools.Registry, error) {
		return tools.DefaultRegistry(), nil
	})
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		llm := do.MustInvoke[reasoner.Reasoner](i)
		tts := do.MustInvoke[synthesizer.Synthesizer](i)
		registry := do.MustInvoke[*tools.Registry](i)
		cache := do.MustInvoke[audiocache.Cache](i)
		wh := do.MustInvoke[webhook.Sender](i)
		return NewManager(cfg, repo, stt, llm, tts, registry, cache, wh), nil
	})
}
