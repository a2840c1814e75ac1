package audiocache

import (
	"github.com/foxseedlab/madoguchin/internal/audiocache"
	"github.com/foxseedlab/madoguchin/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audiocache.Cache, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewFileCache(c.AudioDir), nil
	})
}
