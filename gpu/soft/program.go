package soft

import (
	"slices"

	"github.com/pthm-cable/fluidfx/gpu"
)

type program struct {
	*gpu.Uniforms
	name     string
	keywords []string
	build    builder
}

func newProgram(src gpu.ProgramSource, keywords []string, build builder) *program {
	return &program{
		Uniforms: gpu.NewUniforms(src.Uniforms),
		name:     src.Name,
		keywords: slices.Clone(keywords),
		build:    build,
	}
}

func (p *program) Keywords() []string { return slices.Clone(p.keywords) }

func (p *program) Release() {}

func (p *program) has(kw string) bool {
	return slices.Contains(p.keywords, kw)
}
