// Package shaders embeds the GLSL for every full-screen pass and exposes
// them as program sources keyed by name.
package shaders

import (
	"embed"
	"fmt"
	"slices"
	"strings"

	"github.com/pthm-cable/fluidfx/gpu"
)

//go:embed glsl/*.fs glsl/common.glsl
var files embed.FS

// Program names.
const (
	Copy       = "copy"
	Clear      = "clear"
	Splat      = "splat"
	Curl       = "curl"
	Vorticity  = "vorticity"
	Divergence = "divergence"
	Pressure   = "pressure"
	Gradient   = "gradient"
	Advection  = "advection"
	Display    = "display"
)

// Keywords understood by the fragment sources.
const (
	KeywordShading         = "SHADING"
	KeywordManualFiltering = "MANUAL_FILTERING"
	KeywordPacked          = "PACKED"
)

// GLSLVersion prefixes every assembled fragment shader.
const GLSLVersion = "#version 330"

// common uniforms are set by the device or by every pass.
var common = []string{"uResolution", "texelSize"}

var uniforms = map[string][]string{
	Copy:       {"uTexture"},
	Clear:      {"uTexture", "value"},
	Splat:      {"uTarget", "aspectRatio", "color", "point", "radius"},
	Curl:       {"uVelocity"},
	Vorticity:  {"uVelocity", "uCurl", "curl", "dt"},
	Divergence: {"uVelocity"},
	Pressure:   {"uPressure", "uDivergence"},
	Gradient:   {"uPressure", "uVelocity"},
	Advection:  {"uVelocity", "uSource", "dyeTexelSize", "dt", "dissipation"},
	Display:    {"uTexture"},
}

// optional lists the keywords a program branches on besides PACKED.
var optional = map[string][]string{
	Advection: {KeywordManualFiltering},
	Display:   {KeywordShading},
}

// Variants lists every keyword set a program can be compiled with, each
// sorted, starting with the empty set.
func Variants(name string) [][]string {
	kws := append([]string{KeywordPacked}, optional[name]...)
	out := make([][]string, 0, 1<<len(kws))
	for mask := 0; mask < 1<<len(kws); mask++ {
		var set []string
		for i, kw := range kws {
			if mask&(1<<i) != 0 {
				set = append(set, kw)
			}
		}
		slices.Sort(set)
		out = append(out, set)
	}
	return out
}

// Names lists every program in a stable order.
func Names() []string {
	names := make([]string, 0, len(uniforms))
	for n := range uniforms {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Source returns the program source for name.
func Source(name string) (gpu.ProgramSource, error) {
	u, ok := uniforms[name]
	if !ok {
		return gpu.ProgramSource{}, fmt.Errorf("unknown program %q", name)
	}
	frag, err := files.ReadFile("glsl/" + name + ".fs")
	if err != nil {
		return gpu.ProgramSource{}, fmt.Errorf("reading %s shader: %w", name, err)
	}
	return gpu.ProgramSource{
		Name:     name,
		Fragment: string(frag),
		Uniforms: append(slices.Clone(common), u...),
	}, nil
}

// MustSource is like Source but panics on error.
func MustSource(name string) gpu.ProgramSource {
	src, err := Source(name)
	if err != nil {
		panic(err)
	}
	return src
}

// Assemble prepends the version line, one #define per keyword and the
// shared prelude to a fragment body.
func Assemble(fragment string, keywords []string) string {
	prelude, _ := files.ReadFile("glsl/common.glsl")
	var b strings.Builder
	b.WriteString(GLSLVersion)
	b.WriteByte('\n')
	for _, kw := range keywords {
		fmt.Fprintf(&b, "#define %s\n", kw)
	}
	b.Write(prelude)
	b.WriteByte('\n')
	b.WriteString(fragment)
	return b.String()
}
