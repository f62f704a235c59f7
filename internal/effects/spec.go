package effects

import (
	"fmt"
	"sort"
	"strings"
)

// BuildFilterSpec renders cfg's externally-delegated, active filter
// nodes into the specification string handed to the media I/O library's
// filter-graph facility, in DefaultOrder. Unlike the donor chain (which
// registers one hand-written builder per filter, filters.go's
// filterBuilders map), this catalogue is wide enough (spec §4.3's ~30
// external nodes) that a single generic "id=k=v:k=v" renderer driven by
// each node's ExternalParams replaces per-filter builder functions;
// nodes needing no parameters (e.g. speech-normalize, the preset
// composites) render as a bare id.
func BuildFilterSpec(cfg *Config) string {
	var parts []string
	for _, id := range cfg.activeOrder() {
		if nativeFilters[id] {
			continue
		}
		if id == FilterTempo {
			parts = append(parts, renderTempoStages(cfg)...)
			continue
		}
		if id == FilterSetRate {
			parts = append(parts, fmt.Sprintf("%s=ratio=%g:semitones=%g",
				FilterSetRate, PitchSampleRateRatio(cfg.PitchSemitones), cfg.PitchSemitones))
			continue
		}
		parts = append(parts, renderNode(id, cfg.ExternalParamsFor(id)))
	}
	return strings.Join(parts, ",")
}

// renderTempoStages expands the overall tempo into the in-range stage
// chain FactorizeTempo computes, one "tempo" node per stage, per spec
// §4.3's "tempo lies outside [0.5, 2.0]... factorised into a sequence
// of in-range stages" rule.
func renderTempoStages(cfg *Config) []string {
	effective := EffectiveTempo(cfg.Tempo, cfg.PitchSemitones)
	stages := FactorizeTempo(effective)
	nodes := make([]string, len(stages))
	for i, factor := range stages {
		nodes[i] = fmt.Sprintf("%s=factor=%g", FilterTempo, factor)
	}
	return nodes
}

func renderNode(id FilterID, params ExternalParams) string {
	if len(params) == 0 {
		return string(id)
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(id))
	b.WriteByte('=')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "%s=%g", k, params[k])
	}
	return b.String()
}
