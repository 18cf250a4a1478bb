// Package markenc extracts server-evaluable mark encoding channels into
// precomputed dataset columns (spec §4.G), so the client only has to
// read a plain field rather than re-run a scale lookup per row. It is
// grounded on
// original_source/vegafusion-core/src/planning/extract_mark_encodings.rs.
package markenc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vegafusion-go/vf/ispec"
)

// Config gates the two independent decisions the extraction makes.
type Config struct {
	// PrecomputeMarkEncodings, when false, makes Extract a no-op.
	PrecomputeMarkEncodings bool
	// CopyScalesToServer, when false, excludes any channel whose
	// encoding references a scale at all (scale-bound channels can
	// only be precomputed if the scale itself runs server-side).
	CopyScalesToServer bool
}

// serverScaleTypes is the whitelist of scale kinds the server-side
// resolver (package scale) evaluates; mirrors depgraph's whitelist.
var serverScaleTypes = map[string]bool{
	"linear": true, "log": true, "pow": true, "sqrt": true, "symlog": true,
	"time": true, "utc": true, "band": true, "point": true, "ordinal": true,
}

// Extract walks clientSpec's marks and, for each eligible non-group,
// non-faceted mark, moves its scale/field-resolvable "update" encoding
// channels into a new dataset appended to serverSpec, retargets the
// mark's source to that dataset, and rewrites the client's copy of each
// extracted channel to a plain `{field: "<unique column>"}` reference.
//
// serverData names every dataset already known to be available and
// supported on the server (root scope only — this repo's ispec model
// does not nest Data/Scale definitions inside group marks, only facet
// datasets, which are always skipped below exactly as the source mark's
// enclosing facet group is).
func Extract(clientSpec, serverSpec *ispec.ChartSpec, serverData map[string]bool, cfg Config) error {
	if !cfg.PrecomputeMarkEncodings {
		return nil
	}
	existing := make(map[string]bool, len(serverSpec.Data))
	for _, d := range serverSpec.Data {
		existing[d.Name] = true
	}
	return processMarks(clientSpec.Marks, nil, false, serverSpec, existing, serverData, cfg)
}

func processMarks(marks []ispec.MarkSpec, scope []uint32, inFacetGroup bool, serverSpec *ispec.ChartSpec, existingNames, serverData map[string]bool, cfg Config) error {
	groupIndex := 0
	nonGroupIndex := 0
	for i := range marks {
		m := &marks[i]
		if m.Type == ispec.GroupMarkType {
			nested := append(append([]uint32{}, scope...), uint32(groupIndex))
			isFacet := m.From != nil && m.From.Facet != nil
			if err := processMarks(m.Marks, nested, inFacetGroup || isFacet, serverSpec, existingNames, serverData, cfg); err != nil {
				return err
			}
			groupIndex++
		} else {
			if err := processNonGroupMark(m, scope, inFacetGroup, nonGroupIndex, serverSpec, existingNames, serverData, cfg); err != nil {
				return err
			}
			nonGroupIndex++
		}
	}
	return nil
}

func processNonGroupMark(m *ispec.MarkSpec, scope []uint32, inFacetGroup bool, nonGroupIndex int, serverSpec *ispec.ChartSpec, existingNames, serverData map[string]bool, cfg Config) error {
	if inFacetGroup {
		return nil
	}
	if m.From == nil || m.From.Data == "" {
		return nil
	}
	if !serverData[m.From.Data] {
		return nil
	}
	if m.Encode == nil {
		return nil
	}
	update, ok := m.Encode["update"]
	if !ok || len(update) == 0 {
		return nil
	}

	markID := m.Name
	if markID == "" {
		markID = fmt.Sprintf("mark_%d", nonGroupIndex)
	}

	derivedName := uniqueDerivedName(scope, markID, existingNames)

	channelNames := make([]string, 0, len(update))
	for name := range update {
		channelNames = append(channelNames, name)
	}
	sort.Strings(channelNames)

	type extractedChannel struct {
		name      string
		outputCol string
		channel   ispec.EncodeChannel
	}
	var extracted []extractedChannel

	for _, name := range channelNames {
		ch := update[name]
		if !channelSupported(ch) {
			continue
		}
		if ch.Scale != "" {
			if !cfg.CopyScalesToServer {
				continue
			}
			scaleSpec, ok := findScale(serverSpec, ch.Scale)
			if !ok || !serverScaleTypes[scaleSpec.Type] {
				continue
			}
		}
		outputCol := fmt.Sprintf("__vf_markenc_%s_%s", sanitize(derivedName), sanitize(name))
		extracted = append(extracted, extractedChannel{name: name, outputCol: outputCol, channel: ch})
	}

	if len(extracted) == 0 {
		return nil
	}

	channels := make(map[string]string, len(extracted))
	for _, ec := range extracted {
		channels[ec.name] = ec.outputCol
	}
	derived := ispec.DataSpec{
		Name:   derivedName,
		Source: m.From.Data,
		Transform: []ispec.TransformSpec{
			{Type: "vf-markenc", Expr: channels},
		},
	}
	serverSpec.Data = append(serverSpec.Data, derived)
	existingNames[derivedName] = true

	m.From.Data = derivedName

	for _, ec := range extracted {
		update[ec.name] = ispec.EncodeChannel{Field: ec.outputCol}
	}
	return nil
}

// channelSupported reports whether a channel is a plain field/scale/
// value reference the server can precompute, excluding free-form
// signal-driven channels the relational compiler has no entry point for.
func channelSupported(ch ispec.EncodeChannel) bool {
	return ch.Signal == ""
}

func findScale(spec *ispec.ChartSpec, name string) (ispec.ScaleSpec, bool) {
	for _, s := range spec.Scales {
		if s.Name == name {
			return s, true
		}
	}
	return ispec.ScaleSpec{}, false
}

func uniqueDerivedName(scope []uint32, markID string, existing map[string]bool) string {
	scopeStr := "root"
	if len(scope) > 0 {
		parts := make([]string, len(scope))
		for i, v := range scope {
			parts[i] = fmt.Sprint(v)
		}
		scopeStr = strings.Join(parts, "_")
	}
	base := fmt.Sprintf("_vf_markenc_%s_%s", sanitize(scopeStr), sanitize(markID))
	if !existing[base] {
		return base
	}
	for suffix := 1; ; suffix++ {
		candidate := fmt.Sprintf("%s_%d", base, suffix)
		if !existing[candidate] {
			return candidate
		}
	}
}

func sanitize(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}
