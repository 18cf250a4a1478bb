// Package depgraph builds the scoped variable dependency graph a chart
// spec induces (spec §4.D), and classifies each node so the planner can
// decide which variables the server evaluates, which the client keeps,
// and which run on both ("Mirrored"). It is grounded on
// original_source/vegafusion-core/src/planning/dependency_graph.rs,
// adapted to Go's stdlib graph idiom (maps/slices/DFS) since no
// petgraph-equivalent exists anywhere in the retrieved dependency pack.
package depgraph

import (
	"encoding/json"
	"sort"

	"github.com/vegafusion-go/vf/ast"
	"github.com/vegafusion-go/vf/ispec"
	"github.com/vegafusion-go/vf/parser"
	"github.com/vegafusion-go/vf/variable"
)

// Support classifies a node's eligibility for server-side evaluation.
type Support int

const (
	Unsupported Support = iota
	PartiallySupported
	Supported
	Mirrored
)

func (s Support) String() string {
	switch s {
	case Unsupported:
		return "unsupported"
	case PartiallySupported:
		return "partially-supported"
	case Supported:
		return "supported"
	case Mirrored:
		return "mirrored"
	default:
		return "unknown"
	}
}

// Node is one scoped variable in the graph, along with its intrinsic
// support classification (computed without regard to its parents) and
// its final classification (computed by Select, which does consider
// parents).
type Node struct {
	Var       variable.ScopedVariable
	Intrinsic Support
	Final     Support
}

// Graph is the dependency graph: nodes keyed by ScopedVariable.Key(),
// plus producer -> consumer edges recorded in both directions.
type Graph struct {
	nodes    map[string]*Node
	order    []string // insertion order, used for deterministic topological walks
	children map[string][]string // producer key -> consumer keys
	parents  map[string][]string // consumer key -> producer keys
}

func newGraph() *Graph {
	return &Graph{
		nodes:    map[string]*Node{},
		children: map[string][]string{},
		parents:  map[string][]string{},
	}
}

func (g *Graph) addNode(sv variable.ScopedVariable, intrinsic Support) *Node {
	k := sv.Key()
	if n, ok := g.nodes[k]; ok {
		return n
	}
	n := &Node{Var: sv, Intrinsic: intrinsic}
	g.nodes[k] = n
	g.order = append(g.order, k)
	return n
}

func (g *Graph) addEdge(from, to variable.ScopedVariable) {
	fk, tk := from.Key(), to.Key()
	if _, ok := g.nodes[fk]; !ok {
		return
	}
	if _, ok := g.nodes[tk]; !ok {
		return
	}
	for _, c := range g.children[fk] {
		if c == tk {
			return
		}
	}
	g.children[fk] = append(g.children[fk], tk)
	g.parents[tk] = append(g.parents[tk], fk)
}

// Children returns the consumer keys of the node at key (empty if key
// has no recorded children).
func (g *Graph) Children(key string) []string { return g.children[key] }

// Parents returns the producer keys of the node at key (empty if key
// has no recorded parents).
func (g *Graph) Parents(key string) []string { return g.parents[key] }

// Node looks up a node by its ScopedVariable key.
func (g *Graph) Node(key string) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// Nodes returns every node in the graph in deterministic insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, g.nodes[k])
	}
	return out
}

// serverScaleTypes is the whitelist of scale kinds the server-side
// resolver (package scale) can evaluate (spec §4.F); any other type
// forces the owning scale Unsupported.
var serverScaleTypes = map[string]bool{
	"linear": true, "log": true, "pow": true, "sqrt": true, "symlog": true,
	"time": true, "utc": true, "band": true, "point": true, "ordinal": true,
}

// Build walks spec and returns its dependency graph (spec §4.D: a first
// pass adds one node per dataset/signal/scale/projection and per named
// non-group mark (and a facet node per faceting group mark), a second
// pass adds producer -> consumer edges derived from each node's
// expressions). A non-group mark without a name gets no node and no
// edges.
func Build(spec *ispec.ChartSpec) (*Graph, error) {
	g := newGraph()
	if err := addNodesForSpec(g, spec, variable.Scope{}); err != nil {
		return nil, err
	}
	if err := addEdgesForSpec(g, spec, variable.Scope{}); err != nil {
		return nil, err
	}
	return g, nil
}

func addNodesForSpec(g *Graph, spec *ispec.ChartSpec, scope variable.Scope) error {
	if scope.Equal(variable.Scope{}) {
		sv := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Signal, Name: "width"}, Scope: scope}
		g.addNode(sv, widthHeightSupport(spec.Width, spec.Autosize, true))
		sv = variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Signal, Name: "height"}, Scope: scope}
		g.addNode(sv, widthHeightSupport(spec.Height, spec.Autosize, false))
	}

	for _, sig := range spec.Signals {
		sv := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Signal, Name: sig.Name}, Scope: scope}
		support, err := signalIntrinsicSupport(sig)
		if err != nil {
			return err
		}
		g.addNode(sv, support)
	}

	for _, d := range spec.Data {
		sv := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Data, Name: d.Name}, Scope: scope}
		g.addNode(sv, dataIntrinsicSupport(d))
	}

	for _, sc := range spec.Scales {
		sv := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Scale, Name: sc.Name}, Scope: scope}
		g.addNode(sv, scaleIntrinsicSupport(sc))
	}

	for _, p := range spec.Projections {
		sv := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Scale, Name: p.Name}, Scope: scope}
		g.addNode(sv, Unsupported)
	}

	for i, m := range spec.Marks {
		if err := addNodesForMark(g, m, scope, uint32(i)); err != nil {
			return err
		}
	}
	return nil
}

func widthHeightSupport(v *float64, autosize *ispec.AutosizeSpec, isWidth bool) Support {
	if v == nil {
		return Unsupported
	}
	if autosize != nil {
		if autosize.Type == ispec.AutosizeFit {
			return Unsupported
		}
		if isWidth && autosize.Type == ispec.AutosizeFitX {
			return Unsupported
		}
		if !isWidth && autosize.Type == ispec.AutosizeFitY {
			return Unsupported
		}
	}
	return Supported
}

func signalIntrinsicSupport(sig ispec.SignalSpec) (Support, error) {
	if sig.HasClientBinding() {
		return Mirrored, nil
	}
	expr := sig.Update
	if expr == "" {
		expr = sig.Init
	}
	if expr == "" {
		return Supported, nil
	}
	if _, err := parser.Parse(expr); err != nil {
		return Unsupported, nil
	}
	return Supported, nil
}

func dataIntrinsicSupport(d ispec.DataSpec) Support {
	if d.Mirrored() {
		return Mirrored
	}
	for _, t := range d.Transform {
		if !t.Supported() {
			return Unsupported
		}
		for _, e := range t.Expr {
			if _, err := parser.Parse(e); err != nil {
				return Unsupported
			}
		}
	}
	return Supported
}

func scaleIntrinsicSupport(sc ispec.ScaleSpec) Support {
	if !serverScaleTypes[sc.Type] {
		return Unsupported
	}
	if len(sc.DomainMid) > 0 {
		return Unsupported
	}
	return Supported
}

func addNodesForMark(g *Graph, m ispec.MarkSpec, scope variable.Scope, index uint32) error {
	if m.Type != ispec.GroupMarkType {
		if m.Name != "" {
			sv := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Data, Name: "mark:" + m.Name}, Scope: scope}
			g.addNode(sv, Unsupported)
		}
		return nil
	}

	childScope := scope.Child(index)
	if m.From != nil && m.From.Facet != nil {
		sv := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Data, Name: m.From.Facet.Name}, Scope: childScope}
		g.addNode(sv, Mirrored)
		return nil // facet groups and their descendants are always Unsupported/skipped (spec §4.D)
	}

	sub := &ispec.ChartSpec{Signals: nil, Data: nil, Scales: nil, Marks: m.Marks}
	return addNodesForSpec(g, sub, childScope)
}

// addEdgesForSpec walks the same structure as addNodesForSpec, adding a
// producer -> consumer edge from every free variable an expression
// references to the node that expression belongs to.
func addEdgesForSpec(g *Graph, spec *ispec.ChartSpec, scope variable.Scope) error {
	for _, sig := range spec.Signals {
		to := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Signal, Name: sig.Name}, Scope: scope}
		expr := sig.Update
		if expr == "" {
			expr = sig.Init
		}
		addEdgesFromExpr(g, expr, to, scope)
		for _, on := range sig.On {
			addEdgesFromExpr(g, on.Update, to, scope)
		}
	}

	for _, d := range spec.Data {
		to := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Data, Name: d.Name}, Scope: scope}
		if d.Source != "" {
			g.addEdge(resolveInScope(g, variable.Variable{Namespace: variable.Data, Name: d.Source}, scope), to)
		}
		for _, t := range d.Transform {
			for _, e := range t.Expr {
				addEdgesFromExpr(g, e, to, scope)
			}
		}
		for _, on := range d.On {
			addEdgesFromExpr(g, on.Update, to, scope)
		}
	}

	for _, sc := range spec.Scales {
		to := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Scale, Name: sc.Name}, Scope: scope}
		for _, raw := range []json.RawMessage{sc.Domain, sc.Range} {
			var ref struct {
				Data   string `json:"data"`
				Signal string `json:"signal"`
			}
			if json.Unmarshal(raw, &ref) != nil {
				continue
			}
			if ref.Data != "" {
				g.addEdge(resolveInScope(g, variable.Variable{Namespace: variable.Data, Name: ref.Data}, scope), to)
			}
			addEdgesFromExpr(g, ref.Signal, to, scope)
		}
	}

	for i, m := range spec.Marks {
		addEdgesForMark(g, m, scope, uint32(i))
	}
	return nil
}

func addEdgesForMark(g *Graph, m ispec.MarkSpec, scope variable.Scope, index uint32) {
	if m.Type != ispec.GroupMarkType {
		if m.Name == "" {
			return
		}
		to := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Data, Name: "mark:" + m.Name}, Scope: scope}
		if m.From != nil && m.From.Data != "" {
			g.addEdge(resolveInScope(g, variable.Variable{Namespace: variable.Data, Name: m.From.Data}, scope), to)
		}
		for _, channels := range m.Encode {
			for _, ch := range channels {
				if ch.Scale != "" {
					g.addEdge(resolveInScope(g, variable.Variable{Namespace: variable.Scale, Name: ch.Scale}, scope), to)
				}
				if ch.Signal != "" {
					g.addEdge(resolveInScope(g, variable.Variable{Namespace: variable.Signal, Name: ch.Signal}, scope), to)
				}
			}
		}
		return
	}

	childScope := scope.Child(index)
	if m.From != nil && m.From.Facet != nil {
		to := variable.ScopedVariable{Var: variable.Variable{Namespace: variable.Data, Name: m.From.Facet.Name}, Scope: childScope}
		g.addEdge(resolveInScope(g, variable.Variable{Namespace: variable.Data, Name: m.From.Facet.Data}, scope), to)
		return
	}

	sub := &ispec.ChartSpec{Marks: m.Marks}
	_ = addEdgesForSpec(g, sub, childScope)
}

// resolveInScope finds the nearest enclosing scope (walking from scope
// up to root) that actually defines v, matching lexical-scoping lookup
// for free variables (spec §3 "Scope is the chain of enclosing group
// mark indices"). Falls back to the given scope if never found, so an
// edge to an absent node is simply ignored by addEdge.
func resolveInScope(g *Graph, v variable.Variable, scope variable.Scope) variable.ScopedVariable {
	for s := scope; ; {
		sv := variable.ScopedVariable{Var: v, Scope: s}
		if _, ok := g.nodes[sv.Key()]; ok {
			return sv
		}
		parent, ok := s.Parent()
		if !ok {
			return variable.ScopedVariable{Var: v, Scope: scope}
		}
		s = parent
	}
}

func addEdgesFromExpr(g *Graph, src string, to variable.ScopedVariable, scope variable.Scope) {
	if src == "" {
		return
	}
	e, err := parser.Parse(src)
	if err != nil {
		return
	}
	for _, v := range ast.GetVariables(e) {
		g.addEdge(resolveInScope(g, v, scope), to)
	}
}

// Select runs the two-pass supported-variable selection algorithm
// (spec §4.D) and returns the final Support of every node, writing it
// back onto each Node's Final field as well.
//
// Pass 1 (topological order over non-Unsupported-intrinsic nodes):
// Mirrored nodes are accepted unconditionally; a Supported node is
// accepted as Supported iff every parent is accepted as
// Supported-or-Mirrored, else (data nodes only) it is accepted as
// PartiallySupported iff every data-typed parent is accepted as
// Supported-or-Mirrored, else it is dropped (Unsupported).
//
// Pass 2: every accepted data/scale node is kept; an accepted signal
// node is kept only if a depth-first walk from it reaches some
// accepted data or scale node (signals that feed nothing server-side
// evaluable stay client-only).
func (g *Graph) Select() map[string]Support {
	final := map[string]Support{}
	order := g.topoOrder()

	for _, k := range order {
		n := g.nodes[k]
		if n.Intrinsic == Unsupported {
			continue
		}
		if n.Intrinsic == Mirrored {
			final[k] = Mirrored
			continue
		}
		allParentsOK := true
		allDataParentsOK := true
		for _, pk := range g.parents[k] {
			pf, accepted := final[pk]
			ok := accepted && (pf == Supported || pf == Mirrored)
			if !ok {
				allParentsOK = false
			}
			if g.nodes[pk].Var.Var.Namespace == variable.Data {
				if !ok {
					allDataParentsOK = false
				}
			}
		}
		switch {
		case allParentsOK:
			final[k] = Supported
		case n.Var.Var.Namespace == variable.Data && allDataParentsOK:
			final[k] = PartiallySupported
		default:
			// leave unset: dropped from the final accepted set
		}
	}

	kept := map[string]Support{}
	for k, s := range final {
		if g.nodes[k].Var.Var.Namespace != variable.Signal {
			kept[k] = s
		}
	}
	for k, s := range final {
		if g.nodes[k].Var.Var.Namespace != variable.Signal {
			continue
		}
		if g.reachesAcceptedDataOrScale(k, kept) {
			kept[k] = s
		}
	}

	for k, n := range g.nodes {
		if s, ok := kept[k]; ok {
			n.Final = s
		} else {
			n.Final = Unsupported
		}
	}
	return kept
}

func (g *Graph) reachesAcceptedDataOrScale(start string, kept map[string]Support) bool {
	visited := map[string]bool{}
	var dfs func(k string) bool
	dfs = func(k string) bool {
		if visited[k] {
			return false
		}
		visited[k] = true
		for _, c := range g.children[k] {
			ns := g.nodes[c].Var.Var.Namespace
			if (ns == variable.Data || ns == variable.Scale) {
				if _, ok := kept[c]; ok {
					return true
				}
			}
			if dfs(c) {
				return true
			}
		}
		return false
	}
	return dfs(start)
}

// topoOrder returns node keys in a Kahn's-algorithm topological order
// (stdlib implementation; no third-party graph library exists anywhere
// in the retrieved dependency pack — see DESIGN.md). Nodes within a
// cycle (which a well-formed chart spec should never produce) are
// appended afterward in insertion order so Select still terminates.
func (g *Graph) topoOrder() []string {
	indeg := map[string]int{}
	for _, k := range g.order {
		indeg[k] = 0
	}
	for _, k := range g.order {
		for range g.parents[k] {
			indeg[k]++
		}
	}

	var ready []string
	for _, k := range g.order {
		if indeg[k] == 0 {
			ready = append(ready, k)
		}
	}
	sort.Strings(ready)

	var out []string
	visited := map[string]bool{}
	for len(ready) > 0 {
		k := ready[0]
		ready = ready[1:]
		if visited[k] {
			continue
		}
		visited[k] = true
		out = append(out, k)
		var next []string
		for _, c := range g.children[k] {
			indeg[c]--
			if indeg[c] == 0 {
				next = append(next, c)
			}
		}
		sort.Strings(next)
		ready = append(ready, next...)
		sort.Strings(ready)
	}

	for _, k := range g.order {
		if !visited[k] {
			out = append(out, k)
		}
	}
	return out
}
