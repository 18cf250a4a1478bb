package task

// Node is one task bound into a graph: its Task plus the parent Nodes
// whose Results it consumes, in argument order.
type Node struct {
	Task    Task
	Parents []*Node

	fingerprint string
}

// NewNode builds a graph node. Parent order matters: Eval receives
// parent Results in the same order.
func NewNode(t Task, parents ...*Node) *Node {
	return &Node{Task: t, Parents: parents}
}

// Fingerprint returns this node's combined state_fingerprint (spec
// §4.H), computing and caching it on first call.
func (n *Node) Fingerprint() string {
	if n.fingerprint != "" {
		return n.fingerprint
	}
	parentFps := make([]string, len(n.Parents))
	for i, p := range n.Parents {
		parentFps[i] = p.Fingerprint()
	}
	n.fingerprint = combineFingerprints(n.Task.Fingerprint(), parentFps)
	return n.fingerprint
}

// Graph is a flat registry of every node reachable from a set of
// roots, kept so callers (the runtime's query_request-equivalent) can
// resolve several output nodes against one shared cache.
type Graph struct {
	Nodes []*Node
}

// NewGraph wraps the given nodes (already wired to their parents) into
// a Graph. Nodes need not be topologically sorted — the runtime
// resolves dependencies recursively.
func NewGraph(nodes ...*Node) *Graph {
	return &Graph{Nodes: nodes}
}
