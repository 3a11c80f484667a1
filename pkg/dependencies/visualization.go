package dependencies

// CytoscapeNode represents a node in Cytoscape.js format
type CytoscapeNode struct {
	Data CytoscapeNodeData `json:"data"`
}

// CytoscapeNodeData contains node data for Cytoscape.js
type CytoscapeNodeData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"` // plugin type, e.g. "protocol"
}

// CytoscapeEdge represents an edge in Cytoscape.js format
type CytoscapeEdge struct {
	Data CytoscapeEdgeData `json:"data"`
}

// CytoscapeEdgeData contains edge data for Cytoscape.js
type CytoscapeEdgeData struct {
	ID     string `json:"id"`
	Source string `json:"source"` // dependent
	Target string `json:"target"` // dependency
}

// CytoscapeGraph represents the complete graph in Cytoscape.js format
type CytoscapeGraph struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

// NodeLabeler resolves display name and type for a plugin id.
type NodeLabeler func(id string) (name, kind string)

// Cytoscape converts the live graph to Cytoscape.js format. label may be nil,
// in which case the id doubles as the name.
func (g *Graph) Cytoscape(label NodeLabeler) CytoscapeGraph {
	out := CytoscapeGraph{
		Nodes: make([]CytoscapeNode, 0),
		Edges: make([]CytoscapeEdge, 0),
	}

	for _, id := range g.Nodes() {
		name, kind := id, ""
		if label != nil {
			name, kind = label(id)
		}
		out.Nodes = append(out.Nodes, CytoscapeNode{
			Data: CytoscapeNodeData{ID: id, Name: name, Type: kind},
		})

		for _, dep := range g.dependencies[id] {
			out.Edges = append(out.Edges, CytoscapeEdge{
				Data: CytoscapeEdgeData{
					ID:     id + "->" + dep,
					Source: id,
					Target: dep,
				},
			})
		}
	}

	return out
}
