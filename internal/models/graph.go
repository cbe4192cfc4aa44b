package models

import "time"

// Node types.
const (
	NodeRoot   = "root"
	NodeFolder = "folder"
	NodeFile   = "file"
)

// RootID is the fixed id of the root node.
const RootID = "root"

// Visual encoding of the artifact.
const (
	ColorRoot     = "#FF5733"
	ColorFolder   = "#33C1FF"
	ColorLocked   = "#FF3333"
	ColorUnlocked = "#75FF33"

	RootLabel  = "ROOT_SYSTEM"
	LockGlyph  = "🔒 "
	Unassigned = "Uncategorized"
)

// Graph is the emitted artifact: one root, one node per folder, one node per file,
// with root→folder and folder→file edges. It is replaced wholesale every cycle.
type Graph struct {
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	CycleID     string    `json:"cycle_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Node wraps NodeData in the Cytoscape element shape the UI consumes.
type Node struct {
	Data NodeData `json:"data"`
}

// NodeData carries the attributes of a node. File-only fields other than Locked are omitted for
// root and folder nodes.
type NodeData struct {
	ID      string     `json:"id"`
	Label   string     `json:"label"`
	Type    string     `json:"type"`
	Color   string     `json:"color"`
	Locked  bool       `json:"locked"`
	Secret  string     `json:"password,omitempty"`
	Summary string     `json:"summary,omitempty"`
	Created *time.Time `json:"created,omitempty"`
	Path    string     `json:"path,omitempty"`
}

// Edge wraps EdgeData in the Cytoscape element shape.
type Edge struct {
	Data EdgeData `json:"data"`
}

// EdgeData is a directed edge between two node ids.
type EdgeData struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// FileNode returns the file node with the given id, or nil.
func (g *Graph) FileNode(id string) *NodeData {
	for i := range g.Nodes {
		if g.Nodes[i].Data.Type == NodeFile && g.Nodes[i].Data.ID == id {
			return &g.Nodes[i].Data
		}
	}
	return nil
}

// CountType returns the number of nodes of the given type.
func (g *Graph) CountType(typ string) int {
	n := 0
	for _, node := range g.Nodes {
		if node.Data.Type == typ {
			n++
		}
	}
	return n
}
