// Package graph builds and stores the root → folder → file artifact.
package graph

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starford/sefs/internal/models"
	"github.com/starford/sefs/internal/storage"
	"github.com/starford/sefs/internal/summary"
)

// Builder renders placements into a Graph.
type Builder struct {
	fs            storage.Provider
	exposeSecrets bool
}

// NewBuilder returns a Builder reading file metadata from fs. When
// exposeSecrets is set, locked file nodes carry their secret.
func NewBuilder(fs storage.Provider, exposeSecrets bool) *Builder {
	return &Builder{fs: fs, exposeSecrets: exposeSecrets}
}

// Build emits one root, one node per folder (sorted) and one node per
// placement. Lock state comes only from locks, keyed by basename. File
// metadata is read at each placement's current location.
func (b *Builder) Build(cycleID string, placements []models.Placement, locks map[string]string) *models.Graph {
	g := &models.Graph{
		CycleID:     cycleID,
		GeneratedAt: time.Now().UTC(),
	}
	g.Nodes = append(g.Nodes, models.Node{Data: models.NodeData{
		ID:    models.RootID,
		Label: models.RootLabel,
		Type:  models.NodeRoot,
		Color: models.ColorRoot,
	}})

	seen := make(map[string]struct{})
	var folders []string
	for _, p := range placements {
		if _, ok := seen[p.Folder]; !ok {
			seen[p.Folder] = struct{}{}
			folders = append(folders, p.Folder)
		}
	}
	sort.Strings(folders)
	for _, f := range folders {
		g.Nodes = append(g.Nodes, models.Node{Data: models.NodeData{
			ID:    f,
			Label: f,
			Type:  models.NodeFolder,
			Color: models.ColorFolder,
		}})
		g.Edges = append(g.Edges, models.Edge{Data: models.EdgeData{Source: models.RootID, Target: f}})
	}

	for _, p := range placements {
		g.Nodes = append(g.Nodes, models.Node{Data: b.fileNode(p, locks)})
		g.Edges = append(g.Edges, models.Edge{Data: models.EdgeData{Source: p.Folder, Target: p.Name}})
	}
	return g
}

func (b *Builder) fileNode(p models.Placement, locks map[string]string) models.NodeData {
	secret, locked := locks[p.Name]
	n := models.NodeData{
		ID:      p.Name,
		Label:   FileLabel(p.Name, locked),
		Type:    models.NodeFile,
		Color:   models.ColorUnlocked,
		Locked:  locked,
		Summary: summary.ForGraph(summary.Summarize(p.Text)),
	}
	if locked {
		n.Color = models.ColorLocked
		if b.exposeSecrets {
			n.Secret = secret
		}
	}

	meta, err := b.fs.Stat(p.Rel)
	if err != nil {
		slog.Warn("graph: stat failed", slog.String("file", p.Rel), slog.String("error", err.Error()))
		if abs, absErr := b.fs.Abs(p.Rel); absErr == nil {
			n.Path = abs
		}
		return n
	}
	created := meta.CreatedAt.UTC()
	n.Created = &created
	n.Path = meta.Path
	return n
}

// FileLabel renders "[EXT] name", prefixed with the lock glyph when locked.
func FileLabel(name string, locked bool) string {
	ext := "FILE"
	if i := strings.LastIndexByte(name, '.'); i > 0 && i < len(name)-1 {
		ext = strings.ToUpper(name[i+1:])
	}
	label := fmt.Sprintf("[%s] %s", ext, name)
	if locked {
		return models.LockGlyph + label
	}
	return label
}
