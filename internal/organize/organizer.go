package organize

import (
	"context"
	"log/slog"
	"path"

	"github.com/starford/sefs/internal/models"
	"github.com/starford/sefs/internal/storage"
)

// ErrDestinationExists is returned when a different file already occupies the target.
var ErrDestinationExists = storage.ErrDestinationExists

// Move is one planned relocation.
type Move struct {
	File   models.ManagedFile
	Folder string
}

// Report summarises one Apply run.
type Report struct {
	Placements []models.Placement
	Moved      int
	Skipped    int
	Failed     int
}

// Organizer relocates files into <root>/<folder>/<basename>.
type Organizer struct {
	fs storage.Provider
}

// NewOrganizer returns an Organizer backed by fs.
func NewOrganizer(fs storage.Provider) *Organizer {
	return &Organizer{fs: fs}
}

// Target returns the relative destination of a file in folder.
func Target(folder, name string) string {
	return path.Join(folder, name)
}

// Apply performs moves sequentially. A file already at its target is skipped.
// Failures are recorded per placement and never abort the run; a failed file
// keeps its prior location. Once started, Apply ignores cancellation so the
// tree is never left half-organised by a shutdown.
func (o *Organizer) Apply(_ context.Context, moves []Move) Report {
	var r Report
	for _, m := range moves {
		p := models.Placement{
			Name:   m.File.Name,
			Rel:    m.File.Rel,
			Folder: m.Folder,
			Text:   m.File.Text,
		}
		dst := Target(m.Folder, m.File.Name)
		switch {
		case dst == m.File.Rel:
			r.Skipped++
		default:
			if err := o.fs.Move(m.File.Rel, dst); err != nil {
				slog.Warn("organizer: move failed",
					slog.String("file", m.File.Rel),
					slog.String("target", dst),
					slog.String("error", err.Error()))
				p.Err = err
				r.Failed++
			} else {
				p.Rel = dst
				p.Moved = true
				r.Moved++
			}
		}
		r.Placements = append(r.Placements, p)
	}
	return r
}
