package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/sefs/internal/catalog"
	"github.com/starford/sefs/internal/models"
	"github.com/starford/sefs/internal/organize"
)

// execute runs one cycle. Cancellation is honoured until clustering finishes;
// moves and graph emission always run to completion once started.
func (o *Orchestrator) execute(ctx context.Context) (res Result, err error) {
	res = Result{ID: uuid.NewString(), StartedAt: time.Now()}
	defer func() {
		res.FinishedAt = time.Now()
		if err != nil {
			res.Error = err.Error()
			if res.Outcome == "" {
				res.Outcome = OutcomeFailed
			}
		}
	}()
	cancelled := func(cause error) (Result, error) {
		res.Outcome = OutcomeCancelled
		return res, cause
	}

	metas, err := o.deps.FS.List()
	if err != nil {
		return res, fmt.Errorf("pipeline: scan: %w", err)
	}
	metas = uniqueBasenames(metas)
	res.Scanned = len(metas)

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	files := o.embedAll(ctx, metas)
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	res.Embedded = len(files)

	if len(files) < 2 {
		res.Outcome = OutcomeIdle
		return res, nil
	}

	vectors := make([][]float32, len(files))
	texts := make([]string, len(files))
	for i, f := range files {
		vectors[i] = f.Vector
		texts[i] = f.Text
	}
	labels, err := o.deps.Clusterer.Cluster(ctx, vectors)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(ctxErr)
		}
		return res, fmt.Errorf("pipeline: cluster: %w", err)
	}
	if len(labels) != len(files) {
		return res, fmt.Errorf("pipeline: cluster: got %d labels for %d files", len(labels), len(files))
	}
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	names := organize.NameClusters(labels, texts)
	moves := make([]organize.Move, len(files))
	for i, f := range files {
		f.Label = labels[i]
		moves[i] = organize.Move{File: f, Folder: names[labels[i]]}
	}

	// Past this point the tree is being changed; finish even if ctx ends.
	report := o.organizer.Apply(context.WithoutCancel(ctx), moves)
	res.Moved = report.Moved
	res.MoveFailures = report.Failed
	res.Clusters = len(names)
	res.Mapping = mapping(report.Placements)

	locks := o.deps.Registry.Snapshot()
	g := o.deps.Builder.Build(res.ID, report.Placements, locks)
	if err := o.deps.Graphs.Replace(g); err != nil {
		return res, fmt.Errorf("pipeline: persist graph: %w", err)
	}
	o.catalogFiles(report.Placements, g, locks)

	res.Outcome = OutcomeCompleted
	return res, nil
}

// embedAll extracts and embeds files on a bounded pool. Per-file failures are
// logged and the file is left out. Order follows metas.
func (o *Orchestrator) embedAll(ctx context.Context, metas []models.FileMeta) []models.ManagedFile {
	slots := make([]*models.ManagedFile, len(metas))
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, m := range metas {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			f, ok := o.embedOne(ctx, m)
			if ok {
				slots[i] = &f
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.ManagedFile, 0, len(metas))
	for _, f := range slots {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

func (o *Orchestrator) embedOne(ctx context.Context, m models.FileMeta) (models.ManagedFile, bool) {
	text, err := o.deps.Extractor.Extract(ctx, m.Path)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("pipeline: extraction failed", slog.String("file", m.Rel), slog.String("error", err.Error()))
		}
		return models.ManagedFile{}, false
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < o.minTextLength {
		slog.Debug("pipeline: text too short", slog.String("file", m.Rel))
		return models.ManagedFile{}, false
	}
	vec, err := o.deps.Embedder.Embed(ctx, text)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("pipeline: embedding failed", slog.String("file", m.Rel), slog.String("error", err.Error()))
		}
		return models.ManagedFile{}, false
	}
	if vec == nil {
		slog.Debug("pipeline: no embedding", slog.String("file", m.Rel))
		return models.ManagedFile{}, false
	}
	return models.ManagedFile{FileMeta: m, Text: text, Vector: vec}, true
}

// uniqueBasenames keeps the first file (lexical path order) for each basename.
func uniqueBasenames(metas []models.FileMeta) []models.FileMeta {
	seen := make(map[string]string, len(metas))
	out := metas[:0:0]
	for _, m := range metas {
		if first, dup := seen[m.Name]; dup {
			slog.Warn("pipeline: duplicate basename skipped",
				slog.String("file", m.Rel), slog.String("kept", first))
			continue
		}
		seen[m.Name] = m.Rel
		out = append(out, m)
	}
	return out
}

func mapping(placements []models.Placement) map[string][]string {
	out := make(map[string][]string)
	for _, p := range placements {
		out[p.Folder] = append(out[p.Folder], p.Name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}

func (o *Orchestrator) catalogFiles(placements []models.Placement, g *models.Graph, locks map[string]string) {
	if o.catalog == nil {
		return
	}
	rows := make([]catalog.FileRow, 0, len(placements))
	for _, p := range placements {
		row := catalog.FileRow{Name: p.Name, Folder: p.Folder, Body: p.Text}
		if n := g.FileNode(p.Name); n != nil {
			row.Path = n.Path
			row.Summary = n.Summary
		}
		_, row.Locked = locks[p.Name]
		rows = append(rows, row)
	}
	if err := o.catalog.ReplaceFiles(rows); err != nil {
		slog.Warn("pipeline: catalog update failed", slog.String("error", err.Error()))
	}
}
