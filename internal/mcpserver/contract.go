package mcpserver

// GraphFormatContract describes the graph returned by fetch_graph and served
// at /api/graph.
const GraphFormatContract = `# SEFS Graph Format

The graph is a JSON document rebuilt after every completed organize cycle.
Each cycle replaces it wholesale; there are no partial updates.

## Shape

` + "```" + `json
{
  "nodes": [
    {"data": {"id": "root", "label": "ROOT_SYSTEM", "type": "root", "color": "#FF5733", "locked": false}},
    {"data": {"id": "ROCKET_LAUNCH", "label": "ROCKET_LAUNCH", "type": "folder", "color": "#33C1FF", "locked": false}},
    {"data": {"id": "report.pdf", "label": "🔒 [PDF] report.pdf", "type": "file",
              "color": "#FF3333", "locked": true, "summary": "...",
              "path": "/abs/root/ROCKET_LAUNCH/report.pdf", "created": "2025-01-20T10:00:00Z"}}
  ],
  "edges": [
    {"data": {"source": "root", "target": "ROCKET_LAUNCH"}},
    {"data": {"source": "ROCKET_LAUNCH", "target": "report.pdf"}}
  ],
  "cycle_id": "6f1c...",
  "generated_at": "2025-01-20T10:00:05Z"
}
` + "```" + `

## Rules

1. Exactly one node of type ` + "`" + `root` + "`" + ` with id ` + "`" + `root` + "`" + `.
2. One ` + "`" + `folder` + "`" + ` node per semantic folder. Its id is the folder name. Files that
   matched no group live in ` + "`" + `Uncategorized` + "`" + `.
3. One ` + "`" + `file` + "`" + ` node per organized file. Its id is the basename, which is
   unique across the managed root.
4. Edges run root → folder and folder → file only.
5. ` + "`" + `locked` + "`" + ` is always present on file nodes. Locked files are red and their
   label starts with the lock glyph; unlocked files are green.
6. ` + "`" + `summary` + "`" + ` is at most 400 characters of extracted text.
7. Secrets are never included unless the server was configured to expose them.

## Related tools

- ` + "`" + `lock_file` + "`" + ` / ` + "`" + `unlock_file` + "`" + ` change lock state and return after the graph is rebuilt.
- ` + "`" + `open_file` + "`" + ` resolves a basename to its current location.
- ` + "`" + `import_file` + "`" + ` adds a document; it appears after the next cycle.
`
