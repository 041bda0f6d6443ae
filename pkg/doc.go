// Package pkg provides the core libraries for exprtrail rewrite-trace
// visualization.
//
// # Overview
//
// exprtrail turns the rewrite trace of a typed expression graph into a
// sequence of node-link diagrams. Each step shows the subgraph reachable from
// that step's root, and every node keeps its rendering identifier for as long
// as it stays on screen, so a front end can animate shared structure from one
// rewrite to the next.
//
// # Architecture
//
// The typical data flow through exprtrail:
//
//	typez document (JSON)
//	         ↓
//	    [typez] package (decode + validate)
//	         ↓
//	    [reach] package (subgraph reachable from the step root)
//	         ↓
//	    [reconcile] package (stable rendering identifiers)
//	         ↓
//	    [render] / [render/nodelink] (sets, diffs, DOT/SVG/PNG)
//	         ↓
//	    [pipeline] (every step, cached) or [player] (interactive window)
//
// # Quick Start
//
// Reconcile the steps of a document in display order:
//
//	doc, _ := typez.ReadFile("trace.json")
//
//	var chain reconcile.Chain
//	for _, step := range doc.Steps() {
//	    state, err := chain.Advance(doc.Nodes, step.Node)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(step.Title(), state.Elements().NodeIDs())
//	}
//
// Render every step with caching:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	result, _ := runner.Execute(ctx, doc, pipeline.Options{Formats: []string{"svg"}})
//
// # Main Packages
//
// [typez] - The document model: typed definitions, call and primitive nodes,
// and the ordered root selections that make up a trace.
//
// [reach] - Resolution of the subgraph reachable from one root, with parent
// links and a deterministic topological order.
//
// [reconcile] - Identifier reconciliation between consecutive displays. A node
// keeps its previous identifier, else inherits the one its position held,
// else gets a fresh one from a counter that never runs backwards.
//
// [render] - Rendering sets (nodes and slot-labelled edges), diffs between
// sets, and the Cytoscape-style JSON encoding.
//
// [render/nodelink] - Graphviz DOT output and in-process SVG/PNG rendering.
//
// [pipeline] - Batch execution over a whole trace with concurrent rendering
// and an artifact cache, shared by the CLI and the HTTP server.
//
// [player] - An interactive, optionally debounced display window.
//
// ## Infrastructure
//
// [cache] - Artifact caches (file, Redis, none) and cache key derivation.
//
// [store] - Document stores (memory, MongoDB) for the HTTP server.
//
// [observability] - Hooks for reconciliation, cache and HTTP events, with a
// Prometheus implementation.
//
// [errors] - Error codes shared by every package.
//
// [buildinfo] - Version information set at link time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/reconcile/...          # Specific package
//	go test -run Example ./pkg/...       # Examples only
//	go test -short ./...                 # Skip Graphviz rendering
//
// MongoDB tests run only when EXPRTRAIL_MONGO_URI is set.
//
// [typez]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/typez
// [reach]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/reach
// [reconcile]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/reconcile
// [render]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/render
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/render/nodelink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/pipeline
// [player]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/player
// [cache]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/store
// [observability]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/exprtrail/pkg/buildinfo
package pkg
