// Package orchestrator fans a resolved package graph out to concurrent
// build workers (spec.md's "concurrent work orchestrator"), bounded by
// Comaxproc and respecting dependency order: a package only starts once
// every package it imports has finished. Grounded on distri's
// internal/batch/batch.go scheduler (gonum DirectedGraph, errgroup worker
// pool, status-line redraw, CPU/mem trace sampling), generalized from
// distri's flat package-version graph to pkgindex's *Package import graph
// and from "run `distri build` as a subprocess" to an injected BuildFunc
// that drives the parse → type-check → codegen → compile → link pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/compis-build/compis/internal/coerr"
	"github.com/compis-build/compis/internal/pkgindex"
	"github.com/compis-build/compis/internal/trace"
)

type pkgNode struct {
	id  int64
	pkg *pkgindex.Package
}

func (n *pkgNode) ID() int64 { return n.id }

// Plan is a built, acyclic package import graph ready to schedule.
type Plan struct {
	g     *simple.DirectedGraph
	byPkg map[*pkgindex.Package]*pkgNode
	order []*pkgindex.Package // topological, deps before dependents
}

// NewPlan walks roots' already-resolved Imports (spec.md §3: populated
// after parse) and builds the import graph. Packages must already be
// cycle-free — pkgindex.BuildTransitive is expected to have rejected any
// cycle with a *pkgindex.CycleError before a Plan is ever built — but
// NewPlan double-checks via topo.Sort anyway, matching batch.go's own
// belt-and-suspenders Sort call, and fails hard rather than silently
// breaking the cycle the way distri's bootstrap path does.
func NewPlan(roots []*pkgindex.Package) (*Plan, error) {
	p := &Plan{
		g:     simple.NewDirectedGraph(),
		byPkg: make(map[*pkgindex.Package]*pkgNode),
	}

	var nextID int64
	var nodeFor func(pkg *pkgindex.Package) *pkgNode
	nodeFor = func(pkg *pkgindex.Package) *pkgNode {
		if n, ok := p.byPkg[pkg]; ok {
			return n
		}
		n := &pkgNode{id: nextID, pkg: pkg}
		nextID++
		p.byPkg[pkg] = n
		p.g.AddNode(n)
		return n
	}

	var visited = make(map[*pkgindex.Package]bool)
	var visit func(pkg *pkgindex.Package)
	visit = func(pkg *pkgindex.Package) {
		if visited[pkg] {
			return
		}
		visited[pkg] = true
		n := nodeFor(pkg)
		for _, dep := range pkg.Imports {
			d := nodeFor(dep)
			p.g.SetEdge(p.g.NewEdge(n, d))
			visit(dep)
		}
	}
	for _, root := range roots {
		visit(root)
	}

	sorted, err := topo.Sort(p.g)
	if err != nil {
		if uo, ok := err.(topo.Unorderable); ok {
			return nil, &CycleError{Components: uo}
		}
		return nil, coerr.Wrap("toposort package graph", err)
	}
	// topo.Sort orders "from" before "to"; From(n) are n's dependencies, so
	// this list is dependents-before-dependencies — reverse it so builds
	// run dependencies first.
	p.order = make([]*pkgindex.Package, len(sorted))
	for i, gn := range sorted {
		p.order[len(sorted)-1-i] = gn.(*pkgNode).pkg
	}
	return p, nil
}

// CycleError reports an import cycle discovered while planning the whole
// graph (NewPlan's defensive recheck; pkgindex.BuildTransitive is expected
// to have already caught this per-root, earlier and with a cleaner chain).
type CycleError struct {
	Components topo.Unorderable
}

func (e *CycleError) Error() string {
	var parts []string
	for _, component := range e.Components {
		var names []string
		for _, gn := range component {
			names = append(names, gn.(*pkgNode).pkg.ImportPath)
		}
		parts = append(parts, strings.Join(names, ", "))
	}
	return "import cycle(s) in package graph: " + strings.Join(parts, "; ")
}

// Order returns the plan's packages, dependencies before dependents.
func (p *Plan) Order() []*pkgindex.Package {
	return append([]*pkgindex.Package(nil), p.order...)
}

// BuildFunc performs one package's full build (parse, type-check, codegen,
// compile, link — orchestrated elsewhere via internal/frontend,
// internal/codegen, internal/toolchain), invoked only once every package
// it imports has already succeeded.
type BuildFunc func(ctx context.Context, pkg *pkgindex.Package) error

type buildResult struct {
	pkg *pkgindex.Package
	err error
}

// Options configures Run.
type Options struct {
	Workers int // degree of concurrency; <1 means 1
	Log     *log.Logger

	// OnStatus, if set, is called as each package transitions state
	// ("pending", "building", "done", "failed"), letting a caller feed
	// internal/buildsvc's Server.SetStatus (or any other status sink)
	// without orchestrator importing it directly.
	OnStatus func(pkg *pkgindex.Package, state string, err error)
}

// Run schedules every package in plan.Order() for build via fn, bounded by
// opts.Workers concurrent workers, a package becoming eligible only once
// every package it imports has a successful result — the concurrent
// counterpart to batch.go's scheduler.run, generalized from a flat
// package-version DAG to pkgindex's *Package import graph. Once all
// in-flight work drains, returns an error counting the failed packages
// ("N of M packages failed"); individual build errors are logged and
// passed to OnStatus, not returned. A
// package whose dependency failed is marked failed without ever running
// fn (batch.go's markFailed, generalized).
func Run(ctx context.Context, plan *Plan, opts Options, fn BuildFunc) error {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Log
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}

	s := &scheduler{
		plan:     plan,
		fn:       fn,
		log:      logger,
		workers:  workers,
		built:    make(map[*pkgindex.Package]error),
		status:   make([]string, workers+1),
		onStatus: opts.OnStatus,
	}
	return s.run(ctx)
}

type scheduler struct {
	plan    *Plan
	fn      BuildFunc
	log     *log.Logger
	workers int

	mu    sync.Mutex
	built map[*pkgindex.Package]error

	statusMu   sync.Mutex
	status     []string
	lastStatus time.Time

	onStatus func(pkg *pkgindex.Package, state string, err error)
}

func (s *scheduler) report(pkg *pkgindex.Package, state string, err error) {
	if s.onStatus != nil {
		s.onStatus(pkg, state, err)
	}
}

var isTerminal = func() bool {
	_, err := unix.IoctlGetTermios(int(os.Stdout.Fd()), unix.TCGETS)
	return err == nil
}()

func (s *scheduler) updateStatus(idx int, text string) {
	if !isTerminal {
		return
	}
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if diff := len(s.status[idx]) - len(text); diff > 0 {
		text += strings.Repeat(" ", diff)
	}
	s.status[idx] = text
	if time.Since(s.lastStatus) < 100*time.Millisecond {
		return
	}
	s.lastStatus = time.Now()
	for _, line := range s.status {
		fmt.Fprintln(os.Stdout, line)
	}
	fmt.Fprintf(os.Stdout, "\033[%dA", len(s.status))
}

func (s *scheduler) dependencies(pkg *pkgindex.Package) []*pkgindex.Package {
	n := s.plan.byPkg[pkg]
	var deps []*pkgindex.Package
	for it := s.plan.g.From(n.ID()); it.Next(); {
		deps = append(deps, it.Node().(*pkgNode).pkg)
	}
	return deps
}

func (s *scheduler) dependents(pkg *pkgindex.Package) []*pkgindex.Package {
	n := s.plan.byPkg[pkg]
	var deps []*pkgindex.Package
	for it := s.plan.g.To(n.ID()); it.Next(); {
		deps = append(deps, it.Node().(*pkgNode).pkg)
	}
	return deps
}

// canBuild reports whether every dependency of candidate has already
// succeeded (batch.go's canBuild, generalized).
func (s *scheduler) canBuild(candidate *pkgindex.Package) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dep := range s.dependencies(candidate) {
		if err, ok := s.built[dep]; !ok || err != nil {
			return false
		}
	}
	return true
}

// markFailed marks every transitive dependent of pkg as failed, matching
// batch.go's markFailed: a package whose dependency never succeeds can
// never itself be attempted.
func (s *scheduler) markFailed(pkg *pkgindex.Package) int {
	failed := 0
	for _, dependent := range s.dependents(pkg) {
		s.mu.Lock()
		_, already := s.built[dependent]
		s.mu.Unlock()
		if already {
			continue
		}
		depErr := xerrors.Errorf("dependency %s failed", pkg.ImportPath)
		s.mu.Lock()
		s.built[dependent] = depErr
		s.mu.Unlock()
		s.report(dependent, "failed", depErr)
		failed++
		failed += s.markFailed(dependent)
	}
	return failed
}

func (s *scheduler) run(ctx context.Context) error {
	numPkgs := len(s.plan.order)
	if numPkgs == 0 {
		return nil
	}
	work := make(chan *pkgindex.Package, numPkgs)
	done := make(chan buildResult)
	eg, ctx := errgroup.WithContext(ctx)

	const sampleFreq = 1 * time.Second
	go func() {
		if err := trace.CPUEvents(ctx, sampleFreq); err != nil && ctx.Err() == nil {
			s.log.Println(err)
		}
	}()
	go func() {
		if err := trace.MemEvents(ctx, sampleFreq); err != nil && ctx.Err() == nil {
			s.log.Println(err)
		}
	}()

	for i := 0; i < s.workers; i++ {
		i := i
		eg.Go(func() error {
			for pkg := range work {
				if err := ctx.Err(); err != nil {
					return err
				}
				ev := trace.Event("build "+pkg.ImportPath, i)
				ev.Type = "B"
				ev.Done()

				s.updateStatus(i+1, "building "+pkg.ImportPath)
				s.report(pkg, "building", nil)
				err := s.fn(ctx, pkg)

				select {
				case done <- buildResult{pkg: pkg, err: err}:
				case <-ctx.Done():
					return ctx.Err()
				}

				ev2 := trace.Event("build "+pkg.ImportPath, i)
				ev2.Type = "E"
				ev2.Done()
				s.updateStatus(i+1, "idle")
			}
			return nil
		})
	}

	// Seed the queue with every package that has no unbuilt dependency —
	// for a fresh graph, that's exactly the leaves (From(n).Len() == 0).
	for _, pkg := range s.plan.order {
		if len(s.dependencies(pkg)) == 0 {
			select {
			case work <- pkg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	go func() {
		defer close(work)
		succeeded, failed := 0, 0
		for {
			s.mu.Lock()
			builtCount := len(s.built)
			s.mu.Unlock()
			if builtCount >= numPkgs {
				return
			}
			select {
			case result := <-done:
				s.mu.Lock()
				s.built[result.pkg] = result.err
				s.mu.Unlock()
				s.updateStatus(0, fmt.Sprintf("%d of %d packages: %d built, %d failed", builtCount+1, numPkgs, succeeded, failed))

				if result.err == nil {
					succeeded++
					s.report(result.pkg, "done", nil)
					for _, dependent := range s.dependents(result.pkg) {
						if s.canBuild(dependent) {
							select {
							case work <- dependent:
							case <-ctx.Done():
								return
							}
						}
					}
				} else {
					s.log.Printf("build of %s failed: %v", result.pkg.ImportPath, result.err)
					s.report(result.pkg, "failed", result.err)
					failed += 1 + s.markFailed(result.pkg)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := eg.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var failed int
	for _, err := range s.built {
		if err != nil {
			failed++
		}
	}
	s.log.Printf("%d packages succeeded, %d failed, %d total", len(s.built)-failed, failed, len(s.built))
	if failed > 0 {
		return coerr.Wrap(fmt.Sprintf("%d of %d packages failed", failed, len(s.built)), errFailed)
	}
	return nil
}

var errFailed = xerrors.New("package build failed")

var _ graph.Node = (*pkgNode)(nil)
