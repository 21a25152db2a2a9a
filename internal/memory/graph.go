package memory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	// ErrSelfLoop is returned when an edge would point a vertex at itself
	ErrSelfLoop = errors.New("source and destination vertex are the same")
	// ErrMissingVertex is returned when an edge endpoint was never added
	ErrMissingVertex = errors.New("missing vertex")
)

// Vertex is one discovered domain and the domains it links to and from.
// incoming is only a lookup relation used for the in-degree; the graph owns
// every vertex through its shard maps.
type Vertex struct {
	mu       sync.Mutex
	domain   string
	outgoing []*Vertex
	incoming []*Vertex
}

// Domain returns the vertex's domain name
func (v *Vertex) Domain() string {
	return v.domain
}

// Degree returns the in and out degree of the vertex
func (v *Vertex) Degree() (in, out int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.incoming), len(v.outgoing)
}

// Outgoing returns the domains this vertex links to, in insertion order
func (v *Vertex) Outgoing() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	domains := make([]string, len(v.outgoing))
	for i, dst := range v.outgoing {
		domains[i] = dst.domain
	}
	return domains
}

func (v *Vertex) addOutgoing(dst *Vertex) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.outgoing = append(v.outgoing, dst)
}

func (v *Vertex) addIncoming(src *Vertex) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.incoming = append(v.incoming, src)
}

type graphShard struct {
	mu       sync.Mutex
	vertices map[string]*Vertex
}

// Graph is a directed domain graph sharded by a hash of the domain name.
// Every operation on a single domain takes exactly one shard lock.
type Graph struct {
	shards []*graphShard
}

// NewGraph creates an empty graph split into numShards shards
func NewGraph(numShards int) *Graph {
	numShards = normalizeShards(numShards)

	g := &Graph{shards: make([]*graphShard, numShards)}
	for i := range g.shards {
		g.shards[i] = &graphShard{vertices: make(map[string]*Vertex)}
	}
	return g
}

func (g *Graph) shard(domain string) *graphShard {
	return g.shards[shardIndex(domain, len(g.shards))]
}

// AddVertex creates a vertex for domain if it does not exist yet.
// It reports whether a vertex was created; an existing vertex is never replaced.
func (g *Graph) AddVertex(domain string) bool {
	s := g.shard(domain)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vertices[domain]; exists {
		return false
	}
	s.vertices[domain] = &Vertex{domain: domain}
	return true
}

// Vertex returns the vertex for domain, or nil
func (g *Graph) Vertex(domain string) *Vertex {
	s := g.shard(domain)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vertices[domain]
}

// AddEdge records a directed edge src -> dst.
// Both endpoints are resolved before either edge list is touched, so a
// failed call leaves the graph unchanged.
func (g *Graph) AddEdge(src, dst string) error {
	if src == dst {
		return ErrSelfLoop
	}

	from := g.Vertex(src)
	if from == nil {
		return fmt.Errorf("%w: source %s", ErrMissingVertex, src)
	}
	to := g.Vertex(dst)
	if to == nil {
		return fmt.Errorf("%w: destination %s", ErrMissingVertex, dst)
	}

	from.addOutgoing(to)
	to.addIncoming(from)
	return nil
}

// Contains reports whether a vertex exists for domain
func (g *Graph) Contains(domain string) bool {
	return g.Vertex(domain) != nil
}

// Size returns the number of vertices, locking one shard at a time
func (g *Graph) Size() int {
	size := 0
	for _, s := range g.shards {
		s.mu.Lock()
		size += len(s.vertices)
		s.mu.Unlock()
	}
	return size
}

// ShardCount returns the fixed number of shards
func (g *Graph) ShardCount() int {
	return len(g.shards)
}

// snapshot copies the vertex pointers of one shard
func (s *graphShard) snapshot() []*Vertex {
	s.mu.Lock()
	defer s.mu.Unlock()

	vertices := make([]*Vertex, 0, len(s.vertices))
	for _, v := range s.vertices {
		vertices = append(vertices, v)
	}
	return vertices
}

// Walk calls fn for every vertex, shard by shard
func (g *Graph) Walk(fn func(v *Vertex)) {
	for _, s := range g.shards {
		for _, v := range s.snapshot() {
			fn(v)
		}
	}
}

// EdgeCount returns the total number of edges
func (g *Graph) EdgeCount() int {
	edges := 0
	g.Walk(func(v *Vertex) {
		_, out := v.Degree()
		edges += out
	})
	return edges
}

// Serialize writes one line per vertex: "<domain> (in <n>, out <m>)".
// Shards are written in index order; order within a shard is unspecified.
func (g *Graph) Serialize(w io.Writer) error {
	bw := bufio.NewWriter(w)

	var writeErr error
	g.Walk(func(v *Vertex) {
		if writeErr != nil {
			return
		}
		in, out := v.Degree()
		_, writeErr = fmt.Fprintf(bw, "%s (in %d, out %d)\n", v.domain, in, out)
	})
	if writeErr != nil {
		return fmt.Errorf("failed to serialize graph: %w", writeErr)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to serialize graph: %w", err)
	}
	return nil
}
