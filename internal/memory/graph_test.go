package memory

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
)

type GraphSuite struct {
	suite.Suite
	graph *Graph
}

func TestGraphSuite(t *testing.T) {
	suite.Run(t, new(GraphSuite))
}

func (s *GraphSuite) SetupTest() {
	s.graph = NewGraph(10)
}

func (s *GraphSuite) TestSize() {
	s.Run("empty graph", func() {
		for _, shards := range []int{1, 10, 128} {
			s.Equal(0, NewGraph(shards).Size())
		}
	})

	s.Run("size independent of shard count", func() {
		for _, shards := range []int{1, 3, 10, 500} {
			g := NewGraph(shards)
			for i := 0; i < 10; i++ {
				g.AddVertex(fmt.Sprintf("%d val", i))
			}
			s.Equal(10, g.Size(), "shards=%d", shards)
		}
	})
}

func (s *GraphSuite) TestAddVertex() {
	s.False(s.graph.Contains("github.com"))

	s.True(s.graph.AddVertex("github.com"))
	s.True(s.graph.Contains("github.com"))
	s.Equal(1, s.graph.Size())

	s.Run("existing vertex is kept", func() {
		s.Require().True(s.graph.AddVertex("google.com"))
		s.Require().NoError(s.graph.AddEdge("github.com", "google.com"))
		before := s.graph.Vertex("github.com")

		s.False(s.graph.AddVertex("github.com"))
		s.Same(before, s.graph.Vertex("github.com"))
		s.Equal([]string{"google.com"}, s.graph.Vertex("github.com").Outgoing())
	})
}

func (s *GraphSuite) TestAddEdge() {
	s.graph.AddVertex("github.com")
	s.graph.AddVertex("google.com")

	s.Require().NoError(s.graph.AddEdge("github.com", "google.com"))

	in, out := s.graph.Vertex("github.com").Degree()
	s.Equal(0, in)
	s.Equal(1, out)

	in, out = s.graph.Vertex("google.com").Degree()
	s.Equal(1, in)
	s.Equal(0, out)

	s.Equal(1, s.graph.EdgeCount())
}

func (s *GraphSuite) TestAddEdgeMutualLinks() {
	s.graph.AddVertex("a.com")
	s.graph.AddVertex("b.com")

	s.Require().NoError(s.graph.AddEdge("a.com", "b.com"))
	s.Require().NoError(s.graph.AddEdge("b.com", "a.com"))

	for _, d := range []string{"a.com", "b.com"} {
		in, out := s.graph.Vertex(d).Degree()
		s.Equal(1, in, d)
		s.Equal(1, out, d)
	}
}

func (s *GraphSuite) TestAddEdgeSelfLoop() {
	s.Run("absent vertex", func() {
		s.ErrorIs(s.graph.AddEdge("github.com", "github.com"), ErrSelfLoop)
	})

	s.Run("present vertex", func() {
		s.graph.AddVertex("github.com")
		s.ErrorIs(s.graph.AddEdge("github.com", "github.com"), ErrSelfLoop)

		in, out := s.graph.Vertex("github.com").Degree()
		s.Equal(0, in)
		s.Equal(0, out)
	})
}

func (s *GraphSuite) TestAddEdgeMissingVertex() {
	s.graph.AddVertex("github.com")

	s.Run("missing destination", func() {
		s.ErrorIs(s.graph.AddEdge("github.com", "stackoverflow.com"), ErrMissingVertex)
	})

	s.Run("missing source", func() {
		s.ErrorIs(s.graph.AddEdge("stackoverflow.com", "github.com"), ErrMissingVertex)
	})

	s.Run("no partial mutation", func() {
		in, out := s.graph.Vertex("github.com").Degree()
		s.Equal(0, in)
		s.Equal(0, out)
		s.False(s.graph.Contains("stackoverflow.com"))
	})
}

func (s *GraphSuite) TestSerialize() {
	s.graph.AddVertex("github.com")
	s.graph.AddVertex("google.com")
	s.graph.AddVertex("rust-lang.org")
	s.Require().NoError(s.graph.AddEdge("github.com", "google.com"))
	s.Require().NoError(s.graph.AddEdge("github.com", "rust-lang.org"))
	s.Require().NoError(s.graph.AddEdge("rust-lang.org", "google.com"))

	var buf bytes.Buffer
	s.Require().NoError(s.graph.Serialize(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	sort.Strings(lines)
	s.Equal([]string{
		"github.com (in 0, out 2)",
		"google.com (in 2, out 0)",
		"rust-lang.org (in 1, out 1)",
	}, lines)
}

func (s *GraphSuite) TestSerializeEmpty() {
	var buf bytes.Buffer
	s.Require().NoError(s.graph.Serialize(&buf))
	s.Empty(buf.String())
}

func (s *GraphSuite) TestConcurrentAddVertexSingleWinner() {
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.graph.AddVertex("github.com") {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(1, s.graph.Size())
}

func (s *GraphSuite) TestConcurrentEdges() {
	const spokes = 200
	s.graph.AddVertex("hub.com")
	for i := 0; i < spokes; i++ {
		s.graph.AddVertex(fmt.Sprintf("spoke%d.com", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < spokes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			spoke := fmt.Sprintf("spoke%d.com", i)
			s.NoError(s.graph.AddEdge("hub.com", spoke))
			s.NoError(s.graph.AddEdge(spoke, "hub.com"))
		}(i)
	}
	wg.Wait()

	in, out := s.graph.Vertex("hub.com").Degree()
	s.Equal(spokes, in)
	s.Equal(spokes, out)
	s.Equal(2*spokes, s.graph.EdgeCount())
}

func (s *GraphSuite) TestWalkVisitsEveryVertex() {
	for i := 0; i < 50; i++ {
		s.graph.AddVertex(fmt.Sprintf("d%d.com", i))
	}

	seen := make(map[string]bool)
	s.graph.Walk(func(v *Vertex) {
		seen[v.Domain()] = true
	})
	s.Len(seen, 50)
}

func (s *GraphSuite) TestNormalizesShards() {
	s.Equal(1, NewGraph(0).ShardCount())
	s.Equal(1, NewGraph(-2).ShardCount())
	s.Equal(64, NewGraph(64).ShardCount())
}
