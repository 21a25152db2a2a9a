package crawler

import (
	"github.com/alvmarrod/domain-weaver/internal/memory"
	"github.com/sirupsen/logrus"
)

// Reducer maps a raw link to its registrable domain
type Reducer interface {
	Reduce(rawLink string) (string, bool)
}

// VisitedStore is the shared dedup state behind link admission.
// Record must check and record domain as one atomic step and report whether
// domain was new. An empty source records a root domain with no edge.
type VisitedStore interface {
	Record(source, domain string) (bool, error)
	Contains(domain string) bool
	Size() int
}

// GraphStore records admissions as vertices and source -> domain edges
func GraphStore(g *memory.Graph) VisitedStore {
	return graphStore{g}
}

type graphStore struct {
	*memory.Graph
}

func (s graphStore) Record(source, domain string) (bool, error) {
	if !s.AddVertex(domain) {
		return false, nil
	}
	if source == "" {
		return true, nil
	}
	// the vertex stays recorded even if the edge is refused
	if err := s.AddEdge(source, domain); err != nil {
		return false, err
	}
	return true, nil
}

// HistoryStore records admissions in a flat domain set
func HistoryStore(h *memory.History) VisitedStore {
	return historyStore{h}
}

type historyStore struct {
	*memory.History
}

func (s historyStore) Record(_, domain string) (bool, error) {
	return s.Insert(domain), nil
}

// Admitted is a link that named a domain not seen before
type Admitted struct {
	Link   string
	Domain string
}

// Admission decides whether a link is worth following
type Admission struct {
	reducer Reducer
	filter  *Filter
	store   VisitedStore
}

// NewAdmission creates an admission gate over store. filter may be nil.
func NewAdmission(store VisitedStore, reducer Reducer, filter *Filter) *Admission {
	return &Admission{
		reducer: reducer,
		filter:  filter,
		store:   store,
	}
}

// Reduce exposes the admission's reducer
func (a *Admission) Reduce(rawLink string) (string, bool) {
	return a.reducer.Reduce(rawLink)
}

// Seed records the root domain of a crawl
func (a *Admission) Seed(domain string) bool {
	isNew, _ := a.store.Record("", domain)
	return isNew
}

// Admit reduces rawLink and records its domain if it was not seen before.
// Only the caller that records a domain gets it back, so concurrent pages
// linking to the same new domain spawn a single visit.
func (a *Admission) Admit(rawLink, source string) (Admitted, bool) {
	domain, ok := a.reducer.Reduce(rawLink)
	if !ok {
		return Admitted{}, false
	}

	if a.filter.IsExcluded(domain) {
		return Admitted{}, false
	}

	isNew, err := a.store.Record(source, domain)
	if err != nil {
		logrus.Debugf("Rejected %s from %s: %v", domain, source, err)
		return Admitted{}, false
	}
	if !isNew {
		return Admitted{}, false
	}

	return Admitted{Link: rawLink, Domain: domain}, true
}

// AdmitAll admits every link found on a source page, preserving page order
func (a *Admission) AdmitAll(links []string, source string) []Admitted {
	var admitted []Admitted
	for _, link := range links {
		if adm, ok := a.Admit(link, source); ok {
			admitted = append(admitted, adm)
		}
	}
	return admitted
}

// Contains reports whether domain has been admitted
func (a *Admission) Contains(domain string) bool {
	return a.store.Contains(domain)
}

// Size returns the number of admitted domains
func (a *Admission) Size() int {
	return a.store.Size()
}
