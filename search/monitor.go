package search

import (
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, mode Mode)
	AfterVectorSearch(chunks []*core.RetrievedChunk)
	VectorSearchFailed(err error)
	AfterKeywordSearch(matches []*storage.KeywordMatch)
	Finish(hits []*core.SearchHit)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Mode)                       {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.RetrievedChunk)   {}
func (n *noopMonitor) VectorSearchFailed(_ error)                   {}
func (n *noopMonitor) AfterKeywordSearch(_ []*storage.KeywordMatch) {}
func (n *noopMonitor) Finish(_ []*core.SearchHit)                   {}
