package lineview

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/ghproxy/internal/domain"
)

const (
	// DefaultSearchLimit is the number of matches returned when no limit is given.
	DefaultSearchLimit = 20

	// MaxSearchLimit caps the number of matches a single search may return.
	MaxSearchLimit = 500

	searchBatchSize = 1000
)

// Match is a line that matched a search query.
type Match struct {
	// Line is the zero-based line number.
	Line  int
	Text  string
	Score float64
}

// SearchResult holds the matches of a search, ordered by line number.
type SearchResult struct {
	Matches []Match

	// TotalHits is the number of matching lines, which may exceed len(Matches).
	TotalHits uint64

	// Total is the number of lines in the file.
	Total int
}

// createLineIndexMapping creates the bleve mapping for line documents.
func createLineIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = false
	docMapping.AddFieldMappingsAt(domain.LineFieldText, textField)

	numberField := bleve.NewNumericFieldMapping()
	numberField.Index = false
	numberField.Store = false
	docMapping.AddFieldMappingsAt(domain.LineFieldNumber, numberField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// Search finds the lines of the file matching every term of q. Lines are indexed into
// an in-memory index that lives only for the duration of the call.
func (v *View) Search(ctx context.Context, h domain.FileHandle, q string, limit int) (result SearchResult, err error) {
	if strings.TrimSpace(q) == "" {
		return SearchResult{}, fmt.Errorf("%w: query cannot be empty", domain.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)

	lines, err := v.allLines(ctx, h)
	if err != nil {
		return SearchResult{}, err
	}

	index, err := bleve.NewMemOnly(createLineIndexMapping())
	if err != nil {
		return SearchResult{}, fmt.Errorf("failed to create line index: %w", err)
	}
	defer func() {
		if cerr := index.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := indexLines(index, lines); err != nil {
		return SearchResult{}, err
	}

	matchQuery := bleve.NewMatchQuery(q)
	matchQuery.SetField(domain.LineFieldText)
	matchQuery.SetOperator(query.MatchQueryOperatorAnd)

	searchReq := bleve.NewSearchRequestOptions(matchQuery, limit, 0, false)
	res, err := index.SearchInContext(ctx, searchReq)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search failed: %w", err)
	}

	matches := make([]Match, 0, len(res.Hits))
	for _, hit := range res.Hits {
		n, err := strconv.Atoi(hit.ID)
		if err != nil || n < 0 || n >= len(lines) {
			continue
		}
		matches = append(matches, Match{Line: n, Text: lines[n], Score: hit.Score})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Line < matches[j].Line })

	v.logger.Debug("Searched lines", "file", h.String(), "query", q, "hits", res.Total, "returned", len(matches))
	return SearchResult{Matches: matches, TotalHits: res.Total, Total: len(lines)}, nil
}

func indexLines(index bleve.Index, lines []string) error {
	batch := index.NewBatch()
	for n, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		doc := domain.LineDocument{Number: n, Text: line}
		if err := batch.Index(strconv.Itoa(n), doc); err != nil {
			return fmt.Errorf("failed to index line %d: %w", n, err)
		}
		if batch.Size() >= searchBatchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("batch index failed: %w", err)
			}
			batch = index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("final batch index failed: %w", err)
		}
	}
	return nil
}
