package search

import (
	"context"
	"encoding/json"

	"github.com/meilisearch/meilisearch-go"

	"gharbazaar/internal/models"
)

// SearchClient wraps the Meilisearch index holding publicly visible
// listings. The database stays authoritative; the index is a mirror
// refreshed on approval, demotion and the nightly reindex.
type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "listings",
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	// Configure searchable attributes
	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"title",
		"description",
		"location.sector",
		"location.mohalla",
		"location.landmark",
		"location.city",
		"amenities",
	})
	if err != nil {
		return err
	}

	// Configure filterable attributes
	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"id",
		"propertyType",
		"priceType",
		"subCategory",
		"miniSubcategoryId",
		"price",
		"premium",
		"featured",
		"specifications.bedrooms",
		"specifications.bathrooms",
		"specifications.area",
	})
	if err != nil {
		return err
	}

	// Configure sortable attributes
	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"price",
		"specifications.area",
		"views",
		"createdAt",
	})
	if err != nil {
		return err
	}

	return nil
}

// IndexListing indexes a single listing
func (s *SearchClient) IndexListing(_ context.Context, property *models.Property) error {
	_, err := s.client.Index(s.index).AddDocuments([]models.Property{*property})
	return err
}

// IndexListings indexes multiple listings
func (s *SearchClient) IndexListings(_ context.Context, properties []models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).AddDocuments(properties)
	return err
}

// DeleteListing removes a listing from the index
func (s *SearchClient) DeleteListing(_ context.Context, id string) error {
	_, err := s.client.Index(s.index).DeleteDocument(id)
	return err
}

// SearchRequest represents advanced search parameters
type SearchRequest struct {
	Query  string
	Limit  int64
	Offset int64
	Filter []string
	Sort   []string
}

// SearchResult represents search results
type SearchResult struct {
	Hits           []models.Property
	TotalHits      int64
	ProcessingTime int64
}

// Search searches for listings with basic options
func (s *SearchClient) Search(query string, limit int64) ([]models.Property, error) {
	result, err := s.AdvancedSearch(SearchRequest{
		Query: query,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	return result.Hits, nil
}

// AdvancedSearch performs a search with filters and sorting
func (s *SearchClient) AdvancedSearch(req SearchRequest) (*SearchResult, error) {
	if req.Limit == 0 {
		req.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit:  req.Limit,
		Offset: req.Offset,
	}

	if len(req.Filter) > 0 {
		filterStr := ""
		for i, f := range req.Filter {
			if i > 0 {
				filterStr += " AND "
			}
			filterStr += f
		}
		searchReq.Filter = filterStr
	}

	if len(req.Sort) > 0 {
		searchReq.Sort = req.Sort
	}

	searchRes, err := s.client.Index(s.index).Search(req.Query, searchReq)
	if err != nil {
		return nil, err
	}

	hits, err := parseHits(searchRes.Hits)
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Hits:           hits,
		TotalHits:      searchRes.EstimatedTotalHits,
		ProcessingTime: searchRes.ProcessingTimeMs,
	}, nil
}

// parseHits converts raw search hits back into listings. Documents were
// indexed from the same struct, so a JSON round-trip restores them.
func parseHits(raw []interface{}) ([]models.Property, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	properties := make([]models.Property, 0, len(raw))
	if err := json.Unmarshal(data, &properties); err != nil {
		return nil, err
	}
	return properties, nil
}
