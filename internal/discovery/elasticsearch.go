package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/mitchellh/mapstructure"
)

// ElasticSearcher queries a vendor directory index
type ElasticSearcher struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticSearcher returns nil when host is empty
func NewElasticSearcher(host, index string) (*ElasticSearcher, error) {
	if host == "" {
		return nil, nil
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{host}})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &ElasticSearcher{client: client, index: index}, nil
}

func (s *ElasticSearcher) Search(ctx context.Context, req Request) ([]Candidate, error) {
	body, err := json.Marshal(buildQuery(req))
	if err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var esResp struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	var out []Candidate
	for _, hit := range esResp.Hits.Hits {
		out = append(out, candidatesFromSource(hit.Source)...)
	}
	return out, nil
}

func buildQuery(req Request) map[string]interface{} {
	must := []map[string]interface{}{
		{
			"multi_match": map[string]interface{}{
				"query":  req.Query,
				"fields": []string{"name^3", "categories^2", "description", "listing"},
			},
		},
	}
	var filter []map[string]interface{}
	if req.Location != "" && req.Location != "all" {
		filter = append(filter, map[string]interface{}{"match": map[string]interface{}{"location": req.Location}})
	}
	if req.Category != "" && req.Category != "all" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"categories": req.Category}})
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	return map[string]interface{}{
		"size":  req.Limit,
		"query": map[string]interface{}{"bool": boolQuery},
	}
}

// candidatesFromSource decodes a structured document, or parses its free
// text "listing" field when the document has no name.
func candidatesFromSource(src map[string]interface{}) []Candidate {
	var c Candidate
	cfg := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &c,
		TagName:          "mapstructure",
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err == nil && dec.Decode(src) == nil && c.Name != "" {
		return []Candidate{c}
	}
	if listing, ok := src["listing"].(string); ok {
		return ParseListing(listing)
	}
	return nil
}
