package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type Config struct {
	Addresses []string
	Username  string
	Password  string
}

type Client struct {
	es *elasticsearch.Client
}

func NewClient(cfg *Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, err
	}

	res, err := es.Info()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}

	return &Client{es: es}, nil
}

func (c *Client) CreateIndex(ctx context.Context, index, mapping string) error {
	res, err := c.es.Indices.Create(index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %s", index, res.Status())
	}
	return nil
}

func (c *Client) Index(ctx context.Context, index, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := c.es.Index(index, bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(id),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index document %s/%s: %s", index, id, res.Status())
	}
	return nil
}

// DeleteMany removes several documents in a single bulk request.
func (c *Client) DeleteMany(ctx context.Context, index string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, id := range ids {
		meta := map[string]map[string]string{"delete": {"_index": index, "_id": id}}
		line, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	req := esapi.BulkRequest{Body: &buf}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk delete on %s: %s", index, res.Status())
	}
	return bulkErrors(index, res.Body)
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// bulkErrors reports the failed items of a _bulk response, which answers 200
// even when some operations fail. Deleting a missing document is not a failure.
func bulkErrors(index string, body io.Reader) error {
	var out bulkResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return fmt.Errorf("decode bulk response on %s: %w", index, err)
	}
	if !out.Errors {
		return nil
	}

	var failed []string
	for _, item := range out.Items {
		for _, op := range item {
			if op.Error == nil || op.Status == http.StatusNotFound {
				continue
			}
			failed = append(failed, fmt.Sprintf("%s (%s: %s)", op.ID, op.Error.Type, op.Error.Reason))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("bulk delete on %s: %d failed: %s", index, len(failed), strings.Join(failed, "; "))
}
