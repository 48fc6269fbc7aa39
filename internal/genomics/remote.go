package genomics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/inodb/denovo-caller/internal/pileup"
	"github.com/inodb/denovo-caller/internal/variant"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// ClientSecrets is the minimal shape of the OAuth client-secrets file named
// by --client_secrets_filename. Parsing and refreshing the OAuth token
// itself stays an external collaborator per spec.md §1: RemoteClient only
// reads a pre-issued bearer token out of the file once at construction.
type ClientSecrets struct {
	BearerToken string `json:"bearer_token"`
}

// LoadClientSecrets reads and decodes a client-secrets file.
func LoadClientSecrets(path string) (ClientSecrets, error) {
	f, err := os.Open(path)
	if err != nil {
		return ClientSecrets{}, fmt.Errorf("genomics: open client secrets: %w", err)
	}
	defer f.Close()

	var s ClientSecrets
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return ClientSecrets{}, fmt.Errorf("genomics: decode client secrets: %w", err)
	}
	return s, nil
}

// RemoteClient speaks to the external genomics API over HTTP. It is
// grounded on the teacher's cache.RESTLoader: a bare *http.Client with a
// fixed timeout, JSON decode of the response body, and errors wrapped with
// %w at every step so a retry wrapper can inspect the underlying cause.
type RemoteClient struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
}

// NewRemoteClient builds a client against baseURL, authenticating every
// request with secrets.BearerToken.
func NewRemoteClient(baseURL string, secrets ClientSecrets) *RemoteClient {
	return &RemoteClient{
		baseURL:     baseURL,
		bearerToken: secrets.BearerToken,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *RemoteClient) do(ctx context.Context, method, url string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("genomics: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("genomics: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("genomics: API error %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("genomics: decode response: %w", err)
	}
	return nil
}

type listVariantsRequest struct {
	Reference  string   `json:"reference"`
	Start      int64    `json:"start"`
	End        int64    `json:"end"`
	CallsetIDs []string `json:"callsetIds"`
	PageSize   int      `json:"pageSize"`
	PageToken  string   `json:"pageToken,omitempty"`
}

type wireCall struct {
	CallsetID string            `json:"callsetId"`
	Indices   [2]int            `json:"genotype"`
	Info      map[string]string `json:"info"`
}

type wireVariant struct {
	Reference string     `json:"reference"`
	Start     int64      `json:"start"`
	End       int64      `json:"end"`
	Ref       string     `json:"referenceBases"`
	Alts      []string   `json:"alternateBases"`
	Calls     []wireCall `json:"calls"`
}

type listVariantsResponse struct {
	Variants      []wireVariant `json:"variants"`
	NextPageToken string        `json:"nextPageToken"`
}

// ListVariants implements Client.
func (c *RemoteClient) ListVariants(ctx context.Context, reference string, start, end int64, callsetIDs []string, pageSize int, pageToken string) (VariantPage, error) {
	reqBody, err := json.Marshal(listVariantsRequest{
		Reference:  reference,
		Start:      start,
		End:        end,
		CallsetIDs: callsetIDs,
		PageSize:   pageSize,
		PageToken:  pageToken,
	})
	if err != nil {
		return VariantPage{}, fmt.Errorf("genomics: encode list_variants request: %w", err)
	}

	var resp listVariantsResponse
	url := c.baseURL + "/variants/search"
	if err := c.do(ctx, http.MethodPost, url, bytesReader(reqBody), &resp); err != nil {
		return VariantPage{}, err
	}

	variants := make([]*variant.Variant, len(resp.Variants))
	for i, wv := range resp.Variants {
		calls := make([]variant.Call, len(wv.Calls))
		for j, wc := range wv.Calls {
			calls[j] = variant.Call{CallsetID: wc.CallsetID, Indices: wc.Indices, Info: wc.Info}
		}
		variants[i] = &variant.Variant{
			Reference: wv.Reference,
			Start:     wv.Start,
			End:       wv.End,
			RefBases:  wv.Ref,
			AltBases:  wv.Alts,
			Calls:     calls,
		}
	}

	return VariantPage{Variants: variants, NextPageToken: resp.NextPageToken}, nil
}

type wireAlignment struct {
	Position     int64  `json:"position"`
	AlignedBases string `json:"alignedBases"`
}

type listReadsResponse struct {
	Alignments []wireAlignment `json:"alignments"`
}

// ListReads implements Client.
func (c *RemoteClient) ListReads(ctx context.Context, readGroupSetID, reference string, start, end int64) ([]pileup.Alignment, error) {
	url := fmt.Sprintf("%s/reads/search?readGroupSetId=%s&reference=%s&start=%s&end=%s",
		c.baseURL, readGroupSetID, reference, strconv.FormatInt(start, 10), strconv.FormatInt(end, 10))

	var resp listReadsResponse
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}

	alignments := make([]pileup.Alignment, len(resp.Alignments))
	for i, a := range resp.Alignments {
		alignments[i] = pileup.Alignment{Position: a.Position, AlignedBases: a.AlignedBases}
	}
	return alignments, nil
}

type resolveCallsetResponse struct {
	CallsetID string `json:"callsetId"`
}

// ResolveCallsetID implements Client.
func (c *RemoteClient) ResolveCallsetID(ctx context.Context, datasetID, callsetName string) (string, error) {
	url := fmt.Sprintf("%s/callsets/resolve?datasetId=%s&name=%s", c.baseURL, datasetID, callsetName)
	var resp resolveCallsetResponse
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return "", err
	}
	if resp.CallsetID == "" {
		return "", fmt.Errorf("genomics: no callset named %q in dataset %q", callsetName, datasetID)
	}
	return resp.CallsetID, nil
}
