package minhareceita

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"perdecomp/cmd/internal/domain/entity"
	"strings"
	"time"
)

const DefaultBaseURL = "https://minhareceita.org/"

var (
	ErrNotFound = errors.New("not found")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) GetByCNPJ(ctx context.Context, cnpj string) (*entity.Company, error) {
	endpoint := c.baseURL + url.PathEscape(cnpj)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// minhareceita answers 400 for well-formed but unknown CNPJs
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return nil, ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("minhareceita failed with status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var company companyResponse
	err = json.Unmarshal(body, &company)
	if err != nil {
		return nil, err
	}
	return company.ToDomain(), nil
}
