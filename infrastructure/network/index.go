package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NetworkController is a thin JSON HTTP client for one remote base URL.
// Responses come back as raw bytes plus the status code so callers decide
// how to interpret non-2xx results.
type NetworkController struct {
	BaseUrl string
	client  *http.Client
}

func (network *NetworkController) prepare() {
	if network.client == nil {
		network.client = &http.Client{
			Timeout: 15 * time.Second,
		}
	}
}

func (network *NetworkController) Get(path string, headers *map[string]string) (*[]byte, *int, error) {
	return network.do(http.MethodGet, path, headers, nil)
}

func (network *NetworkController) Post(path string, headers *map[string]string, body interface{}) (*[]byte, *int, error) {
	return network.do(http.MethodPost, path, headers, body)
}

func (network *NetworkController) do(method string, path string, headers *map[string]string, body interface{}) (*[]byte, *int, error) {
	network.prepare()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("error marshalling request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, network.BaseUrl+path, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if headers != nil {
		for key, value := range *headers {
			req.Header.Set(key, value)
		}
	}

	res, err := network.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	response, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &res.StatusCode, err
	}
	return &response, &res.StatusCode, nil
}
