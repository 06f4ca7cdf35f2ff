package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rxledger/dlt-rx/pkg/config"
	"github.com/rxledger/dlt-rx/pkg/logger"
)

// IPFSStore stores payloads on an IPFS node via its HTTP API
type IPFSStore struct {
	apiAddr string
	client  *http.Client
	logger  *logger.Logger
}

// NewIPFSStore creates a store backed by the IPFS HTTP API
func NewIPFSStore(cfg *config.MetadataConfig, log *logger.Logger) *IPFSStore {
	return &IPFSStore{
		apiAddr: cfg.APIAddr,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
		logger: log,
	}
}

// Put adds data to IPFS and returns the CID
func (s *IPFSStore) Put(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "payload")
	if err != nil {
		return "", fmt.Errorf("failed to build multipart request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiAddr+"/api/v0/add?cid-version=1", &body)
	if err != nil {
		return "", fmt.Errorf("failed to build add request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs add failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipfs add returned status %d", resp.StatusCode)
	}

	var result struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode ipfs add response: %w", err)
	}
	if result.Hash == "" {
		return "", fmt.Errorf("ipfs add returned empty CID")
	}

	s.logger.WithComponent("metadata").WithField("cid", result.Hash).Debug("Stored payload on IPFS")
	return result.Hash, nil
}

// Get retrieves data from IPFS by CID
func (s *IPFSStore) Get(ctx context.Context, cid string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiAddr+"/api/v0/cat?arg="+cid, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build cat request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipfs cat returned status %d for %s", resp.StatusCode, cid)
	}

	return io.ReadAll(resp.Body)
}
