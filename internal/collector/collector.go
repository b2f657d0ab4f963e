// Package collector downloads tax-law source documents from the IRS and
// writes companion metadata files for ingestion.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taxkb/internal/kb/schema"
	"taxkb/pkg/logger"
)

// irsPublicationURL is the download location pattern for IRS publications.
const irsPublicationURL = "https://www.irs.gov/pub/irs-pdf/p%s.pdf"

// DefaultPublications are commonly referenced IRS publications collected when
// no explicit list is given.
var DefaultPublications = []string{"17", "334", "535", "542", "225", "463", "501", "503", "526", "936"}

// publicationTags enriches the base tag set for publications whose subject
// matter is known.
var publicationTags = map[string][]string{
	"535": {"business expenses", "deductions"},
	"17":  {"individual tax", "tax guide"},
	"225": {"farmer's tax guide", "agriculture"},
}

// Collector downloads IRS publications into a documents directory.
type Collector struct {
	documentsDir string
	httpClient   *http.Client
	log          *logger.Logger
}

// NewCollector creates a Collector writing into documentsDir. The directory
// is created if missing.
func NewCollector(documentsDir string, log *logger.Logger) (*Collector, error) {
	if err := os.MkdirAll(documentsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create documents directory %s: %w", documentsDir, err)
	}
	return &Collector{
		documentsDir: documentsDir,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          log,
	}, nil
}

// DownloadPublication downloads one IRS publication PDF and writes its
// companion metadata file. It returns the path of the downloaded PDF.
func (c *Collector) DownloadPublication(ctx context.Context, publicationNumber, year string) (string, error) {
	url := fmt.Sprintf(irsPublicationURL, publicationNumber)
	filename := fmt.Sprintf("irs_pub_%s_%s.pdf", publicationNumber, year)
	path := filepath.Join(c.documentsDir, filename)

	c.log.Info(fmt.Sprintf("downloading IRS Publication %s from %s", publicationNumber, url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download of %s returned status %s", url, resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := c.writeMetadata(publicationNumber, year, url); err != nil {
		return "", err
	}
	c.log.Info(fmt.Sprintf("downloaded %s", path))
	return path, nil
}

// CollectPublications downloads the given publications, or the default set
// when numbers is empty. A failed download is logged and skipped.
func (c *Collector) CollectPublications(ctx context.Context, numbers []string, year string) ([]string, error) {
	if len(numbers) == 0 {
		numbers = DefaultPublications
	}
	var downloaded []string
	for _, num := range numbers {
		if ctx.Err() != nil {
			return downloaded, ctx.Err()
		}
		path, err := c.DownloadPublication(ctx, num, year)
		if err != nil {
			c.log.Warn(fmt.Sprintf("skipping publication %s: %v", num, err))
			continue
		}
		downloaded = append(downloaded, path)
	}
	return downloaded, nil
}

// PublicationMetadata builds the metadata record for an IRS publication.
func PublicationMetadata(publicationNumber, year, url string) schema.Metadata {
	tags := []string{"irs", "publication " + publicationNumber, "tax year " + year}
	tags = append(tags, publicationTags[publicationNumber]...)
	return schema.Metadata{
		Title:           "IRS Publication " + publicationNumber,
		Source:          "Internal Revenue Service",
		DocumentID:      fmt.Sprintf("irs_pub_%s_%s", publicationNumber, year),
		PublicationDate: year + "-01-01",
		Jurisdiction:    "Federal",
		DocumentType:    "Publication",
		Tags:            tags,
		URL:             url,
	}
}

// writeMetadata writes the sidecar metadata file next to the publication PDF.
func (c *Collector) writeMetadata(publicationNumber, year, url string) error {
	md := PublicationMetadata(publicationNumber, year, url)
	payload, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	path := filepath.Join(c.documentsDir, fmt.Sprintf("irs_pub_%s_%s.meta.json", publicationNumber, year))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata file %s: %w", path, err)
	}
	return nil
}

// ReadSidecar loads the metadata sidecar of a document file, if one exists.
func ReadSidecar(documentPath string) (schema.Metadata, bool, error) {
	base := strings.TrimSuffix(documentPath, filepath.Ext(documentPath))
	path := base + ".meta.json"

	payload, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return schema.Metadata{}, false, nil
	}
	if err != nil {
		return schema.Metadata{}, false, fmt.Errorf("failed to read sidecar %s: %w", path, err)
	}

	var md schema.Metadata
	if err := json.Unmarshal(payload, &md); err != nil {
		return schema.Metadata{}, false, fmt.Errorf("failed to parse sidecar %s: %w", path, err)
	}
	return md, true, nil
}
