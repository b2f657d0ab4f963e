// Package milvus manages the connection to the Milvus vector database and
// the lifecycle of the knowledge-base collection.
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"taxkb/internal/config"
)

// Client wraps the Milvus SDK client together with its configuration. It is
// constructed once at process start, shared by reference, and closed at
// shutdown; there is no package-level instance.
type Client struct {
	Client client.Client
	Config *config.MilvusConfig
}

// NewClient connects to Milvus at the configured address.
func NewClient(ctx context.Context, cfg *config.MilvusConfig) (*Client, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus at %s: %w", cfg.Address, err)
	}
	return &Client{Client: c, Config: cfg}, nil
}

// Close closes the connection to Milvus.
func (c *Client) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

// HealthCheck verifies the connection is usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// Flush persists buffered collection data to storage.
func (c *Client) Flush(ctx context.Context) error {
	collName := c.Config.Schema.CollectionName
	if err := c.Client.Flush(ctx, collName, false); err != nil {
		return fmt.Errorf("failed to flush collection %q: %w", collName, err)
	}
	return nil
}

// EnsureCollection creates the configured collection and its vector index if
// they do not exist yet, then loads the collection for querying. The
// collection is created once at setup and reused across runs.
func (c *Client) EnsureCollection(ctx context.Context) error {
	collName := c.Config.Schema.CollectionName
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		schema, err := c.buildSchemaFromConfig()
		if err != nil {
			return err
		}
		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection %q: %w", collName, err)
		}

		idx, err := c.buildIndexFromConfig()
		if err != nil {
			return err
		}
		indexField := c.Config.Schema.Index.FieldName
		if err := c.Client.CreateIndex(ctx, collName, indexField, idx, false); err != nil {
			return fmt.Errorf("failed to create index on field %q: %w", indexField, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("failed to load collection %q: %w", collName, err)
	}
	return nil
}

// buildSchemaFromConfig translates the YAML field definitions into a Milvus
// collection schema.
func (c *Client) buildSchemaFromConfig() (*entity.Schema, error) {
	schema := entity.NewSchema().
		WithName(c.Config.Schema.CollectionName).
		WithDescription(c.Config.Schema.Description)

	for _, fieldCfg := range c.Config.Schema.Fields {
		field := entity.NewField().WithName(fieldCfg.Name)

		if fieldCfg.IsPrimaryKey {
			field = field.WithIsPrimaryKey(true)
		}
		if fieldCfg.IsAutoID {
			field = field.WithIsAutoID(true)
		}

		switch fieldCfg.DataType {
		case "Int64":
			field = field.WithDataType(entity.FieldTypeInt64)
		case "VarChar":
			field = field.WithDataType(entity.FieldTypeVarChar).WithMaxLength(int64(fieldCfg.MaxLength))
		case "FloatVector":
			field = field.WithDataType(entity.FieldTypeFloatVector).WithDim(int64(fieldCfg.Dim))
		case "Float":
			field = field.WithDataType(entity.FieldTypeFloat)
		case "Double":
			field = field.WithDataType(entity.FieldTypeDouble)
		case "Bool":
			field = field.WithDataType(entity.FieldTypeBool)
		default:
			return nil, fmt.Errorf("unsupported field data type: %s", fieldCfg.DataType)
		}

		schema = schema.WithField(field)
	}
	return schema, nil
}

// buildIndexFromConfig builds the vector index entity from the configuration.
func (c *Client) buildIndexFromConfig() (entity.Index, error) {
	indexCfg := c.Config.Schema.Index
	metricType := entity.MetricType(indexCfg.MetricType)

	switch indexCfg.IndexType {
	case "IVF_FLAT":
		nlist, ok := indexCfg.Params["nlist"].(int)
		if !ok {
			nlist = 128
		}
		return entity.NewIndexIvfFlat(metricType, nlist)
	case "HNSW":
		m, ok := indexCfg.Params["M"].(int)
		if !ok {
			m = 8
		}
		efConstruction, ok := indexCfg.Params["efConstruction"].(int)
		if !ok {
			efConstruction = 96
		}
		return entity.NewIndexHNSW(metricType, m, efConstruction)
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEX(metricType)
	default:
		return nil, fmt.Errorf("unsupported index type: %s", indexCfg.IndexType)
	}
}
