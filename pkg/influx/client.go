package influx

import (
	"context"
	"fmt"
	"strings"

	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
)

// Client is an interface for querying InfluxDB with InfluxQL.
type Client interface {
	// QueryInfluxQL executes an InfluxQL query and returns results as a slice of maps.
	QueryInfluxQL(ctx context.Context, query string) ([]map[string]any, error)
	// Close closes the client and releases resources.
	Close() error
}

// SDKClient implements Client using the official InfluxDB 3 Go SDK.
type SDKClient struct {
	client *influxdb3.Client
}

// NewSDKClient creates a new SDK-based InfluxDB client.
func NewSDKClient(host, token, org, database string) (*SDKClient, error) {
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:         host,
		Token:        token,
		Organization: org,
		Database:     database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create InfluxDB client: %w", err)
	}
	return &SDKClient{client: client}, nil
}

func (c *SDKClient) QueryInfluxQL(ctx context.Context, query string) ([]map[string]any, error) {
	iterator, err := c.client.Query(ctx, query, influxdb3.WithQueryType(influxdb3.InfluxQL))
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	var results []map[string]any
	for iterator.Next() {
		value := iterator.Value()
		row := make(map[string]any, len(value))
		for k, v := range value {
			row[k] = v
		}
		results = append(results, row)
	}

	if err := iterator.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

func (c *SDKClient) Close() error {
	if c.client != nil {
		err := c.client.Close()
		if err != nil {
			if isExpectedCloseError(err) {
				return nil
			}
		}
		return err
	}
	return nil
}

func isExpectedCloseError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "connection is closing") ||
		strings.Contains(errStr, "code = Canceled") ||
		strings.Contains(errStr, "grpc: the client connection is closing")
}
