package api

import (
	"context"

	"github.com/campus-pulse/load-engine/internal/models"
)

type contextKey string

const clientContextKey contextKey = "api_client"

// ClientFromContext extracts APIClient from context
func ClientFromContext(ctx context.Context) *models.APIClient {
	client, ok := ctx.Value(clientContextKey).(*models.APIClient)
	if !ok {
		return nil
	}
	return client
}

// ContextWithClient adds APIClient to context
func ContextWithClient(ctx context.Context, client *models.APIClient) context.Context {
	return context.WithValue(ctx, clientContextKey, client)
}
