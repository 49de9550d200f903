package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type cleanupFunc func()

// NewInventoryClient dials the inventory service at addr.
func NewInventoryClient(addr string, opts ...grpc.DialOption) (InventoryServiceClient, cleanupFunc, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, err
	}

	return NewInventoryServiceClient(conn), func() { conn.Close() }, nil
}

// WithBearer attaches token as the call's authorization metadata.
func WithBearer(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}
