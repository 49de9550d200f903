package grpc

import (
	"context"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	resp "github.com/vogiaan1904/ticketbottle-inventory/pkg/response"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// identify resolves the caller from "authorization" metadata. Calls without
// it proceed anonymously and each method decides whether that is enough.
func identify(ctx context.Context, auth service.AuthService) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, nil
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ctx, nil
	}

	token := delivery.BearerToken(vals[0])
	if token == "" {
		return nil, resp.ParseGRPCError(errInvalidToken)
	}

	id, err := auth.Authenticate(ctx, token)
	if err != nil {
		return nil, resp.ParseGRPCError(mapGRPCError(err))
	}
	return delivery.WithIdentity(ctx, id), nil
}

func AuthUnaryInterceptor(auth service.AuthService) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := identify(ctx, auth)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

type identifiedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identifiedStream) Context() context.Context {
	return s.ctx
}

func AuthStreamInterceptor(auth service.AuthService) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := identify(ss.Context(), auth)
		if err != nil {
			return err
		}
		return handler(srv, &identifiedStream{ServerStream: ss, ctx: ctx})
	}
}
