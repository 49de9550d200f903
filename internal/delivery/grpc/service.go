package grpc

import (
	"context"
	"errors"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/delivery"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/realtime"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	pkgGrpc "github.com/vogiaan1904/ticketbottle-inventory/pkg/grpc"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
	resp "github.com/vogiaan1904/ticketbottle-inventory/pkg/response"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type grpcService struct {
	catalog service.CatalogService
	inv     service.InventoryService
	bc      *realtime.Broadcaster
	l       logger.Logger
}

func NewGrpcService(catalog service.CatalogService, inv service.InventoryService, bc *realtime.Broadcaster, l logger.Logger) pkgGrpc.InventoryServiceServer {
	return &grpcService{
		catalog: catalog,
		inv:     inv,
		bc:      bc,
		l:       l,
	}
}

func (s *grpcService) GetAvailability(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, resp.ParseGRPCError(errMissingEventID)
	}

	a, err := s.catalog.GetAvailability(ctx, req.GetValue())
	if err != nil {
		return nil, s.fail(ctx, "GetAvailability", err)
	}
	return availabilityToStruct(a)
}

func (s *grpcService) Reserve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	eventID := req.GetFields()["event_id"].GetStringValue()
	if eventID == "" {
		return nil, resp.ParseGRPCError(errMissingEventID)
	}

	res, err := s.inv.Reserve(ctx, service.ReserveInput{
		EventID: eventID,
		Buyer:   delivery.IdentityFrom(ctx),
	})
	if err != nil {
		return nil, s.fail(ctx, "Reserve", err)
	}
	return reservationToStruct(res)
}

func (s *grpcService) Cancel(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if req.GetValue() == "" {
		return nil, resp.ParseGRPCError(errMissingID)
	}

	if _, err := s.inv.Cancel(ctx, delivery.IdentityFrom(ctx), req.GetValue()); err != nil {
		return nil, s.fail(ctx, "Cancel", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *grpcService) StreamAvailability(req *wrapperspb.StringValue, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	eventID := req.GetValue()
	if eventID == "" {
		return resp.ParseGRPCError(errMissingEventID)
	}

	client := s.bc.Register()
	defer s.bc.Disconnect(client)
	s.bc.Subscribe(client, eventID)

	snapshot, err := s.catalog.GetAvailability(ctx, eventID)
	if err != nil {
		return s.fail(ctx, "StreamAvailability", err)
	}
	client.Deliver(snapshot)

	s.l.Infof(ctx, "Starting availability stream event_id=%s client=%s", eventID, client.ID)

	for {
		u, err := client.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, realtime.ErrClientClosed) {
				s.l.Infof(ctx, "Availability stream closed event_id=%s client=%s", eventID, client.ID)
				return nil
			}
			return resp.ParseGRPCError(err)
		}

		msg, err := availabilityToStruct(u)
		if err != nil {
			return resp.ParseGRPCError(err)
		}
		if err := stream.Send(msg); err != nil {
			s.l.Warnf(ctx, "Failed to send availability update event_id=%s: %v", eventID, err)
			return err
		}
	}
}

func (s *grpcService) fail(ctx context.Context, op string, err error) error {
	mapped := mapGRPCError(err)
	if errors.Is(mapped, err) {
		s.l.Errorf(ctx, "delivery.grpc.%s: %v", op, err)
	}
	return resp.ParseGRPCError(mapped)
}
