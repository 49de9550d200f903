package errors

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCError carries a stable application code next to the transport code so
// clients can branch on Code without parsing the message.
type GRPCError struct {
	Code     string
	Message  string
	GrpcCode codes.Code
}

func NewGRPCError(grpcCode codes.Code, code string, message string) *GRPCError {
	return &GRPCError{
		Code:     code,
		Message:  message,
		GrpcCode: grpcCode,
	}
}

func (e *GRPCError) Error() string {
	return fmt.Sprintf("%s - %s", e.Code, e.Message)
}

// GRPCStatus lets status.FromError and status.Code read e directly.
func (e *GRPCError) GRPCStatus() *status.Status {
	c := e.GrpcCode
	if c == codes.OK {
		c = codes.InvalidArgument
	}
	return status.New(c, e.Error())
}
