package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// GracefulStop waits for in-flight RPCs until ctx ends, then closes the
// remaining ones. It reports whether the stop was graceful. Open availability
// streams only finish once their broadcaster clients are closed.
func GracefulStop(ctx context.Context, srv *grpc.Server) bool {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		srv.Stop()
		<-done
		return false
	}
}
