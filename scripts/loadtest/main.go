// loadtest hammers one event's inventory over gRPC with many concurrent
// buyers and checks that no more seats were granted than the event had.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/clock"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/models"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	pkgGrpc "github.com/vogiaan1904/ticketbottle-inventory/pkg/grpc"
	pkgLog "github.com/vogiaan1904/ticketbottle-inventory/pkg/logger"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type options struct {
	addr        string
	eventID     string
	users       int
	concurrency int
	cancelRate  float64
	jwtSecret   string
	jwtIssuer   string
	timeout     time.Duration
}

type stats struct {
	granted   atomic.Int64
	soldOut   atomic.Int64
	cancelled atomic.Int64
	failed    atomic.Int64
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options

	flagSet := pflag.NewFlagSet("loadtest", pflag.ContinueOnError)
	flagSet.StringVar(&opts.addr, "addr", "localhost:50057", "inventory gRPC address")
	flagSet.StringVar(&opts.eventID, "event", "", "event id to reserve against (required)")
	flagSet.IntVarP(&opts.users, "users", "n", 500, "number of simulated buyers")
	flagSet.IntVarP(&opts.concurrency, "concurrency", "c", 50, "buyers in flight at once")
	flagSet.Float64Var(&opts.cancelRate, "cancel-rate", 0, "probability a buyer cancels right after reserving")
	flagSet.StringVar(&opts.jwtSecret, "jwt-secret", "jwt-secret", "secret used to mint buyer tokens")
	flagSet.StringVar(&opts.jwtIssuer, "jwt-issuer", "", "issuer claim for buyer tokens")
	flagSet.DurationVar(&opts.timeout, "timeout", time.Minute, "overall run timeout")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if opts.eventID == "" {
		flagSet.Usage()
		return fmt.Errorf("--event is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{Level: "info", Mode: "development", Encoding: "console"})
	auth := service.NewAuthService(service.AuthConfig{Secret: opts.jwtSecret, Issuer: opts.jwtIssuer}, clock.NewSystem(), l)

	cli, closeConn, err := pkgGrpc.NewInventoryClient(opts.addr)
	if err != nil {
		return err
	}
	defer closeConn()

	before, err := cli.GetAvailability(ctx, wrapperspb.String(opts.eventID))
	if err != nil {
		return fmt.Errorf("get availability: %w", err)
	}
	startAvailable := int64(before.GetFields()["available_tickets"].GetNumberValue())
	l.Infof(ctx, "Starting load test event=%s available=%d users=%d", opts.eventID, startAvailable, opts.users)

	var st stats
	started := time.Now()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)
	for i := 0; i < opts.users; i++ {
		buyer := models.Identity{UserID: fmt.Sprintf("loadtest-%d", i), Role: models.RoleUser}
		g.Go(func() error {
			return reserveOnce(gCtx, cli, auth, buyer, &opts, &st)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	after, err := cli.GetAvailability(ctx, wrapperspb.String(opts.eventID))
	if err != nil {
		return fmt.Errorf("get availability: %w", err)
	}
	endAvailable := int64(after.GetFields()["available_tickets"].GetNumberValue())

	held := st.granted.Load() - st.cancelled.Load()
	l.Infof(ctx, "Finished in %s granted=%d cancelled=%d sold_out=%d failed=%d available=%d",
		time.Since(started).Round(time.Millisecond), st.granted.Load(), st.cancelled.Load(),
		st.soldOut.Load(), st.failed.Load(), endAvailable)

	if held > startAvailable {
		return fmt.Errorf("oversold: %d seats held but only %d were available", held, startAvailable)
	}
	if endAvailable < 0 {
		return fmt.Errorf("availability went negative: %d", endAvailable)
	}
	return nil
}

func reserveOnce(ctx context.Context, cli pkgGrpc.InventoryServiceClient, auth service.AuthService, buyer models.Identity, opts *options, st *stats) error {
	token, err := auth.IssueToken(ctx, buyer, time.Hour)
	if err != nil {
		return err
	}
	callCtx := pkgGrpc.WithBearer(ctx, token)

	req, err := structpb.NewStruct(map[string]any{"event_id": opts.eventID})
	if err != nil {
		return err
	}

	res, err := cli.Reserve(callCtx, req)
	switch status.Code(err) {
	case codes.OK:
		st.granted.Add(1)
	case codes.ResourceExhausted:
		st.soldOut.Add(1)
		return nil
	default:
		st.failed.Add(1)
		return nil
	}

	if opts.cancelRate > 0 && rand.Float64() < opts.cancelRate {
		if _, err := cli.Cancel(callCtx, wrapperspb.String(res.GetFields()["id"].GetStringValue())); err == nil {
			st.cancelled.Add(1)
		}
	}
	return nil
}
