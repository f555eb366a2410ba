// Package grpc serves authkeeper.v1.TokenService and the standard health
// service.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/tokenpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Accounts is the part of users.Service exposed over gRPC.
type Accounts interface {
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Profile(ctx context.Context, id string) (*models.User, error)
}

type Rotator interface {
	Rotate(ctx context.Context, oldValue string) (*models.TokenPair, error)
}

type AccessTokenDecoder interface {
	Decode(token string) (*auth.Claims, error)
}

type GRPCServer struct {
	address  string
	accounts Accounts
	rotator  Rotator
	decoder  AccessTokenDecoder
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, accounts Accounts, rotator Rotator, decoder AccessTokenDecoder) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		accounts: accounts,
		rotator:  rotator,
		decoder:  decoder,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	tokenpb.RegisterTokenServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(tokenpb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
