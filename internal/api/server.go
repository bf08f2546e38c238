package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/domain"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// availability requests are small Struct messages
const grpcMaxRecvBytes = 256 << 10

// GRPCServer serves the availability service together with the standard
// health service.
type GRPCServer struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
	log      zerolog.Logger
}

func NewGRPCServer(
	cfg *config.APIConfig,
	bookings domain.BookingService,
	catalog domain.CatalogService,
	logger *zerolog.Logger,
) (*GRPCServer, error) {
	addr := fmt.Sprintf(":%d", cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen %s: %w", addr, err)
	}

	srv, err := newGRPCServer(cfg, lis, NewAvailabilityService(bookings, catalog), logger)
	if err != nil {
		_ = lis.Close()
		return nil, err
	}
	return srv, nil
}

func newGRPCServer(cfg *config.APIConfig, lis net.Listener, svc AvailabilityServer, logger *zerolog.Logger) (*GRPCServer, error) {
	opts, err := serverOptions(cfg, logger)
	if err != nil {
		return nil, err
	}

	grpcServer := grpc.NewServer(opts...)
	grpcServer.RegisterService(&availabilityServiceDesc, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus(availabilityServiceName, healthpb.HealthCheckResponse_SERVING)

	if cfg.GRPC.Reflection {
		reflection.Register(grpcServer)
	}

	s := &GRPCServer{server: grpcServer, health: hs, listener: lis, log: zerolog.Nop()}
	if logger != nil {
		s.log = logger.With().Str("component", "grpc").Logger()
	}
	return s, nil
}

func serverOptions(cfg *config.APIConfig, logger *zerolog.Logger) ([]grpc.ServerOption, error) {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			LoggingUnaryInterceptor(logger),
			RecoveryUnaryInterceptor(logger),
			NewAuthInterceptor(cfg).Unary(),
		),
		grpc.MaxRecvMsgSize(grpcMaxRecvBytes),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 5 * time.Minute,
			Time:              time.Minute,
			Timeout:           20 * time.Second,
		}),
	}

	if !cfg.GRPC.TLS.Enabled {
		return opts, nil
	}
	tlsCfg, err := buildTLSConfig(cfg.GRPC.TLS)
	if err != nil {
		return nil, err
	}
	return append(opts, grpc.Creds(credentials.NewTLS(tlsCfg))), nil
}

func buildTLSConfig(cfg config.APITLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, errors.New("grpc tls enabled but cert_file/key_file not set")
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load grpc tls keypair: %w", err)
	}

	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if !cfg.RequireClientCert {
		return tlsCfg, nil
	}

	// mTLS: front desk terminals present certificates issued by the salon CA
	if cfg.ClientCAFile == "" {
		return nil, errors.New("grpc tls require_client_cert=true but client_ca_file not set")
	}
	pool, err := loadCertPool(cfg.ClientCAFile)
	if err != nil {
		return nil, err
	}
	tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	tlsCfg.ClientCAs = pool
	return tlsCfg, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	caPEM, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client_ca_file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("client_ca_file %s has no PEM certificates", path)
	}
	return pool, nil
}

func (s *GRPCServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *GRPCServer) Serve() error {
	s.log.Info().Str("addr", s.Addr()).Msg("gRPC API listening")
	return s.server.Serve(s.listener)
}

// Shutdown drains in-flight calls until ctx expires, then stops hard.
func (s *GRPCServer) Shutdown(ctx context.Context) {
	// клиенты health-check увидят NOT_SERVING до остановки
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn().Msg("gRPC graceful shutdown timed out; forcing stop")
		s.server.Stop()
		<-done
	}
}
