package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"salonbook/internal/config"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	clientKeyUnknown      = "unknown"

	permReadAvailability = "read:availability"
	permReadCatalog      = "read:catalog"
	permReadBookings     = "read:bookings"
	permWriteBookings    = "write:bookings"
	permWriteDrafts      = "write:drafts"
	permWriteRoster      = "write:roster"
	permExport           = "read:export"
)

var (
	errMissingKey       = errors.New("missing api key headers")
	errInvalidKey       = errors.New("invalid api key")
	errInvalidExtra     = errors.New("invalid extra header")
	errPermissionDenied = errors.New("permission denied")
)

// keyring validates api key pairs for both the HTTP and the gRPC API.
type keyring struct {
	apiKeyHeader string
	extraHeader  string
	clients      map[string]config.APIClientKey
}

func newKeyring(cfg config.APIAuthConfig) *keyring {
	m := make(map[string]config.APIClientKey, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		m[k.Key] = k
	}

	apiKeyHeader := strings.ToLower(strings.TrimSpace(cfg.HeaderAPIKey))
	if apiKeyHeader == "" {
		apiKeyHeader = apiKeyHeaderDefault
	}
	extraHeader := strings.ToLower(strings.TrimSpace(cfg.HeaderExtra))
	if extraHeader == "" {
		extraHeader = apiExtraHeaderDefault
	}

	return &keyring{apiKeyHeader: apiKeyHeader, extraHeader: extraHeader, clients: m}
}

func (k *keyring) authenticate(apiKey, extra, required string) (config.APIClientKey, error) {
	if apiKey == "" || extra == "" {
		return config.APIClientKey{}, errMissingKey
	}

	client, ok := k.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, errInvalidExtra
	}
	if !hasPermission(client, required) {
		return client, errPermissionDenied
	}
	return client, nil
}

// hasPermission treats an empty permission list as allow-all.
func hasPermission(client config.APIClientKey, required string) bool {
	if required == "" || len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

type AuthInterceptor struct {
	cfg     *config.APIConfig
	keys    *keyring
	limiter *rateLimiter
}

func NewAuthInterceptor(cfg *config.APIConfig) *AuthInterceptor {
	return &AuthInterceptor{
		cfg:     cfg,
		keys:    newKeyring(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !a.cfg.Enabled {
			return handler(ctx, req)
		}

		if a.cfg.Auth.Enabled && !isHealthMethod(info.FullMethod) {
			if err := a.checkAuth(ctx, info.FullMethod); err != nil {
				return nil, err
			}
		}
		if ok, _ := a.limiter.allow(a.clientKey(ctx)); !ok {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}

		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) checkAuth(ctx context.Context, fullMethod string) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}

	apiKey := first(md.Get(a.keys.apiKeyHeader))
	extra := first(md.Get(a.keys.extraHeader))
	_, err := a.keys.authenticate(apiKey, extra, requiredPermission(fullMethod))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		return status.Error(codes.Unauthenticated, err.Error())
	}
}

func requiredPermission(fullMethod string) string {
	switch fullMethod {
	case methodGetStartTimes, methodCheckSlot:
		return permReadAvailability
	case methodListServices:
		return permReadCatalog
	default:
		return ""
	}
}

func isHealthMethod(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/")
}

func (a *AuthInterceptor) clientKey(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if apiKey := first(md.Get(a.keys.apiKeyHeader)); apiKey != "" {
		return apiKey
	}
	return remoteAddr(ctx)
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
