package transport

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// TokenMetadataKey carries the controller token on every call.
const TokenMetadataKey = "authorization"

type tokenCredentials struct {
	token      string
	requireTLS bool
}

func (t tokenCredentials) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	return map[string]string{TokenMetadataKey: "Bearer " + t.token}, nil
}

func (t tokenCredentials) RequireTransportSecurity() bool {
	return t.requireTLS
}

// TokenFromContext extracts the bearer token a client attached. Servers
// use it to authenticate callers.
func TokenFromContext(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get(TokenMetadataKey)
	if len(values) == 0 {
		return "", false
	}
	const prefix = "Bearer "
	if len(values[0]) < len(prefix) || values[0][:len(prefix)] != prefix {
		return "", false
	}
	return values[0][len(prefix):], true
}
