package tenant

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/vberezan/multitier/internal/observability"
)

// UnaryServerInterceptor resolves the tenant named by x-multitier-site
// metadata and stamps it into the handler context.
func UnaryServerInterceptor(registry Registry, logger observability.Logger) grpc.UnaryServerInterceptor {
	resolver := NewResolver(registry, logger)
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		return handler(resolveMetadata(ctx, resolver), req)
	}
}

// StreamServerInterceptor resolves the tenant named by x-multitier-site
// metadata and stamps it into the stream context.
func StreamServerInterceptor(registry Registry, logger observability.Logger) grpc.StreamServerInterceptor {
	resolver := NewResolver(registry, logger)
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := resolveMetadata(ss.Context(), resolver)
		if ctx == ss.Context() {
			return handler(srv, ss)
		}
		return handler(srv, &tenantServerStream{ServerStream: ss, ctx: ctx})
	}
}

// resolveMetadata looks up the site slug carried in incoming metadata.
// Requests without the key, or naming an unknown site, keep their
// original context.
func resolveMetadata(ctx context.Context, resolver *Resolver) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	values := md.Get(MetadataKey)
	if len(values) == 0 || values[0] == "" {
		return ctx
	}
	rec := resolver.Resolve(ctx, values[0], "", "")
	if rec == nil {
		return ctx
	}
	return NewContext(ctx, rec)
}

// tenantServerStream overrides the stream context with the tenant-stamped
// one.
type tenantServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the tenant-stamped context.
func (s *tenantServerStream) Context() context.Context {
	return s.ctx
}
