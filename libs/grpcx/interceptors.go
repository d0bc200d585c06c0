package grpcx

import (
	"context"

	"github.com/md-rashed-zaman/dojobook/libs/requestid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryClientRequestIDInterceptor forwards the context's request id as outgoing metadata.
func UnaryClientRequestIDInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if id := requestid.FromContext(ctx); id != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, requestid.MetadataKey, id)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// UnaryServerRequestIDInterceptor adopts the caller's id when it is well formed,
// otherwise mints one, and returns it in the response header.
func UnaryServerRequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var inbound string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(requestid.MetadataKey); len(vals) > 0 {
				inbound = vals[0]
			}
		}
		id := requestid.OrNew(inbound)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestid.MetadataKey, id))
		return handler(requestid.NewContext(ctx, id), req)
	}
}
