package ai

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// SummaryServer server side of summary.SummaryService
type SummaryServer interface {
	Summarize(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// SummaryServiceDesc service descriptor using the well-known wrapper types
var SummaryServiceDesc = grpc.ServiceDesc{
	ServiceName: "summary.SummaryService",
	HandlerType: (*SummaryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Summarize",
			Handler:    summarizeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "summary.proto",
}

// RegisterSummaryServer registers srv on s.
func RegisterSummaryServer(s grpc.ServiceRegistrar, srv SummaryServer) {
	s.RegisterService(&SummaryServiceDesc, srv)
}

func summarizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SummaryServer).Summarize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SummarizeMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SummaryServer).Summarize(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}
