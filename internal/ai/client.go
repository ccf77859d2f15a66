package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// gRPC connection settings
	MaxRetries       = 3
	RetryBackoff     = 200 * time.Millisecond
	KeepAliveTime    = 10 * time.Second
	KeepAliveTimeout = 5 * time.Second
	MaxRecvMsgSize   = 4 * 1024 * 1024 // 4MB
	MaxSendMsgSize   = 4 * 1024 * 1024 // 4MB

	SummarizeMethod = "/summary.SummaryService/Summarize"
)

// ErrEmptySummary the server answered with blank text
var ErrEmptySummary = errors.New("empty summary")

// GrpcSummarizer client of the summarization service
type GrpcSummarizer struct {
	conn *grpc.ClientConn
	addr string
}

// NewGrpcSummarizer creates the client. The connection is established lazily.
func NewGrpcSummarizer(addr string, extra ...grpc.DialOption) (*GrpcSummarizer, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(MaxRecvMsgSize),
			grpc.MaxCallSendMsgSize(MaxSendMsgSize),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                KeepAliveTime,
			Timeout:             KeepAliveTimeout,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client %s: %w", addr, err)
	}

	log.Info().Str("module", "ai").Str("addr", addr).Msg("summarizer client ready")
	return &GrpcSummarizer{conn: conn, addr: addr}, nil
}

// Summarize sends digest and returns the trimmed summary. Unavailable errors are retried.
func (c *GrpcSummarizer) Summarize(ctx context.Context, digest string) (string, error) {
	req := wrapperspb.String(digest)

	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(RetryBackoff * time.Duration(attempt)):
			}
		}

		resp := &wrapperspb.StringValue{}
		err := c.conn.Invoke(ctx, SummarizeMethod, req, resp)
		if err == nil {
			text := strings.TrimSpace(resp.GetValue())
			if text == "" {
				return "", ErrEmptySummary
			}
			return text, nil
		}

		lastErr = err
		if status.Code(err) != codes.Unavailable {
			break
		}
		log.Warn().Err(err).Str("module", "ai").Int("attempt", attempt+1).Msg("summarizer unavailable")
	}
	return "", fmt.Errorf("summarize: %w", lastErr)
}

// State connectivity state name
func (c *GrpcSummarizer) State() string {
	return c.conn.GetState().String()
}

// Addr target address
func (c *GrpcSummarizer) Addr() string {
	return c.addr
}

// Close closes the connection.
func (c *GrpcSummarizer) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
