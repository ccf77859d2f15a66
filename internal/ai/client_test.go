package ai

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeSummary struct {
	calls    atomic.Int32
	failures int32
	code     codes.Code
	reply    string
	got      atomic.Value
}

func (f *fakeSummary) Summarize(_ context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	n := f.calls.Add(1)
	f.got.Store(in.GetValue())
	if n <= f.failures {
		return nil, status.Error(f.code, "not now")
	}
	return wrapperspb.String(f.reply), nil
}

func startServer(t *testing.T, srv SummaryServer) *GrpcSummarizer {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterSummaryServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	client, err := NewGrpcSummarizer("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// TestSummarize covers success, retry on Unavailable and terminal failures.
func TestSummarize(t *testing.T) {
	tests := []struct {
		name      string
		server    *fakeSummary
		want      string
		wantErr   bool
		wantCalls int32
	}{
		{
			name:      "trimmed reply",
			server:    &fakeSummary{reply: "  one line  "},
			want:      "one line",
			wantCalls: 1,
		},
		{
			name:      "retries unavailable",
			server:    &fakeSummary{failures: 2, code: codes.Unavailable, reply: "ok"},
			want:      "ok",
			wantCalls: 3,
		},
		{
			name:      "gives up after max retries",
			server:    &fakeSummary{failures: 10, code: codes.Unavailable},
			wantErr:   true,
			wantCalls: MaxRetries,
		},
		{
			name:      "no retry on other codes",
			server:    &fakeSummary{failures: 10, code: codes.InvalidArgument},
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:      "blank reply",
			server:    &fakeSummary{reply: "   "},
			wantErr:   true,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := startServer(t, tt.server)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			got, err := client.Summarize(ctx, "texts: hi")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				assert.Equal(t, "texts: hi", tt.server.got.Load())
			}
			assert.Equal(t, tt.wantCalls, tt.server.calls.Load())
		})
	}
}

// TestSummarizeBlankIsSentinel verifies blank replies map to ErrEmptySummary.
func TestSummarizeBlankIsSentinel(t *testing.T) {
	client := startServer(t, &fakeSummary{reply: ""})
	_, err := client.Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptySummary)
	assert.Equal(t, "passthrough:///bufnet", client.Addr())
	assert.NotEmpty(t, client.State())
}
