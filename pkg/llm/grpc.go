package llm

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// sidecarMethod is the fully-qualified gRPC method the sidecar exposes: a
// single server-streaming RPC taking a request envelope and returning a
// stream of chunk envelopes. Request/response bodies are carried as
// structpb.Struct rather than a purpose-generated message type — this repo
// has no protoc step, so the wire envelope uses the already-compiled
// well-known Struct message instead of hand-faking generated stubs.
const sidecarMethod = "/docuchat.llm.v1.LLMService/Generate"

// GRPCClient implements Client by calling the LLM sidecar over gRPC.
// Mirrors the teacher's GRPCLLMClient: insecure (plaintext) transport
// because the sidecar runs alongside this process, not across a network
// boundary.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// NewGRPCClient dials the sidecar at addr.
func NewGRPCClient(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial LLM sidecar at %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn}, nil
}

// Close releases the gRPC connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// Generate opens a server-streaming call to the sidecar and translates each
// received envelope into a Chunk. The returned channel is closed when the
// stream completes; a transport or vendor fault is delivered as a final
// ErrorChunk rather than a returned error.
func (c *GRPCClient) Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error) {
	req, err := toRequestEnvelope(input)
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	stream, err := c.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, sidecarMethod)
	if err != nil {
		return nil, fmt.Errorf("open LLM stream: %w", err)
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, fmt.Errorf("send generate request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("close generate request: %w", err)
	}

	ch := make(chan Chunk, 32)
	go func() {
		defer close(ch)
		for {
			resp := &structpb.Struct{}
			err := stream.RecvMsg(resp)
			if err == io.EOF {
				return
			}
			if err != nil {
				send(ctx, ch, &ErrorChunk{Message: err.Error(), Retryable: false})
				return
			}
			if chunk := fromChunkEnvelope(resp); chunk != nil {
				if !send(ctx, ch, chunk) {
					return
				}
			}
		}
	}()

	return ch, nil
}

func send(ctx context.Context, ch chan<- Chunk, c Chunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func toRequestEnvelope(input *GenerateInput) (*structpb.Struct, error) {
	messages := make([]any, len(input.Messages))
	for i, m := range input.Messages {
		messages[i] = map[string]any{"role": m.Role, "content": m.Content}
	}
	return structpb.NewStruct(map[string]any{
		"conversation_id": input.ConversationID,
		"model":           input.Model,
		"messages":        messages,
	})
}

func fromChunkEnvelope(s *structpb.Struct) Chunk {
	fields := s.GetFields()
	switch fields["type"].GetStringValue() {
	case "text":
		return &TextChunk{Content: fields["content"].GetStringValue()}
	case "usage":
		return &UsageChunk{
			InputTokens:  int(fields["input_tokens"].GetNumberValue()),
			OutputTokens: int(fields["output_tokens"].GetNumberValue()),
		}
	case "cost":
		return &CostChunk{USD: fields["usd"].GetNumberValue()}
	case "error":
		return &ErrorChunk{
			Message:   fields["message"].GetStringValue(),
			Retryable: fields["retryable"].GetBoolValue(),
		}
	default:
		return nil
	}
}
