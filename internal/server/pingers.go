package server

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantPinger reports the health of the vector store via its native
// HealthCheck RPC.
type QdrantPinger struct {
	client *qdrant.Client
}

func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

func (p *QdrantPinger) Name() string { return "qdrant" }

func (p *QdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant unreachable: %w", err)
	}
	return nil
}

// LLMPinger reports the health of the chat backend by issuing a minimal
// generate request. Each probe consumes a few tokens, so /api/ready should
// not be polled aggressively.
type LLMPinger struct {
	model model.ToolCallingChatModel
	name  string // backend label in readiness responses, e.g. "ollama"
}

func NewLLMPinger(m model.ToolCallingChatModel, name string) *LLMPinger {
	return &LLMPinger{model: m, name: name}
}

func (p *LLMPinger) Name() string { return p.name }

func (p *LLMPinger) Ping(ctx context.Context) error {
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("%s generate failed: %w", p.name, err)
	}
	if resp == nil {
		return fmt.Errorf("%s returned an empty response", p.name)
	}
	return nil
}
