package llm

import (
	"context"
	"errors"
	"os"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	var opts []option.ClientOption
	if creds := os.Getenv("GOOGLE_CREDENTIALS_FILE"); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}

	c, err := vertexgenai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	return &VertexGemini{client: c, model: c.GenerativeModel(modelName)}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

// Complete sends the turns as one chat exchange. System turns become the
// system instruction; the final turn is the message, the rest history.
func (v *VertexGemini) Complete(ctx context.Context, turns []Turn) (string, error) {
	if len(turns) == 0 {
		return "", errors.New("llm: no turns")
	}

	var sys []string
	var convo []Turn
	for _, t := range turns {
		if t.Role == RoleSystem {
			sys = append(sys, t.Text)
			continue
		}
		convo = append(convo, t)
	}
	if len(convo) == 0 {
		return "", errors.New("llm: no user or model turns")
	}

	model := v.model
	if len(sys) > 0 {
		m := *v.model
		m.SystemInstruction = &vertexgenai.Content{
			Parts: []vertexgenai.Part{vertexgenai.Text(strings.Join(sys, "\n\n"))},
		}
		model = &m
	}

	cs := model.StartChat()
	for _, t := range convo[:len(convo)-1] {
		cs.History = append(cs.History, &vertexgenai.Content{
			Role:  t.Role,
			Parts: []vertexgenai.Part{vertexgenai.Text(t.Text)},
		})
	}

	resp, err := cs.SendMessage(ctx, vertexgenai.Text(convo[len(convo)-1].Text))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String(), nil
}
