package embeddings

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Pointed at a
// local text-embeddings-inference or Ollama server it serves Hugging Face models.
type OpenAIEmbedder struct {
	model  openai.EmbeddingModel
	client *openai.Client
}

// OpenAIOptions configures NewOpenAIEmbedder.
type OpenAIOptions struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewOpenAIEmbedder creates a new OpenAI-compatible embedder.
func NewOpenAIEmbedder(opts OpenAIOptions) (*OpenAIEmbedder, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("model required")
	}
	if opts.BaseURL == "" && opts.APIKey == "" {
		return nil, fmt.Errorf("api key required when no base url is set")
	}
	reqOpts := []option.RequestOption{
		// Local runtimes ignore the key but the header must not be empty.
		option.WithAPIKey(apiKeyOrPlaceholder(opts.APIKey)),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)
	return &OpenAIEmbedder{
		model:  openai.EmbeddingModel(opts.Model),
		client: &cli,
	}, nil
}

func (e *OpenAIEmbedder) Name() string { return "openai" }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if e == nil || e.client == nil {
		return nil, fmt.Errorf("nil openai client")
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai: empty embedding result")
	}
	return fromFloat64(resp.Data[0].Embedding), nil
}

func apiKeyOrPlaceholder(key string) string {
	if key == "" {
		return "unused"
	}
	return key
}
