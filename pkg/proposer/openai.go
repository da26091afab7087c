package proposer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/repair"
)

// OpenAI calls an OpenAI-compatible chat completion endpoint with a
// JSON-schema-constrained response format
type OpenAI struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAI builds the proposer client. baseURL may be empty for the
// default endpoint; timeout bounds every individual call.
func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration, logger *zap.Logger) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

func (o *OpenAI) ProposeSchedule(ctx context.Context, req ScheduleRequest) (*ScheduleResponse, error) {
	system, user, err := buildSchedulePrompt(req)
	if err != nil {
		return nil, err
	}

	var resp ScheduleResponse
	if err := o.complete(ctx, system, user, "schedule_response", &ScheduleResponse{}, &resp); err != nil {
		return nil, err
	}
	if resp.Sessions == nil {
		return nil, fmt.Errorf("%w: missing sessions array", ErrBadShape)
	}
	return &resp, nil
}

func (o *OpenAI) RepairSession(ctx context.Context, req SessionRepairRequest) (*SessionRepairResponse, error) {
	system, user, err := buildSessionRepairPrompt(req)
	if err != nil {
		return nil, err
	}

	var resp SessionRepairResponse
	if err := o.complete(ctx, system, user, "session_repair_response", &SessionRepairResponse{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (o *OpenAI) ProposePatch(ctx context.Context, req repair.Request) (*repair.Response, error) {
	system, user, err := buildPatchPrompt(req)
	if err != nil {
		return nil, err
	}

	var resp repair.Response
	if err := o.complete(ctx, system, user, "patch_response", &repair.Response{}, &resp); err != nil {
		return nil, err
	}
	if resp.Patch == nil {
		return nil, fmt.Errorf("%w: missing patch array", ErrBadShape)
	}
	return &resp, nil
}

// complete issues one schema-constrained completion and decodes the
// single JSON object it returns into out
func (o *OpenAI) complete(ctx context.Context, system, user, schemaName string, shape, out any) error {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	o.logger.Debug("Calling proposer",
		zap.String("model", o.model),
		zap.String("schema", schemaName),
		zap.Int("user_payload_len", len(user)))

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: reflectSchema(shape),
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("proposer call failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return fmt.Errorf("%w: no choices returned", ErrBadShape)
	}

	content := completion.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadShape, err)
	}

	o.logger.Debug("Proposer responded", zap.Int("content_len", len(content)))
	return nil
}

// reflectSchema derives the response JSON schema from the Go type so the
// wire contract and the decoder can never drift apart
func reflectSchema(shape any) map[string]any {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(shape)

	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	return out
}
