package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockModel sends pricing prompts through the Bedrock Converse API.
type BedrockModel struct {
	api     bedrockConverseAPI
	modelID string
}

// NewBedrockModel wraps a Converse client.
func NewBedrockModel(api bedrockConverseAPI, modelID string) (*BedrockModel, error) {
	if api == nil {
		return nil, errors.New("quotes: bedrock client is required")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("quotes: bedrock model id is required")
	}
	return &BedrockModel{api: api, modelID: modelID}, nil
}

// Generate implements visionModel.
func (b *BedrockModel) Generate(ctx context.Context, prompt string, img *ImageInput) (string, error) {
	content := []brtypes.ContentBlock{
		&brtypes.ContentBlockMemberText{Value: prompt},
	}
	if img != nil {
		format, err := imageFormat(img.MIMEType)
		if err != nil {
			return "", err
		}
		if format == "heic" {
			return "", fmt.Errorf("%w: bedrock does not accept heic", ErrUnsupportedImage)
		}
		content = append(content, &brtypes.ContentBlockMemberImage{
			Value: brtypes.ImageBlock{
				Format: brtypes.ImageFormat(format),
				Source: &brtypes.ImageSourceMemberBytes{Value: img.Data},
			},
		})
	}

	out, err := b.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.modelID),
		Messages: []brtypes.Message{{
			Role:    brtypes.ConversationRoleUser,
			Content: content,
		}},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(1024),
			Temperature: aws.Float32(0.2),
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock converse: %w", err)
	}
	return bedrockOutputText(out)
}

func bedrockOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", errors.New("bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("bedrock response did not include a message output")
	}
	var builder strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			builder.WriteString(textBlock.Value)
		}
	}
	if strings.TrimSpace(builder.String()) == "" {
		return "", errors.New("bedrock response contained no text")
	}
	return builder.String(), nil
}
