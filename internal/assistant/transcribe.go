package assistant

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Transcriber converts voice notes to text before they enter the turn
// pipeline. Channel adapters call it when an inbound message carries
// audio and no text.
type Transcriber struct {
	provider Provider
	logger   *zap.Logger
}

func NewTranscriber(provider Provider, logger *zap.Logger) *Transcriber {
	return &Transcriber{provider: provider, logger: logger}
}

// Transcribe runs speech-to-text over the audio stream. The file name
// only tells the provider the container format.
func (t *Transcriber) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	resp, err := t.provider.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: fileName,
		Reader:   audio,
	})
	if err != nil {
		t.logger.Error("Failed to transcribe audio", zap.Error(err), zap.String("file", fileName))
		return "", fmt.Errorf("%w: transcribing audio: %v", ErrProviderUnavailable, err)
	}

	return resp.Text, nil
}
