package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// AudioTranscriber is the slice of the OpenAI client used for Whisper.
type AudioTranscriber interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Transcriber downloads customer voice messages and converts them to text.
type Transcriber struct {
	client     AudioTranscriber
	httpClient *http.Client
}

// NewTranscriber creates an audio transcriber.
func NewTranscriber(client AudioTranscriber) *Transcriber {
	return &Transcriber{
		client: client,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Transcribe fetches the audio at url and runs it through Whisper. Callers
// treat errors as degradation, not failure: a voice message that cannot be
// transcribed still enters the conversation as an audio placeholder.
func (t *Transcriber) Transcribe(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("erro ao montar download do áudio: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("erro ao baixar áudio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download do áudio retornou status %d", resp.StatusCode)
	}

	audioResp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   io.NopCloser(resp.Body),
		FilePath: "audio.ogg",
		Language: "pt",
	})
	if err != nil {
		return "", fmt.Errorf("erro na transcrição: %w", err)
	}

	log.Info().Int("chars", len(audioResp.Text)).Msg("🎙️ Áudio transcrito")
	return audioResp.Text, nil
}
