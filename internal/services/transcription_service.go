package services

import (
	"bytes"
	"context"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/nextround/backend/internal/providers/stt"
	"github.com/nextround/backend/internal/storage"
	"github.com/nextround/backend/internal/utils"
)

const maxAudioBytes = 10 << 20

// TranscriptionResult carries the recognized text plus a short-lived URL to
// the stored recording.
type TranscriptionResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	AudioURL   string  `json:"audio_url,omitempty"`
}

type TranscriptionService interface {
	Transcribe(ctx context.Context, userID, filename, contentType string, audio []byte, language string) (*TranscriptionResult, error)
}

type transcriptionService struct {
	stt      stt.Provider
	uploader storage.Uploader
	signer   storage.Signer
}

// NewTranscriptionService builds the speech pipeline. uploader and signer
// may be nil, in which case recordings are transcribed without being kept.
func NewTranscriptionService(provider stt.Provider, uploader storage.Uploader, signer storage.Signer) TranscriptionService {
	return &transcriptionService{stt: provider, uploader: uploader, signer: signer}
}

func (s *transcriptionService) Transcribe(ctx context.Context, userID, filename, contentType string, audio []byte, language string) (*TranscriptionResult, error) {
	const op = "TranscriptionService.Transcribe"

	if len(audio) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no audio provided", nil)
	}
	if len(audio) > maxAudioBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio file too large", nil)
	}

	result := &TranscriptionResult{}

	if s.uploader != nil {
		ext := path.Ext(filename)
		if ext == "" {
			ext = ".webm"
		}
		objectName := "answers/" + userID + "/" + uuid.NewString() + ext
		if _, err := s.uploader.Upload(ctx, objectName, contentType, bytes.NewReader(audio)); err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to store audio", err)
		}
		if s.signer != nil {
			if url, err := s.signer.SignedGetURL(ctx, objectName, time.Hour); err == nil {
				result.AudioURL = url
			}
		}
	}

	text, conf, err := s.stt.Transcribe(ctx, audio, language)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "transcription failed", err)
	}

	result.Text = text
	result.Confidence = conf
	return result, nil
}
