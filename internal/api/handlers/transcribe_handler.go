package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nextround/backend/internal/services"
	"github.com/nextround/backend/internal/utils"
)

type TranscribeHandler struct {
	svc services.TranscriptionService
}

func NewTranscribeHandler(svc services.TranscriptionService) *TranscribeHandler {
	return &TranscribeHandler{svc: svc}
}

// Transcribe accepts a multipart upload under the "audio" field and returns
// the recognized text. Language defaults to en-US.
func (h *TranscribeHandler) Transcribe(c *gin.Context) {
	const op = "TranscribeHandler.Transcribe"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio file is required", err))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "failed to open audio file", err))
		return
	}
	defer f.Close()

	audio, err := io.ReadAll(f)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to read audio file", err))
		return
	}

	language := c.DefaultPostForm("language", "en-US")
	contentType := fileHeader.Header.Get("Content-Type")

	result, err := h.svc.Transcribe(c.Request.Context(), userID, fileHeader.Filename, contentType, audio, language)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
