package server

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/engli-ai/engli/internal/pipeline"
)

// Uploaded utterances are short voice clips; 16 MiB is generous.
const maxAudioUpload = 16 << 20

type turnRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	Transcript string `json:"transcript"`
	Reply      string `json:"reply"`
	Translated string `json:"translated,omitempty"`
	AudioB64   string `json:"audio_b64,omitempty"`
	AudioError string `json:"audio_error,omitempty"`
}

// handleTurn runs one conversation turn. The utterance arrives either
// as a multipart "audio" file (WAV) or as JSON {"text": "..."}.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	in, err := readUtterance(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.pipe.RunTurn(r.Context(), sess, in)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := turnResponse{
		Transcript: result.Transcript,
		Reply:      result.Reply,
		Translated: result.Translated,
		AudioError: result.AudioError,
	}
	if len(result.Audio) > 0 {
		resp.AudioB64 = base64.StdEncoding.EncodeToString(result.Audio)
	}
	JSON(w, http.StatusOK, resp)
}

// readUtterance extracts the user's input from either encoding.
func readUtterance(r *http.Request) (pipeline.Input, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		audio, err := readAudioUpload(r)
		if err != nil {
			return pipeline.Input{}, err
		}
		return pipeline.Input{Audio: audio}, nil
	}

	var req turnRequest
	if err := decodeJSON(r, &req); err != nil {
		return pipeline.Input{}, err
	}
	return pipeline.Input{Text: strings.TrimSpace(req.Text)}, nil
}

func readAudioUpload(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxAudioUpload))
}
