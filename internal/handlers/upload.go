package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/AnshRaj112/salvioris-chatsync/internal/services"
)

const maxUploadSize = 10 << 20 // 10MB

var errFileTooLarge = errors.New("file exceeds 10MB")

// messageInput is the body of every send/post request. Attachments arrive as
// multipart form data with the text in the "text" field and the file in "file".
type messageInput struct {
	Text string           `json:"text"`
	File *services.Upload `json:"-"`
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mt, "multipart/")
}

// readMessage parses a JSON or multipart message body. It answers 400 itself
// and returns false when the body is unusable.
func readMessage(w http.ResponseWriter, r *http.Request) (messageInput, bool) {
	var in messageInput
	if !isMultipart(r) {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeFail(w, http.StatusBadRequest, "Invalid request body")
			return in, false
		}
		return in, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeFail(w, http.StatusBadRequest, "Failed to parse form: "+err.Error())
		return in, false
	}
	in.Text = r.FormValue("text")
	file, err := readUpload(r, "file")
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Failed to read file: "+err.Error())
		return in, false
	}
	in.File = file
	return in, true
}

// readUpload returns the file in form field, or nil when none was sent.
// The multipart form must already be parsed.
func readUpload(r *http.Request, field string) (*services.Upload, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUploadSize {
		return nil, errFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &services.Upload{Name: header.Filename, ContentType: contentType, Data: data}, nil
}
