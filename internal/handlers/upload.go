package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	chatservice "github.com/iyunix/go-pdfchat/internal/services/chat"
	"github.com/iyunix/go-pdfchat/internal/services/extract"
)

// multipart text fields are small; the limit leaves room for 4-byte runes.
const maxFieldBytes = maxBodyChars * 4

var errUploadTooLarge = errors.New("upload too large")

// readMultipartMessage streams a multipart/form-data send request. The file
// part is read up to maxUpload bytes and must be a PDF.
func readMultipartMessage(w http.ResponseWriter, r *http.Request, maxUpload int64) (sendMessageRequest, *chatservice.Attachment, error) {
	var req sendMessageRequest
	var file *chatservice.Attachment

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+2*maxFieldBytes+64<<10)
	reader, err := r.MultipartReader()
	if err != nil {
		return req, nil, fmt.Errorf("read multipart form: %w", err)
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return req, nil, uploadError(err)
		}

		switch part.FormName() {
		case "body":
			req.Body, err = readField(part)
		case "chatId":
			req.ChatID, err = readField(part)
			req.ChatID = strings.TrimSpace(req.ChatID)
		case "file":
			if file != nil {
				err = errors.New("only one file may be attached")
				break
			}
			file, err = readAttachment(part, maxUpload)
		}
		part.Close()
		if err != nil {
			return req, nil, uploadError(err)
		}
	}
	return req, file, nil
}

func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxFieldBytes {
		return "", fmt.Errorf("field %s is too long", part.FormName())
	}
	return string(data), nil
}

func readAttachment(part *multipart.Part, maxUpload int64) (*chatservice.Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxUpload+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxUpload {
		return nil, errUploadTooLarge
	}
	if len(data) == 0 {
		return nil, errors.New("attached file is empty")
	}
	if !extract.IsPDF(data) {
		return nil, errors.New("only PDF attachments are supported")
	}
	return &chatservice.Attachment{
		Filename:    part.FileName(),
		ContentType: extract.PDFContentType,
		Data:        data,
	}, nil
}

func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errUploadTooLarge
	}
	return err
}
