package editor_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
)

func multipartRequest(target, video, fileName, content string) (*http.Request, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("video", video); err != nil {
		return nil, err
	}
	f, err := w.CreateFormFile("transcript-file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write([]byte(content)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}
