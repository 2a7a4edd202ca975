package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/grievance/internal/metrics"
)

// UploadField is the multipart field name the grievance service reads
const UploadField = "pdf"

// Upload is a file to be sent as multipart form data
type Upload struct {
	// Name is the file name reported to the server
	Name string

	// Content is read to completion before the request is sent
	Content io.Reader
}

// ProgressFunc receives upload progress as a percentage in [0,100]
type ProgressFunc func(percent float64)

// UploadFile sends file as the single multipart field "pdf".
//
// onProgress is optional and best-effort: it is called each time the
// transport consumes part of the body, with strictly increasing values
// ending at 100 once the whole body has been sent. The result does not
// depend on whether it was ever called.
func (c *Client) UploadFile(ctx context.Context, path string, file Upload, onProgress ProgressFunc) (json.RawMessage, error) {
	start := time.Now()
	r := Request{Method: http.MethodPost, Path: path}

	body, contentType, err := encodeMultipart(file)
	if err != nil {
		return nil, c.failUpload(r, start, err)
	}

	total := int64(body.Len())
	reader := &progressReader{r: body, total: total, report: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), reader)
	if err != nil {
		return nil, c.failUpload(r, start, err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.failUpload(r, start, err)
	}
	defer resp.Body.Close()

	data, err := normalizeUpload(resp)
	if err != nil {
		return nil, c.fail(r, start, err)
	}

	c.metrics.ObserveUpload(metrics.OutcomeOK, total)
	c.metrics.ObserveRequest(r.Method, metrics.OutcomeOK, time.Since(start))
	return data, nil
}

// failUpload reports a transport-level upload failure
func (c *Client) failUpload(r Request, start time.Time, cause error) error {
	c.metrics.ObserveUpload(metrics.OutcomeTransportError, 0)
	return c.fail(r, start, &TransportError{
		Op:      "upload " + r.Path,
		Message: msgUploadFailed,
		Cause:   cause,
	})
}

// normalizeUpload treats every rejected upload as an APIError, so a
// non-JSON or empty error page still reads "Upload failed". Accepted
// uploads go through the usual response contract.
func normalizeUpload(resp *http.Response) (json.RawMessage, error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return normalize(resp, msgUploadFailed)
	}

	message := msgUploadFailed
	body, _ := io.ReadAll(resp.Body)
	var rejection struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &rejection) == nil && rejection.Error != "" {
		message = rejection.Error
	}
	return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
}

// encodeMultipart buffers the form so the total size is known up front
func encodeMultipart(file Upload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	name := filepath.Base(file.Name)
	if name == "." || name == string(filepath.Separator) {
		name = "upload.pdf"
	}

	part, err := mw.CreateFormFile(UploadField, name)
	if err != nil {
		return nil, "", err
	}
	if file.Content != nil {
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &buf, mw.FormDataContentType(), nil
}

// progressReader reports cumulative bytes consumed by the transport
type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.report != nil && p.total > 0 {
			p.report(float64(p.sent) / float64(p.total) * 100)
		}
	}
	return n, err
}
