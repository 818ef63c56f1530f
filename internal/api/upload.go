package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	scerrors "github.com/scorecloud/scorecloud-cli/internal/sdk/errors"
)

// ScoreIDFromSourceURL extracts the numeric score identity from the final
// path segment of a previous upload's source URL. A missing or non-numeric
// segment yields 0: "not yet uploaded".
func ScoreIDFromSourceURL(sourceURL string) int64 {
	parts := strings.Split(sourceURL, "/")
	if len(parts) == 0 {
		return 0
	}

	id, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// UploadScore publishes or updates a score. The returned handle reports
// started, progress and finished events; the network exchange runs off the
// caller's stack, so the handle is available before it begins.
//
// When the session is not authenticated the upload is deferred behind an
// authorization grant whose success callback is the upload itself.
func (c *Client) UploadScore(ctx context.Context, source io.Reader, title, sourceURL string) *Task {
	task := NewTask()

	go func() {
		content, err := io.ReadAll(source)
		if err != nil {
			task.start()
			task.finish(Result{Err: scerrors.ErrIO(err)})
			return
		}

		run := func() {
			task.start()

			var permalink string
			err := c.Execute(ctx, func() error {
				p, err := c.doUploadScore(ctx, content, title, sourceURL, task.progress)
				if err != nil {
					return err
				}
				permalink = p
				return nil
			})
			if err != nil {
				c.logger.Error("score upload failed", "error", err)
			}
			task.finish(Result{SourceURL: permalink, Err: err})
		}

		if c.auth.AccessToken() == "" {
			if err := c.auth.Authorize(ctx, c.cfg.AuthorizationURL, run); err != nil {
				task.start()
				task.finish(Result{Err: err})
			}
			return
		}
		run()
	}()

	return task
}

// doUploadScore runs one upload attempt. URLs are re-derived per attempt
// so a retry after refresh carries the new token, and the buffered content
// keeps the two attempts identity-stable.
func (c *Client) doUploadScore(ctx context.Context, content []byte, title, sourceURL string, progress func(current, total int64, message string)) (string, error) {
	scoreID := ScoreIDFromSourceURL(sourceURL)
	alreadyUploaded := scoreID != 0

	if alreadyUploaded {
		info, err := c.fetchScoreInfo(ctx, scoreID)
		switch {
		case scerrors.IsNotFound(err):
			// Expected when the score was deleted server-side; publish anew.
			alreadyUploaded = false
		case err != nil:
			return "", err
		case info.Owner.ID != c.session.Account().ID:
			// A different user owns this identity; never overwrite it.
			alreadyUploaded = false
		}
	}

	body, contentType, err := buildUploadBody(content, title, scoreID, alreadyUploaded, c.cfg.UploadingLicense())
	if err != nil {
		return "", err
	}

	uploadURL, err := c.prepareURL(c.cfg.UploadURL(), nil)
	if err != nil {
		return "", err
	}

	method := "POST"
	if alreadyUploaded {
		method = "PUT"
	}

	reader := &progressReader{
		r:     bytes.NewReader(body),
		total: int64(len(body)),
		fn:    progress,
	}

	req, err := http.NewRequestWithContext(ctx, method, uploadURL, reader)
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", scerrors.ErrNetwork(err)
	}
	defer resp.Body.Close()

	respBody, err := c.classify(resp)
	if err != nil {
		return "", err
	}

	var uploaded struct {
		Permalink string `json:"permalink"`
		EditURL   string `json:"edit_url"`
	}
	if jsonErr := json.Unmarshal(respBody, &uploaded); jsonErr != nil {
		return "", scerrors.ErrSourceURL()
	}

	permalink, err := url.Parse(uploaded.Permalink)
	if uploaded.Permalink == "" || err != nil || permalink.Scheme == "" {
		return "", scerrors.ErrSourceURL()
	}

	if uploaded.EditURL != "" {
		if err := c.interactor.OpenURL(uploaded.EditURL); err != nil {
			c.logger.Warn("could not open edit url", "url", uploaded.EditURL, "error", err)
		}
	}

	return uploaded.Permalink, nil
}

// buildUploadBody assembles the multipart form: the score stream under a
// randomized temp filename, the score identity when updating, the title,
// and the fixed license.
func buildUploadBody(content []byte, title string, scoreID int64, alreadyUploaded bool, license string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	// Random filename decorrelates concurrent uploads from one client.
	n := rand.Intn(100000) //nolint:gosec // G404: filename randomization, not security
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="score_data"; filename="temp_%d.mscz"`, n))
	header.Set("Content-Type", "application/octet-stream")

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}

	if alreadyUploaded {
		if err := w.WriteField("score_id", strconv.FormatInt(scoreID, 10)); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("title", title); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("license", license); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// progressReader reports bytes sent through it.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	fn    func(current, total int64, message string)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.fn != nil {
			p.fn(p.read, p.total, "uploading")
		}
	}
	return n, err
}
