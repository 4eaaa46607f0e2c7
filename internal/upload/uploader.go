// Package upload ships encoded profiles to the ingestion endpoint.
//
// Upload failures are reduced to log lines and never propagate: a broken
// network must degrade profiling to "no data", not disturb the host
// process.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"

	xerrors "github.com/driftlabs/driftscope/internal/errors"
	"github.com/driftlabs/driftscope/internal/tags"
)

const (
	// IngestPath is the fixed path segment of the ingestion endpoint.
	IngestPath = "/ingest"
	// SampleRate is the fixed sample-rate query value the endpoint expects.
	SampleRate = 100

	// formField is the multipart field carrying the encoded profile.
	formField = "profile"
	// responseBodyLimit caps how much of an error response is logged.
	responseBodyLimit = 2048
)

// defaultTimeout bounds a single upload request.
const defaultTimeout = 10 * time.Second

// Uploader POSTs encoded profiles to a single ingestion endpoint with a
// fixed application name and tag set.
type Uploader struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// New creates an Uploader targeting serverURL for the given application
// and tags. A nil client gets a default whose request timeout is timeout,
// or ten seconds when timeout is zero.
func New(serverURL, appName string, tagSet map[string]string, client *http.Client, timeout time.Duration, logger zerolog.Logger) *Uploader {
	if client == nil {
		if timeout == 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Uploader{
		url:    BuildURL(serverURL, appName, tagSet),
		client: client,
		logger: logger.With().Str("component", "uploader").Logger(),
	}
}

// BuildURL assembles the ingestion URL. The tag fragment is appended to
// the name parameter verbatim; the endpoint parses the braced fragment
// itself and does not expect percent-encoding.
func BuildURL(serverURL, appName string, tagSet map[string]string) string {
	base := strings.TrimSuffix(serverURL, "/")
	return fmt.Sprintf("%s%s?name=%s%s&sampleRate=%d",
		base, IngestPath, appName, tags.Fragment(tagSet), SampleRate)
}

// URL returns the target URL uploads are sent to.
func (u *Uploader) URL() string {
	return u.url
}

// Upload encodes p and POSTs it as a multipart form. Every failure mode
// is logged and swallowed; callers never observe an error.
func (u *Uploader) Upload(ctx context.Context, p *profile.Profile) {
	var encoded bytes.Buffer
	if err := p.Write(&encoded); err != nil {
		u.logger.Error().Err(err).Msg("Failed to encode profile, dropping upload")
		return
	}

	body, contentType, err := buildForm(encoded.Bytes())
	if err != nil {
		u.logger.Error().Err(err).Msg("Failed to build multipart form, dropping upload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, body)
	if err != nil {
		u.logger.Error().Err(err).Str("url", u.url).Msg("Failed to build upload request")
		return
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.Error().Err(err).Str("url", u.url).Msg("No response from ingestion endpoint")
		return
	}
	defer xerrors.DeferClose(u.logger, resp.Body, "failed to close upload response body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
		u.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("Ingestion endpoint rejected profile upload")
		return
	}

	u.logger.Debug().
		Int("bytes", encoded.Len()).
		Int("status", resp.StatusCode).
		Msg("Uploaded profile")
}

// buildForm packages the encoded profile as a single multipart field.
// The part carries the content type and byte length the endpoint expects
// as file metadata.
func buildForm(encoded []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, formField, formField+".pb.gz"))
	header.Set("Content-Type", "text/json")
	header.Set("Content-Length", strconv.Itoa(len(encoded)))

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(encoded); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
