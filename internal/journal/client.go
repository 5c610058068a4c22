// Package journal issues range-bounded HTTP GETs against a systemd-journal
// gateway's /entries endpoint and decodes the newline-delimited JSON records
// it streams back, without ever buffering a full response into memory.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/errs"
)

// RequestTimeout bounds every gateway request, per spec.md §4.2.
const RequestTimeout = 30 * time.Second

// Record is a decoded journal entry, keyed by its original field names
// (__CURSOR, MESSAGE, PRIORITY, _SYSTEMD_UNIT, and any custom fields).
type Record map[string]string

// Mode selects how the next request resumes: from a specific cursor, or
// from the start of the current boot.
type Mode struct {
	cursor   string
	fromBoot bool
}

// FromCursor resumes strictly after the given cursor.
func FromCursor(c string) Mode { return Mode{cursor: c} }

// FromCurrentBoot starts from the beginning of the current boot, used after
// a CursorInvalid reset or on first run with no persisted cursor.
func FromCurrentBoot() Mode { return Mode{fromBoot: true} }

// Batch is one cycle's worth of decoded records, in gateway order, plus the
// counts of records dropped at decode time: for lacking a commit point, or
// for being syntactically valid JSON that isn't a journal record object.
type Batch struct {
	Records          []Record
	DroppedNoCursor  int
	DroppedMalformed int
}

// Client fetches batches from a journal gateway over a shared *http.Client.
type Client struct {
	httpClient *http.Client
}

// NewClient wraps an existing *http.Client (expected to be shared across all
// collectors per spec.md §5) for use as a journal gateway client.
func NewClient(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

var cursorInvalidBody = regexp.MustCompile(`(?i)cursor|invalid`)

// Fetch issues one GET /entries request and decodes the response.
func (c *Client) Fetch(ctx context.Context, baseURL string, units []string, mode Mode, limit int) (Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	req, err := c.buildRequest(ctx, baseURL, units, mode, limit)
	if err != nil {
		return Batch{}, errs.New(errs.KindSourceProtocol, "journal.Fetch", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Batch{}, errs.New(errs.KindSourceUnavailable, "journal.Fetch", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return Batch{}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return decodeBatch(resp.Body)

	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return Batch{}, errs.New(errs.KindCursorInvalid, "journal.Fetch",
			fmt.Errorf("gateway returned %d", resp.StatusCode))

	case resp.StatusCode == http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if cursorInvalidBody.Match(body) {
			return Batch{}, errs.New(errs.KindCursorInvalid, "journal.Fetch",
				fmt.Errorf("gateway returned 400: %s", body))
		}
		return Batch{}, errs.New(errs.KindSourceProtocol, "journal.Fetch",
			fmt.Errorf("gateway returned 400: %s", body))

	case resp.StatusCode >= 500:
		return Batch{}, errs.New(errs.KindSourceUnavailable, "journal.Fetch",
			fmt.Errorf("gateway returned %d", resp.StatusCode))

	default:
		return Batch{}, errs.New(errs.KindSourceProtocol, "journal.Fetch",
			fmt.Errorf("gateway returned %d", resp.StatusCode))
	}
}

func (c *Client) buildRequest(ctx context.Context, baseURL string, units []string, mode Mode, limit int) (*http.Request, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/entries")
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	var parts []string
	if mode.fromBoot {
		// journal gateway treats a bare "boot" query key as a flag, not a
		// key=value pair, so it cannot go through url.Values.
		parts = append(parts, "boot")
	} else if mode.cursor != "" {
		parts = append(parts, "cursor="+url.QueryEscape(mode.cursor), "skip=1")
	}
	for _, unit := range units {
		parts = append(parts, "_SYSTEMD_UNIT="+url.QueryEscape(unit))
	}
	u.RawQuery = strings.Join(parts, "&")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Range", fmt.Sprintf("entries=:%d", limit))
	return req, nil
}

// decodeBatch streams newline-delimited (or back-to-back) JSON values from r,
// sanitizing non-UTF-8 string values and dropping records that lack
// __CURSOR. Memory use is bounded by one decoded record plus the
// accumulated output, never the full response body.
//
// Each value is decoded twice: first into a json.RawMessage, which only
// fails on a genuine syntax error and leaves the decoder unable to find its
// place in the stream; then into the record shape, which can fail on a
// well-formed but non-object value (e.g. a bare string or array) without
// losing the decoder's position. Only the latter is recoverable per-record.
func decodeBatch(r io.Reader) (Batch, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	var batch Batch

	for {
		var token json.RawMessage
		if err := dec.Decode(&token); err != nil {
			if err == io.EOF {
				break
			}
			return batch, errs.New(errs.KindSourceProtocol, "journal.decodeBatch", err)
		}

		raw := make(map[string]interface{})
		if err := json.Unmarshal(token, &raw); err != nil {
			batch.DroppedMalformed++
			continue
		}
		if len(raw) == 0 {
			continue
		}

		record := make(Record, len(raw))
		for k, v := range raw {
			record[k] = sanitizeUTF8(toString(v))
		}

		if _, hasCursor := record["__CURSOR"]; !hasCursor {
			batch.DroppedNoCursor++
			continue
		}
		batch.Records = append(batch.Records, record)
	}
	return batch, nil
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}
