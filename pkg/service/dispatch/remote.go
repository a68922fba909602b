package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/utils/safe"
)

// maxResponseBody caps how much of a webhook response is read
const maxResponseBody = 8 << 20

// remotePayload is the body posted to a workflow webhook
type remotePayload struct {
	Integration string         `json:"integration"`
	Action      string         `json:"action"`
	Args        map[string]any `json:"args"`
}

// post sends one request and decodes the JSON response. Any transport error,
// non-2xx status or undecodable body is reported as ErrRemoteDispatchFailed.
func (r *Router) post(ctx context.Context, channel, url string, payload remotePayload) (any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal webhook payload", goerr.V(ChannelKey, channel))
	}

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.remoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(ErrRemoteDispatchFailed, err.Error(),
			goerr.V(ChannelKey, channel),
			goerr.V(PayloadKey, string(body)))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(ErrRemoteDispatchFailed, err.Error(),
			goerr.V(ChannelKey, channel),
			goerr.V(PayloadKey, string(body)))
	}
	defer safe.Drain(ctx, resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, goerr.Wrap(ErrRemoteDispatchFailed, err.Error(),
			goerr.V(ChannelKey, channel),
			goerr.V(StatusCodeKey, resp.StatusCode))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, goerr.Wrap(ErrRemoteDispatchFailed, fmt.Sprintf("webhook returned %s", resp.Status),
			goerr.V(ChannelKey, channel),
			goerr.V(StatusCodeKey, resp.StatusCode),
			goerr.V(PayloadKey, string(body)),
			goerr.V("response", truncate(string(data), 512)))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, goerr.Wrap(ErrRemoteDispatchFailed, "webhook response is not JSON",
			goerr.V(ChannelKey, channel),
			goerr.V(StatusCodeKey, resp.StatusCode),
			goerr.V("response", truncate(string(data), 512)))
	}
	return decoded, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
