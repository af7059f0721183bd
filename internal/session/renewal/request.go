package renewal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nkiryanov/doccollab/internal/apperrors"
)

type retriedKey struct{}

// IsRetried reports whether request is a replay after token renewal
// Replays are never sent to renewal again
func IsRetried(req *http.Request) bool {
	retried, _ := req.Context().Value(retriedKey{}).(bool)
	return retried
}

// Replayable reports whether request body can be sent once more
func Replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// Clone request, mark it retried and set fresh bearer token
func retryRequest(req *http.Request, access string) (*http.Request, error) {
	clone := req.Clone(context.WithValue(req.Context(), retriedKey{}, true))

	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, apperrors.ErrRequestNotReplayed
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("error while rewinding request body. Err: %w", err)
		}
		clone.Body = body
	}

	clone.Header.Set("Authorization", "Bearer "+access)
	return clone, nil
}
