package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPhrase(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "Just now"},
		{-time.Minute, "Just now"},
		{60 * time.Second, "Just now"},
		{90 * time.Second, "1 minutes ago"},
		{29 * time.Minute, "29 minutes ago"},
		{30 * time.Minute, "30 minutes ago"},
		{31 * time.Minute, "Half an hour ago"},
		{time.Hour, "Half an hour ago"},
		{2 * time.Hour, "a few hours ago"},
		{24 * time.Hour, "a few hours ago"},
		{25 * time.Hour, "yesterday"},
		{48 * time.Hour, "yesterday"},
		{3 * 24 * time.Hour, "a few days ago"},
	}

	for _, tc := range tests {
		t.Run(tc.ago.String(), func(t *testing.T) {
			require.Equal(t, tc.want, Phrase(now.Add(-tc.ago), now))
		})
	}
}
