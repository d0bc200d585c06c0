package requestid

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	cases := map[string]string{
		"abc-123":               "abc-123",
		"trace_1.2":             "trace_1.2",
		"":                      "",
		"has space":             "",
		"line\nbreak":           "",
		"<script>":              "",
		strings.Repeat("a", 64): strings.Repeat("a", 64),
		strings.Repeat("a", 65): "",
	}
	for in, want := range cases {
		require.Equal(t, want, Clean(in), "input %q", in)
	}
}

func TestOrNewFallsBackToUUID(t *testing.T) {
	require.Equal(t, "keep-me", OrNew("keep-me"))

	id := OrNew("bad id")
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, FromContext(ctx))
	require.Equal(t, ctx, NewContext(ctx, ""))
	require.Equal(t, "r-1", FromContext(NewContext(ctx, "r-1")))
}
