package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replies struct {
	out   []string
	calls int
	users []string
}

func (r *replies) Complete(_ context.Context, _, user string) string {
	r.users = append(r.users, user)
	i := r.calls
	r.calls++
	if i < len(r.out) {
		return r.out[i]
	}
	return ""
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		reply string
		want  Decision
		ok    bool
	}{
		{"Yes", Yes, true},
		{"yes, the page covers it", Yes, true},
		{"**No.** nothing relevant", No, true},
		{"  [NO]", No, true},
		{"\"Yes\"", Yes, true},
		{"Nope", No, false},
		{"Yesterday it was", No, false},
		{"I think so", No, false},
		{"", No, false},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, err := ParseDecision(tt.reply)
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrFormat))
				var fe *FormatError
				assert.True(t, errors.As(err, &fe))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAskBinaryDirect(t *testing.T) {
	lm := &replies{out: []string{"No, it does not."}}
	d, err := New(lm, nil).AskBinary(context.Background(), "ctx", "Is it there?")

	require.NoError(t, err)
	assert.Equal(t, No, d)
	assert.Equal(t, 1, lm.calls)
	assert.Contains(t, lm.users[0], "Is it there?")
}

func TestAskBinaryClassifiesFreeText(t *testing.T) {
	lm := &replies{out: []string{"The page clearly lists the prices.", "Yes"}}
	d, err := New(lm, nil).AskBinary(context.Background(), "ctx", "Does it list prices?")

	require.NoError(t, err)
	assert.Equal(t, Yes, d)
	assert.Equal(t, 2, lm.calls)
}

func TestAskBinaryFailsOnGarbage(t *testing.T) {
	lm := &replies{out: []string{"maybe", "perhaps"}}
	_, err := New(lm, nil).AskBinary(context.Background(), "ctx", "Well?")

	assert.ErrorIs(t, err, ErrFormat)
}

func TestFindLinks(t *testing.T) {
	text := "Follow Pricing (https://example.com/pricing), then http://a.io/x?y=1 and https://b.org/c."
	assert.Equal(t, []string{
		"https://example.com/pricing",
		"http://a.io/x?y=1",
		"https://b.org/c",
	}, FindLinks(text))
	assert.Empty(t, FindLinks("no links here"))
}
