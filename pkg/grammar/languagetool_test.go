package grammar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrect(t *testing.T) {
	var gotText, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "/v2/check", r.URL.Path)
		gotText = r.PostForm.Get("text")
		gotLang = r.PostForm.Get("language")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"matches":[
			{"message":"Possible typo","offset":5,"length":2,"replacements":[{"value":"are"}],"rule":{"id":"TYPO","issueType":"grammar"}},
			{"message":"Spelling","offset":22,"length":4,"replacements":[{"value":"Each"}],"rule":{"id":"MORFOLOGIK","issueType":"misspelling"}},
			{"message":"Spelling","offset":27,"length":4,"replacements":[{"value":"plan"}],"rule":{"id":"MORFOLOGIK","issueType":"misspelling"}}
		]}`))
	}))
	defer server.Close()

	lt := NewLanguageTool(Config{URL: server.URL}, nil)
	out, err := lt.Correct(context.Background(), "what is the prices of eech plnn")

	require.NoError(t, err)
	assert.Equal(t, "what is the prices of eech plnn", gotText)
	assert.Equal(t, "en-US", gotLang)
	assert.Equal(t, "what are the prices of eech plan", out)
}

func TestCorrectServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	out, err := NewLanguageTool(Config{URL: server.URL}, nil).Correct(context.Background(), "unchanged text")
	assert.Error(t, err)
	assert.Equal(t, "unchanged text", out)
}
