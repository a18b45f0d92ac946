package sentiment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlytics-server/pkg/llm"
)

func completionBody(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
}

func remoteEngine(t *testing.T, srv *httptest.Server) *Engine {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	client := llm.NewClient("test-key", logger, llm.WithBaseURL(srv.URL))
	require.NotNil(t, client)
	return NewEngine(client, "", true, false, logger)
}

func TestConfiguredModelReachesRemoteBackend(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	client := llm.NewClient("test-key", logger)

	e := NewEngine(client, "my-model", true, false, logger)
	require.NotNil(t, e.remote)
	assert.Equal(t, "my-model", e.remote.model)

	e = NewEngine(client, "", true, false, logger)
	require.NotNil(t, e.remote)
	assert.Equal(t, llm.SelectModel(llm.TaskSentiment), e.remote.model)
}

func TestRemoteBatchFailureFallsBackPerBatch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			scores := strings.Repeat("0.5\n", 10)
			fmt.Fprint(w, completionBody(strings.TrimSpace(scores)))
			return
		}
		fmt.Fprint(w, completionBody("sorry, I cannot rate these"))
	}))
	defer srv.Close()

	contents := make([]string, 0, 12)
	for i := 0; i < 10; i++ {
		contents = append(contents, "the meeting is at noon")
	}
	contents = append(contents,
		"this is great and awesome, thanks",
		"terrible awful garbage",
	)

	report, err := remoteEngine(t, srv).Analyze(context.Background(), testConversation(contents...))
	require.NoError(t, err)
	require.Len(t, report.MessageSentiments, 12)

	assert.Equal(t, "ai", report.Method)
	assert.Equal(t, int32(2), calls.Load())

	for i := 0; i < 10; i++ {
		assert.Equal(t, 0.5, report.MessageSentiments[i].Score)
		assert.Equal(t, "positive", report.MessageSentiments[i].Sentiment)
	}

	// The unparseable second batch is scored by the keyword backend.
	assert.Equal(t, 1.0, report.MessageSentiments[10].Score)
	assert.Equal(t, "positive", report.MessageSentiments[10].Sentiment)
	assert.Equal(t, -1.0, report.MessageSentiments[11].Score)
	assert.Equal(t, "negative", report.MessageSentiments[11].Sentiment)
}

func TestRemoteShortReplyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Two scores for a three-message batch.
		fmt.Fprint(w, completionBody("0.9\n0.9"))
	}))
	defer srv.Close()

	report, err := remoteEngine(t, srv).Analyze(context.Background(), testConversation(
		"this is great and awesome, thanks",
		"terrible awful garbage",
		"the meeting is at noon",
	))
	require.NoError(t, err)
	require.Len(t, report.MessageSentiments, 3)

	assert.Equal(t, "ai", report.Method)
	assert.Equal(t, 1.0, report.MessageSentiments[0].Score)
	assert.Equal(t, -1.0, report.MessageSentiments[1].Score)
	assert.Equal(t, "neutral", report.MessageSentiments[2].Sentiment)
}

func TestRemoteTolerantLineParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody("1. 0.8\n2. -0.4"))
	}))
	defer srv.Close()

	report, err := remoteEngine(t, srv).Analyze(context.Background(), testConversation(
		"the meeting is at noon",
		"see you tomorrow",
	))
	require.NoError(t, err)
	require.Len(t, report.MessageSentiments, 2)

	assert.Equal(t, 0.8, report.MessageSentiments[0].Score)
	assert.Equal(t, -0.4, report.MessageSentiments[1].Score)
}
