package e2e

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	Type          string  `json:"type,omitempty"`
	JobID         string  `json:"job_id,omitempty"`
	JobToken      string  `json:"job_token,omitempty"`
	Code          string  `json:"code,omitempty"`
	Language      string  `json:"language,omitempty"`
	Data          string  `json:"data,omitempty"`
	Stream        string  `json:"stream,omitempty"`
	ExitCode      *int    `json:"exit_code,omitempty"`
	ExecutionTime float64 `json:"execution_time,omitempty"`
	Message       string  `json:"message,omitempty"`
}

func wsURL(t *testing.T, httpURL string) string {
	t.Helper()
	u, err := url.Parse(httpURL)
	require.NoError(t, err)
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String()
}

func mintJob(t *testing.T, httpURL string) createJobResponse {
	t.Helper()
	resp, err := httpPost(httpURL + "/api/jobs/create")
	require.NoError(t, err)
	defer resp.Body.Close()

	var job createJobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	return job
}

// drainUntilComplete reads frames until a complete or error frame arrives,
// or the deadline passes.
func drainUntilComplete(t *testing.T, conn *websocket.Conn, deadline time.Duration) (stdout string, final wsMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(deadline))
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed before completion: %v", err)
		}
		switch msg.Type {
		case "output":
			if msg.Stream != "stderr" {
				stdout += msg.Data
			}
		case "complete", "error":
			return stdout, msg
		}
	}
}

func TestExecutePythonHelloWorld(t *testing.T) {
	base := requireLiveServer(t)
	job := mintJob(t, base)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(t, base)+"/ws/execute", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsMessage{
		JobID:    job.JobID,
		JobToken: job.JobToken,
		Language: "python",
		Code:     "print('hello from e2e')",
	}))

	stdout, final := drainUntilComplete(t, conn, 10*time.Second)
	require.Equal(t, "complete", final.Type)
	require.NotNil(t, final.ExitCode)
	require.Equal(t, 0, *final.ExitCode)
	require.True(t, strings.Contains(stdout, "hello from e2e"))
}

func TestExecuteRejectsBlockedImport(t *testing.T) {
	base := requireLiveServer(t)
	job := mintJob(t, base)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(t, base)+"/ws/execute", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsMessage{
		JobID:    job.JobID,
		JobToken: job.JobToken,
		Language: "python",
		Code:     "import socket\nsocket.socket()",
	}))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "error", msg.Type)
	require.NotEmpty(t, msg.Message)
}

func TestJobTokenIsSingleUse(t *testing.T) {
	base := requireLiveServer(t)
	job := mintJob(t, base)

	conn1, _, err := websocket.DefaultDialer.Dial(wsURL(t, base)+"/ws/execute", nil)
	require.NoError(t, err)
	require.NoError(t, conn1.WriteJSON(wsMessage{
		JobID: job.JobID, JobToken: job.JobToken, Language: "python", Code: "pass",
	}))
	drainUntilComplete(t, conn1, 10*time.Second)
	conn1.Close()

	conn2, _, err := websocket.DefaultDialer.Dial(wsURL(t, base)+"/ws/execute", nil)
	require.NoError(t, err)
	defer conn2.Close()
	require.NoError(t, conn2.WriteJSON(wsMessage{
		JobID: job.JobID, JobToken: job.JobToken, Language: "python", Code: "pass",
	}))

	conn2.SetReadDeadline(time.Now().Add(5 * time.Second))
	var rejection wsMessage
	require.NoError(t, conn2.ReadJSON(&rejection))
	require.Equal(t, "error", rejection.Type)
	require.Contains(t, rejection.Message, "already been used")
	_, _, err = conn2.ReadMessage()
	require.Error(t, err, "reusing a job token should close the connection")
}

func TestExecuteForwardsStdin(t *testing.T) {
	base := requireLiveServer(t)
	job := mintJob(t, base)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(t, base)+"/ws/execute", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsMessage{
		JobID:    job.JobID,
		JobToken: job.JobToken,
		Language: "python",
		Code:     "print(input())",
	}))

	// Give the worker time to pick up the job and start the interpreter
	// before the stdin line is sent.
	time.Sleep(500 * time.Millisecond)
	require.NoError(t, conn.WriteJSON(wsMessage{Type: "input", Data: "ping\n"}))

	stdout, final := drainUntilComplete(t, conn, 10*time.Second)
	require.Equal(t, "complete", final.Type)
	require.True(t, strings.Contains(stdout, "ping"))
}
