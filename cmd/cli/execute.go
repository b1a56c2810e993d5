package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// createJobResponse mirrors handler.createJobResponse's wire shape.
type createJobResponse struct {
	JobID     string `json:"job_id"`
	JobToken  string `json:"job_token"`
	ExpiresAt string `json:"expires_at"`
}

// wsMessage mirrors types.WSMessage's wire shape for both directions of
// /ws/execute.
type wsMessage struct {
	Type          string `json:"type,omitempty"`
	JobID         string `json:"job_id,omitempty"`
	JobToken      string `json:"job_token,omitempty"`
	Code          string `json:"code,omitempty"`
	Language      string `json:"language,omitempty"`
	Data          string `json:"data,omitempty"`
	Stream        string `json:"stream,omitempty"`
	ExitCode      *int   `json:"exit_code,omitempty"`
	ExecutionTime float64 `json:"execution_time,omitempty"`
	Message       string `json:"message,omitempty"`
}

func NewExecuteCommand() *cobra.Command {
	var (
		language string
		readStdin bool
	)

	cmd := &cobra.Command{
		Use:     "execute <language> <file>",
		Aliases: []string{"run", "exec"},
		Short:   "Submit a code file for sandboxed execution",
		Long: `Submit a code file to codr's execution engine over its job-token
authenticated WebSocket stream.

Examples:
  # Execute a Python script
  codr execute python script.py

  # Execute and forward stdin
  codr execute python script.py -i`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			language = args[0]
			filename := args[1]

			code, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("failed to read file %s: %w", filename, err)
			}

			baseURL, _ := cmd.Flags().GetString("url")
			verbose, _ := cmd.Flags().GetBool("verbose")

			return executeRemote(baseURL, language, string(code), readStdin, verbose)
		},
	}

	cmd.Flags().BoolVarP(&readStdin, "stdin", "i", false, "Forward stdin keystrokes to the running program")

	return cmd
}

// executeRemote mints a job token, dials /ws/execute, and streams the
// result to the terminal.
func executeRemote(baseURL, language, code string, forwardStdin, verbose bool) error {
	job, err := createJob(baseURL)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	if verbose {
		fmt.Printf("Minted job %s, expires %s\n", job.JobID, job.ExpiresAt)
	}

	wsURL, err := convertToWebSocketURL(baseURL)
	if err != nil {
		return fmt.Errorf("failed to convert URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/execute", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to /ws/execute: %w", err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	writeJSON := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	auth := wsMessage{
		Type:     "auth",
		JobID:    job.JobID,
		JobToken: job.JobToken,
		Code:     code,
		Language: language,
	}
	if err := writeJSON(auth); err != nil {
		return fmt.Errorf("failed to send auth/submission frame: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if forwardStdin {
		go forwardStdinToWS(ctx, writeJSON)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT)

	messages := make(chan wsMessage, 16)
	go func() {
		defer close(messages)
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	for {
		select {
		case <-interrupt:
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			switch msg.Type {
			case "output":
				if msg.Stream == "stderr" {
					fmt.Fprint(os.Stderr, msg.Data)
				} else {
					fmt.Print(msg.Data)
				}
			case "complete":
				if msg.ExitCode != nil {
					if *msg.ExitCode == 0 {
						green.Printf("\nExit code: %d (%.3fs)\n", *msg.ExitCode, msg.ExecutionTime)
					} else {
						red.Printf("\nExit code: %d (%.3fs)\n", *msg.ExitCode, msg.ExecutionTime)
						if msg.Message != "" {
							red.Printf("%s\n", msg.Message)
						}
					}
				}
				return nil
			case "error":
				red.Printf("Error: %s\n", msg.Message)
				return fmt.Errorf("execution error: %s", msg.Message)
			}
		}
	}
}

func forwardStdinToWS(ctx context.Context, writeJSON func(v interface{}) error) {
	buf := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			_ = writeJSON(wsMessage{Type: "input", Data: string(buf[:n])})
		}
		if err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func createJob(baseURL string) (*createJobResponse, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(baseURL+"/api/jobs/create", "application/json", strings.NewReader("{}"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var job createJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &job, nil
}

func convertToWebSocketURL(httpURL string) (string, error) {
	u, err := url.Parse(httpURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
	}
	return u.String(), nil
}
