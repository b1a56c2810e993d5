package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// runtimeInfo mirrors types.RuntimeInfo's wire shape.
type runtimeInfo struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Compiled bool   `json:"compiled"`
}

func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "runtimes"},
		Short:   "List supported languages and their runtime versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL, _ := cmd.Flags().GetString("url")
			return listRuntimes(baseURL)
		},
	}
	return cmd
}

func listRuntimes(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/runtimes")
	if err != nil {
		return fmt.Errorf("failed to fetch runtimes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var runtimes []runtimeInfo
	if err := json.NewDecoder(resp.Body).Decode(&runtimes); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	sort.Slice(runtimes, func(i, j int) bool { return runtimes[i].Language < runtimes[j].Language })

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	for _, rt := range runtimes {
		compiled := "interpreted"
		if rt.Compiled {
			compiled = "compiled"
		}
		bold.Printf("%-12s", rt.Language)
		cyan.Printf(" %s (%s)\n", rt.Version, compiled)
	}
	fmt.Printf("\n%d languages available\n", len(runtimes))
	return nil
}
