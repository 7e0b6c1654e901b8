// ABOUTME: Interactive terminal chat client for parley-gateway
// ABOUTME: Sends messages to /agent_chat and renders replies, with optional SSE streaming

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Stream    bool   `json:"stream,omitempty"`
}

type chatResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Type      string `json:"type"`
	AgentUsed string `json:"agent_used,omitempty"`
}

func main() {
	_ = godotenv.Load()

	gatewayURL := flag.String("gateway", envOr("PARLEY_GATEWAY_URL", "http://localhost:8989"), "gateway base URL")
	stream := flag.Bool("stream", false, "stream replies via SSE")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *gatewayURL, *stream); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, gatewayURL string, stream bool) error {
	sessionID := uuid.New().String()

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	cyan.Println("parley chat")
	gray.Printf("gateway: %s\n", gatewayURL)
	gray.Printf("session: %s\n", sessionID)
	gray.Println("type 'help' for commands, 'quit' to exit")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		if ctx.Err() != nil {
			return nil
		}

		color.New(color.FgGreen, color.Bold).Print("you> ")
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		message := strings.TrimSpace(line)
		if message == "" {
			continue
		}
		if message == "quit" || message == "exit" {
			return nil
		}

		if stream {
			err = sendStreaming(ctx, gatewayURL, sessionID, message)
		} else {
			err = send(ctx, gatewayURL, sessionID, message)
		}
		if err != nil {
			color.New(color.FgRed).Printf("error: %v\n", err)
		}
		fmt.Println()
	}
}

// send posts one message and prints the complete reply.
func send(ctx context.Context, gatewayURL, sessionID, message string) error {
	resp, err := postChat(ctx, gatewayURL, chatRequest{
		Message:   message,
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reply chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	printReplyHeader(reply.Type, reply.AgentUsed)
	fmt.Println(reply.Response)
	return nil
}

// sendStreaming posts one message with stream=true and prints SSE chunks as
// they arrive.
func sendStreaming(ctx context.Context, gatewayURL, sessionID, message string) error {
	resp, err := postChat(ctx, gatewayURL, chatRequest{
		Message:   message,
		SessionID: sessionID,
		Stream:    true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("expected SSE stream, got %s: %s", ct, body)
	}

	var event string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			handleSSEData(event, strings.TrimPrefix(line, "data: "))
		}
		if event == "done" && strings.HasPrefix(line, "data: ") {
			fmt.Println()
			return nil
		}
	}
	fmt.Println()
	return scanner.Err()
}

// handleSSEData renders a single SSE data payload.
func handleSSEData(event, data string) {
	switch event {
	case "chunk":
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err == nil {
			fmt.Print(payload.Text)
		}
	case "error":
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err == nil {
			color.New(color.FgRed).Printf("\nerror: %s", payload.Error)
		}
	}
}

func printReplyHeader(replyType, agentUsed string) {
	gray := color.New(color.FgHiBlack)
	switch replyType {
	case "message":
		gray.Printf("[%s]\n", agentUsed)
	case "command", "clarification":
		gray.Printf("[%s]\n", replyType)
	case "error":
		color.New(color.FgRed).Println("[error]")
	}
}

func postChat(ctx context.Context, gatewayURL string, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(gatewayURL, "/")+"/agent_chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, snippet)
	}

	return resp, nil
}
