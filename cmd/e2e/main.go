// Package main implements an end-to-end client for exercising a running
// agentloop instance. It submits execution tasks, sends interrupts, and
// watches user responses over NATS, which makes it possible to drive the
// full task → loop → response path without a chat adapter.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/c360studio/semstreams/agentic"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/c360studio/agentloop/execution"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var natsURL string

	cmd := &cobra.Command{
		Use:   "e2e",
		Short: "End-to-end client for a running agentloop instance",
		Long: `e2e drives a running agentloop instance over NATS: it submits
execution tasks, sends interrupt signals, and tails user responses.`,
	}

	cmd.PersistentFlags().StringVar(&natsURL, "nats", "", "NATS server URL (default: NATS_URL env or nats://localhost:4222)")

	cmd.AddCommand(submitCmd(&natsURL))
	cmd.AddCommand(interruptCmd(&natsURL))
	cmd.AddCommand(watchCmd(&natsURL))

	return cmd
}

func submitCmd(natsURL *string) *cobra.Command {
	var (
		threadID    string
		userID      string
		channelType string
		channelID   string
		model       string
		maxTurns    int
		complexity  int
		wait        bool
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "submit [task description]",
		Short: "Submit an execution task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.Join(args, " ")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			client, err := connect(ctx, *natsURL)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			payload := &execution.TaskPayload{
				TaskID:      uuid.New().String(),
				ThreadID:    threadID,
				Task:        task,
				Model:       model,
				MaxTurns:    maxTurns,
				Complexity:  complexity,
				UserID:      userID,
				ChannelType: channelType,
				ChannelID:   channelID,
			}
			if err := payload.Validate(); err != nil {
				return fmt.Errorf("invalid task: %w", err)
			}

			baseMsg := message.NewBaseMessage(execution.TaskType, payload, "e2e")
			data, err := json.Marshal(baseMsg)
			if err != nil {
				return fmt.Errorf("marshal task: %w", err)
			}

			if err := client.PublishToStream(ctx, execution.TaskSubject, data); err != nil {
				return fmt.Errorf("publish task: %w", err)
			}

			fmt.Printf("Submitted task %s on thread %s\n", payload.TaskID, payload.ThreadID)

			if !wait {
				return nil
			}
			return tailResponses(client, channelType, channelID, timeout, true)
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "e2e-thread", "Conversation thread ID")
	cmd.Flags().StringVar(&userID, "user", "e2e-user", "User ID attributed to the task")
	cmd.Flags().StringVar(&channelType, "channel-type", "e2e", "Channel type for responses")
	cmd.Flags().StringVar(&channelID, "channel-id", "local", "Channel ID for responses")
	cmd.Flags().StringVar(&model, "model", "", "Starting model tier (default: ladder base)")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 0, "Max turns (0 = engine default)")
	cmd.Flags().IntVar(&complexity, "complexity", 5, "Estimated task complexity (1-10)")
	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the execution result")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "How long to wait for a result")

	return cmd
}

func interruptCmd(natsURL *string) *cobra.Command {
	var (
		threadID string
		userID   string
		emoji    string
		text     string
	)

	cmd := &cobra.Command{
		Use:   "interrupt",
		Short: "Send an interrupt signal to a running execution",
		RunE: func(cmd *cobra.Command, args []string) error {
			if emoji == "" && text == "" {
				return fmt.Errorf("either --emoji or --text is required")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			client, err := connect(ctx, *natsURL)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			payload := &execution.InterruptPayload{
				ThreadID:  threadID,
				Emoji:     emoji,
				Text:      text,
				UserID:    userID,
				Timestamp: time.Now(),
			}
			if err := payload.Validate(); err != nil {
				return fmt.Errorf("invalid interrupt: %w", err)
			}

			baseMsg := message.NewBaseMessage(execution.InterruptType, payload, "e2e")
			data, err := json.Marshal(baseMsg)
			if err != nil {
				return fmt.Errorf("marshal interrupt: %w", err)
			}

			subject := execution.InterruptSubject(threadID)
			if err := client.PublishToStream(ctx, subject, data); err != nil {
				return fmt.Errorf("publish interrupt: %w", err)
			}

			fmt.Printf("Sent interrupt to thread %s\n", threadID)
			return nil
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "e2e-thread", "Conversation thread ID")
	cmd.Flags().StringVar(&userID, "user", "e2e-user", "User ID sending the interrupt")
	cmd.Flags().StringVar(&emoji, "emoji", "", "Reaction emoji (e.g. 🛑, ❓, 🔄)")
	cmd.Flags().StringVar(&text, "text", "", "Text command (e.g. \"stop\", \"clarify use staging\")")

	return cmd
}

func watchCmd(natsURL *string) *cobra.Command {
	var (
		channelType string
		channelID   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Tail user responses for a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			client, err := connect(ctx, *natsURL)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			fmt.Printf("Watching user.response.%s.%s (ctrl-c to stop)\n", channelType, channelID)
			return tailResponses(client, channelType, channelID, 0, false)
		},
	}

	cmd.Flags().StringVar(&channelType, "channel-type", "e2e", "Channel type to watch")
	cmd.Flags().StringVar(&channelID, "channel-id", "local", "Channel ID to watch")

	return cmd
}

func connect(ctx context.Context, natsURL string) (*natsclient.Client, error) {
	if natsURL == "" {
		natsURL = os.Getenv("NATS_URL")
	}
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	client, err := natsclient.NewClient(natsURL,
		natsclient.WithName("agentloop-e2e"),
		natsclient.WithMaxReconnects(5),
		natsclient.WithReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}

	return client, nil
}

// tailResponses prints user responses for a channel. With untilResult it
// returns when a result or error response arrives; a zero timeout waits
// indefinitely.
func tailResponses(client *natsclient.Client, channelType, channelID string, timeout time.Duration, untilResult bool) error {
	subject := fmt.Sprintf("user.response.%s.%s", channelType, channelID)

	responses := make(chan agentic.UserResponse, 16)
	sub, err := client.GetConnection().Subscribe(subject, func(msg *nats.Msg) {
		var response agentic.UserResponse
		if err := json.Unmarshal(msg.Data, &response); err != nil {
			fmt.Fprintf(os.Stderr, "Skipping malformed response: %v\n", err)
			return
		}
		responses <- response
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(interrupted)

	for {
		select {
		case response := <-responses:
			fmt.Printf("[%s] %s\n", response.Type, response.Content)
			if untilResult && (response.Type == agentic.ResponseTypeResult || response.Type == agentic.ResponseTypeError) {
				return nil
			}
		case <-deadline:
			return fmt.Errorf("timed out waiting for a result on %s", subject)
		case <-interrupted:
			return nil
		}
	}
}
