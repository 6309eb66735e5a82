package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/spec-kit/support-router/internal/api/dto"
)

const menuText = "How can I help today?\n  [1] Billing\n  [2] Outage Assist\nType acct=<number> to set your account, or quit to leave."

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("server", "http://localhost:8000", "support router base URL")
	chatCmd.Flags().String("session", "", "session id (random when empty)")
	chatCmd.Flags().String("account", "", "account number sent with every message")
	chatCmd.Flags().Duration("timeout", 15*time.Second, "request timeout")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		session, _ := cmd.Flags().GetString("session")
		account, _ := cmd.Flags().GetString("account")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if session == "" {
			session = "cli-" + uuid.NewString()[:8]
		}

		c := &chatClient{url: strings.TrimRight(server, "/") + "/chat", timeout: timeout}
		return runChat(cmd.InOrStdin(), cmd.OutOrStdout(), c, session, account)
	},
}

// sender posts one message to the router.
type sender interface {
	Send(req dto.ChatRequest) (dto.ChatResponse, error)
}

// runChat drives the read-send-print loop until EOF or quit.
func runChat(in io.Reader, out io.Writer, s sender, session, account string) error {
	fmt.Fprintf(out, "Session %s\n%s\n", session, menuText)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit":
			fmt.Fprintln(out, "Goodbye.")
			return nil
		case strings.HasPrefix(strings.ToLower(line), "acct="):
			account = strings.TrimSpace(line[len("acct="):])
			fmt.Fprintf(out, "Account set to %q.\n", account)
			continue
		}

		req := dto.ChatRequest{SessionID: session, Text: menuChoice(line)}
		if account != "" {
			acct := account
			req.AccountNumber = &acct
		}
		resp, err := s.Send(req)
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		fmt.Fprintf(out, "bot: %s\n", resp.Reply)
		if resp.TicketID != nil {
			fmt.Fprintf(out, "     ticket %s\n", *resp.TicketID)
		}
		if len(resp.Meta.Actions) > 0 {
			actions := make([]string, 0, len(resp.Meta.Actions))
			for _, a := range resp.Meta.Actions {
				actions = append(actions, string(a))
			}
			fmt.Fprintf(out, "     [%s] via %s\n", strings.Join(actions, ", "), resp.Meta.Rule)
		}
	}
}

// menuChoice maps numeric menu picks to their menu phrases.
func menuChoice(line string) string {
	switch line {
	case "1":
		return "billing"
	case "2":
		return "outage assist"
	}
	return line
}

type chatClient struct {
	url     string
	timeout time.Duration
}

func (c *chatClient) Send(req dto.ChatRequest) (dto.ChatResponse, error) {
	agent := fiber.Post(c.url)
	agent.JSON(req)
	agent.Timeout(c.timeout)
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return dto.ChatResponse{}, fmt.Errorf("send: %w", errors.Join(errs...))
	}
	if status != fiber.StatusOK {
		var failure struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &failure) == nil && failure.Error.Message != "" {
			return dto.ChatResponse{}, fmt.Errorf("%s (%s)", failure.Error.Message, failure.Error.Code)
		}
		return dto.ChatResponse{}, fmt.Errorf("server returned %d", status)
	}
	var resp dto.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return dto.ChatResponse{}, fmt.Errorf("decode reply: %w", err)
	}
	return resp, nil
}
