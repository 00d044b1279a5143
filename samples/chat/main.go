// Copyright (c) Microsoft. All rights reserved.

// Command chat is a multi-turn conversation with one agent. The provider
// comes from the environment (see internal/config):
//
//	export OPENAI_API_KEY=sk-...
//	go run ./samples/chat
//
// Lines starting with "stream " are answered token by token. "/history"
// prints the remembered turns, "/reset" forgets them and "quit" exits.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/internal/config"
	"github.com/jochenvw/agent-framework-workflows/internal/logging"
)

// historyLimit bounds the remembered messages.
const historyLimit = 40

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(os.Stderr, cfg.Debug)

	client, err := cfg.NewChatClient()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Using %s. Type 'quit' to exit.\n\n", cfg.Provider())

	agent := af.NewAgent(client,
		af.WithName("assistant"),
		af.WithInstructions("You are a helpful assistant. Keep responses concise."),
		af.WithAgentMiddleware(af.LoggingMiddleware(logger)),
	)
	if err := chat(ctx, agent, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// chat reads one prompt per line from in until EOF, quit or cancellation.
// Agent errors are printed and the conversation goes on.
func chat(ctx context.Context, agent *af.Agent, in io.Reader, out io.Writer) error {
	session := newSession(agent)
	var total af.UsageDetails

	scanner := bufio.NewScanner(in)
	for ctx.Err() == nil {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == "quit" || input == "exit":
			return nil
		case input == "/reset":
			session = newSession(agent)
			fmt.Fprintln(out, "(history cleared)")
			continue
		case input == "/history":
			history, err := session.History(ctx)
			if err != nil {
				return err
			}
			for _, m := range history {
				fmt.Fprintf(out, "  %s: %s\n", m.Role, m.Text())
			}
			continue
		}

		var (
			resp *af.AgentResponse
			err  error
		)
		if text, ok := strings.CutPrefix(input, "stream "); ok {
			resp, err = streamTurn(ctx, agent, session, text, out)
		} else {
			resp, err = agent.Run(ctx, []af.Message{af.NewUserMessage(input)}, af.WithSession(session))
			if err == nil {
				fmt.Fprintf(out, "Assistant: %s\n", resp.Text())
			}
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		total = total.Add(resp.Usage)
		if total.TotalTokens > 0 {
			fmt.Fprintf(out, "  [tokens so far: %d in, %d out]\n", total.InputTokens, total.OutputTokens)
		}
	}
	return scanner.Err()
}

func newSession(agent *af.Agent) *af.Session {
	return agent.NewSession(af.WithSessionStore(af.NewInMemoryStore(historyLimit)))
}

func streamTurn(ctx context.Context, agent *af.Agent, session *af.Session, text string, out io.Writer) (*af.AgentResponse, error) {
	stream, err := agent.RunStream(ctx, []af.Message{af.NewUserMessage(text)}, af.WithSession(session))
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	fmt.Fprint(out, "Assistant: ")
	for {
		update, ok, err := stream.Next(ctx)
		if err != nil {
			fmt.Fprintln(out)
			return nil, err
		}
		if !ok {
			break
		}
		fmt.Fprint(out, update.Text())
	}
	fmt.Fprintln(out)
	return stream.FinalResponse(ctx)
}
