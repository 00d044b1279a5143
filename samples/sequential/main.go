// Copyright (c) Microsoft. All rights reserved.

// Command sequential runs two linear workflows: a text pipeline that
// upper-cases then reverses its input, and a support-email pipeline that
// classifies, drafts and formats a reply.
//
//	go run ./samples/sequential
package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"strings"

	"github.com/jochenvw/agent-framework-workflows/internal/logging"
	"github.com/jochenvw/agent-framework-workflows/workflow"
	"github.com/jochenvw/agent-framework-workflows/workflow/viz"
)

// upper is a struct-based handler.
type upper struct{}

func (upper) Handle(ctx context.Context, in workflow.Message, wc *workflow.Context) error {
	s, ok := in.Data.(string)
	if !ok {
		return fmt.Errorf("upper: want string, got %s", in.Type)
	}
	return wc.SendMessage(strings.ToUpper(s))
}

func textWorkflow() (*workflow.Graph, error) {
	reverse := workflow.NewFunc("reverse_text", func(ctx context.Context, s string, wc *workflow.Context) error {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return wc.YieldOutput(string(r))
	})

	b := workflow.NewBuilder(workflow.WithName("text"))
	for _, e := range []workflow.Executor{workflow.NewExecutor("upper_case", upper{}), reverse} {
		if err := b.AddExecutor(e); err != nil {
			return nil, err
		}
	}
	if err := b.AddEdge("upper_case", "reverse_text"); err != nil {
		return nil, err
	}
	if err := b.SetStartExecutor("upper_case"); err != nil {
		return nil, err
	}
	return b.Build()
}

// CustomerEmail is the pipeline input.
type CustomerEmail struct {
	CustomerName string
	Body         string
}

// ClassifiedEmail carries the category assigned by the classifier.
type ClassifiedEmail struct {
	CustomerEmail
	Category string
}

// DraftResponse is the reply body before formatting.
type DraftResponse struct {
	CustomerName string
	Category     string
	Body         string
}

// FinalResponse is the formatted email the workflow yields.
type FinalResponse struct {
	To      string
	Subject string
	Body    string
}

var keywords = []struct {
	category string
	words    []string
}{
	{"billing", []string{"bill", "payment", "charge", "invoice", "refund"}},
	{"technical", []string{"error", "bug", "crash", "not working", "help"}},
}

var replies = map[string]string{
	"billing": "Thank you for contacting us about your billing concern. " +
		"I've reviewed your account and will help resolve this. " +
		"Our billing team will process your request within 24 hours.",
	"technical": "I understand you're experiencing a technical issue. " +
		"Please try restarting the application. If the issue persists, " +
		"our technical team will investigate further.",
	"general": "Thank you for reaching out to us! " +
		"A team member will follow up with more details soon.",
}

var subjects = map[string]string{
	"billing":   "Re: Your Billing Inquiry",
	"technical": "Re: Technical Support Request",
	"general":   "Re: Your Message",
}

func classify(body string) string {
	body = strings.ToLower(body)
	for _, k := range keywords {
		for _, w := range k.words {
			if strings.Contains(body, w) {
				return k.category
			}
		}
	}
	return "general"
}

func reference(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	return fmt.Sprintf("#CS-%04d", h.Sum32()%10000)
}

func emailWorkflow() (*workflow.Graph, error) {
	classifier := workflow.NewFunc("email_classifier", func(ctx context.Context, e CustomerEmail, wc *workflow.Context) error {
		return wc.SendMessage(ClassifiedEmail{CustomerEmail: e, Category: classify(e.Body)})
	})
	responder := workflow.NewFunc("response_generator", func(ctx context.Context, c ClassifiedEmail, wc *workflow.Context) error {
		return wc.SendMessage(DraftResponse{
			CustomerName: c.CustomerName,
			Category:     c.Category,
			Body:         replies[c.Category],
		})
	})
	formatter := workflow.NewFunc("email_formatter", func(ctx context.Context, d DraftResponse, wc *workflow.Context) error {
		var body strings.Builder
		fmt.Fprintf(&body, "Dear %s,\n\n%s\n\n", d.CustomerName, d.Body)
		body.WriteString("Best regards,\nCustomer Support Team\n\n---\n")
		fmt.Fprintf(&body, "Category: %s\nReference: %s\n", strings.ToUpper(d.Category), reference(d.CustomerName))
		return wc.YieldOutput(FinalResponse{To: d.CustomerName, Subject: subjects[d.Category], Body: body.String()})
	})

	b := workflow.NewBuilder(
		workflow.WithName("email"),
		workflow.WithDescription("Classify, answer and format customer support email"),
	)
	for _, e := range []workflow.Executor{classifier, responder, formatter} {
		if err := b.AddExecutor(e); err != nil {
			return nil, err
		}
	}
	if err := b.AddEdge("email_classifier", "response_generator"); err != nil {
		return nil, err
	}
	if err := b.AddEdge("response_generator", "email_formatter"); err != nil {
		return nil, err
	}
	if err := b.SetStartExecutor("email_classifier"); err != nil {
		return nil, err
	}
	return b.Build()
}

func main() {
	ctx := context.Background()
	logger := logging.New(os.Stderr, os.Getenv("DEBUG") != "")

	text, err := textWorkflow()
	if err != nil {
		log.Fatal(err)
	}
	res, err := text.Run(ctx, "hello world", workflow.WithRunLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Outputs: %v\nFinal state: %s\n\n", res.Outputs(), res.FinalState())

	email, err := emailWorkflow()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Mermaid diagram (paste into https://mermaid.live):")
	fmt.Println(viz.New(email).Mermaid())

	inbox := []CustomerEmail{
		{"John Smith", "I was charged twice for my subscription last month. Please help with a refund."},
		{"Sarah Johnson", "The app keeps crashing when I try to upload files."},
		{"Mike Wilson", "I love your product! Just wanted to say thanks."},
	}
	for _, in := range inbox {
		stream := email.RunStream(ctx, in, workflow.WithRunLogger(logger))
		for ev, err := range stream.All(ctx) {
			if err != nil {
				log.Fatal(err)
			}
			switch ev := ev.(type) {
			case workflow.ExecutorCompleted:
				fmt.Printf("  %s done in %s\n", ev.ExecutorID, ev.Duration)
			case workflow.OutputProduced:
				out := ev.Value.(FinalResponse)
				fmt.Printf("\nTo: %s\nSubject: %s\n\n%s\n", out.To, out.Subject, out.Body)
			}
		}
	}
}
