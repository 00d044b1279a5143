// Copyright (c) Microsoft. All rights reserved.

// Command concurrent compares prices across three simulated stores. The
// dispatcher fans the query out, the stores answer in parallel, and the
// aggregator fans their results back in.
//
//	go run ./samples/concurrent
package main

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"github.com/jochenvw/agent-framework-workflows/internal/logging"
	"github.com/jochenvw/agent-framework-workflows/workflow"
	"github.com/jochenvw/agent-framework-workflows/workflow/viz"
)

// ProductQuery is the workflow input.
type ProductQuery struct {
	Product  string
	MaxPrice float64
}

// PriceResult is one store's answer.
type PriceResult struct {
	Store    string
	Product  string
	Price    float64
	Shipping float64
	InStock  bool
}

func (p PriceResult) Total() float64 { return p.Price + p.Shipping }

// Comparison is the workflow output, cheapest first.
type Comparison struct {
	Product  string
	Results  []PriceResult
	BestDeal *PriceResult
}

// store simulates a price API with a fixed latency.
type store struct {
	id      string
	name    string
	price   float64
	ship    float64
	inStock bool
	latency time.Duration
}

var stores = []store{
	{"amazon_source", "Amazon", 119.99, 0, true, 1200 * time.Millisecond},
	{"ebay_source", "eBay", 94.50, 8.75, true, 800 * time.Millisecond},
	{"walmart_source", "Walmart", 99.00, 0, false, 1500 * time.Millisecond},
}

func (s store) executor() workflow.Executor {
	return workflow.NewFunc(s.id, func(ctx context.Context, q ProductQuery, wc *workflow.Context) error {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return ctx.Err()
		}
		return wc.SendMessage(PriceResult{
			Store:    s.name,
			Product:  q.Product,
			Price:    s.price,
			Shipping: s.ship,
			InStock:  s.inStock,
		})
	})
}

func aggregate(results []PriceResult) Comparison {
	sorted := slices.Clone(results)
	slices.SortFunc(sorted, func(a, b PriceResult) int { return cmp.Compare(a.Total(), b.Total()) })

	c := Comparison{Results: sorted}
	if len(sorted) > 0 {
		c.Product = sorted[0].Product
	}
	for i := range sorted {
		if sorted[i].InStock {
			c.BestDeal = &sorted[i]
			break
		}
	}
	return c
}

func priceWorkflow(stores []store) (*workflow.Graph, error) {
	b := workflow.NewBuilder(
		workflow.WithName("price_comparison"),
		workflow.WithDescription("Query every store in parallel and rank the answers"),
	)

	dispatcher := workflow.NewFunc("price_dispatcher", func(ctx context.Context, q ProductQuery, wc *workflow.Context) error {
		return wc.SendMessage(q)
	})
	aggregator := workflow.NewJoinFunc("price_aggregator", func(ctx context.Context, results []PriceResult, wc *workflow.Context) error {
		return wc.YieldOutput(aggregate(results))
	})

	ids := make([]string, len(stores))
	executors := []workflow.Executor{dispatcher, aggregator}
	for i, s := range stores {
		ids[i] = s.id
		executors = append(executors, s.executor())
	}
	for _, e := range executors {
		if err := b.AddExecutor(e); err != nil {
			return nil, err
		}
	}
	if err := b.AddFanOutEdges("price_dispatcher", ids...); err != nil {
		return nil, err
	}
	if err := b.AddFanInEdges(ids, "price_aggregator"); err != nil {
		return nil, err
	}
	if err := b.SetStartExecutor("price_dispatcher"); err != nil {
		return nil, err
	}
	return b.Build()
}

func main() {
	ctx := context.Background()
	logger := logging.New(os.Stderr, os.Getenv("DEBUG") != "")

	g, err := priceWorkflow(stores)
	if err != nil {
		log.Fatal(err)
	}

	v := viz.New(g)
	fmt.Println("Mermaid diagram (paste into https://mermaid.live):")
	fmt.Println(v.Mermaid())
	if err := v.SaveSVG(ctx, "price_comparison_workflow.svg"); err != nil {
		log.Printf("Could not export SVG: %v", err)
	} else {
		fmt.Println("SVG saved: price_comparison_workflow.svg")
	}

	for _, q := range []ProductQuery{
		{Product: "Sony WH-1000XM5 Headphones", MaxPrice: 350},
		{Product: "Apple AirPods Pro 2nd Gen"},
	} {
		start := time.Now()
		res, err := g.Run(ctx, q, workflow.WithRunLogger(logger))
		if err != nil {
			log.Fatal(err)
		}
		c := res.Outputs()[0].(Comparison)

		fmt.Printf("\nProduct: %s (searched in %s)\n", c.Product, time.Since(start).Round(time.Millisecond))
		for i, r := range c.Results {
			stock := "in stock"
			if !r.InStock {
				stock = "out of stock"
			}
			fmt.Printf("%d. %-8s $%7.2f + $%5.2f shipping = $%7.2f  %s\n", i+1, r.Store, r.Price, r.Shipping, r.Total(), stock)
		}
		if c.BestDeal != nil {
			fmt.Printf("Best deal: %s at $%.2f\n", c.BestDeal.Store, c.BestDeal.Total())
		} else {
			fmt.Println("No store has it in stock.")
		}
	}
}
