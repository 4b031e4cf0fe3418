package http_test

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/veritas/internal/analysis"
	"github.com/fyrsmithlabs/veritas/internal/chat"
	"github.com/fyrsmithlabs/veritas/internal/genai"
	httpserver "github.com/fyrsmithlabs/veritas/internal/http"
	"github.com/fyrsmithlabs/veritas/internal/logging"
	"github.com/fyrsmithlabs/veritas/internal/prompt"
)

type cannedGenerator struct{}

func (cannedGenerator) Generate(context.Context, genai.Request) (*genai.Response, error) {
	return &genai.Response{Text: "VERDICT: TRUE\nSCORE: 90"}, nil
}

// ExampleServer demonstrates wiring and starting the HTTP server.
func ExampleServer() {
	logger := logging.Nop()
	builder := prompt.NewBuilder(prompt.DefaultConfig())
	var gen genai.Generator = cannedGenerator{}

	svc := analysis.NewService(gen, builder, analysis.WithLogger(logger))
	store := chat.NewStore(gen, builder, chat.WithStoreLogger(logger))

	server, err := httpserver.NewServer(svc, store, logger, &httpserver.Config{
		Host: "localhost",
		Port: 9192,
	})
	if err != nil {
		panic(err)
	}

	go func() {
		_ = server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		fmt.Println("shutdown error:", err)
	}

	fmt.Println("Server started and stopped successfully")
	// Output: Server started and stopped successfully
}
