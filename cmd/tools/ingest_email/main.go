package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"github.com/david/rfp-desk/internal/ai"
	"github.com/david/rfp-desk/internal/db"
	"github.com/david/rfp-desk/internal/ingest"
)

// Feeds a single email through the ingestion pipeline without going through
// the webhook endpoint. The body is read from -body or stdin.
func main() {
	from := flag.String("from", "", "sender address, e.g. \"Acme Sales <sales@acme.com>\"")
	to := flag.String("to", "procurement@rfpdesk.example.com", "recipient mailbox")
	subject := flag.String("subject", "", "email subject line")
	bodyFile := flag.String("body", "", "file with the plain-text body (default: stdin)")
	noAI := flag.Bool("no-ai", false, "skip LLM extraction, regex parser only")
	flag.Parse()

	if *from == "" || *subject == "" {
		log.Fatal("Please provide -from and -subject")
	}

	var body []byte
	var err error
	if *bodyFile != "" {
		body, err = os.ReadFile(*bodyFile)
	} else {
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		log.Fatalf("Failed to read body: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	var extractor ingest.Extractor
	if !*noAI {
		extractor = ai.NewOllamaClient(os.Getenv("OLLAMA_HOST"), "", "")
	}
	pipeline := ingest.NewPipeline(db.NewStore(pool), nil, extractor)

	msg, err := pipeline.ProcessEmail(ctx, ingest.InboundEmail{
		From:     *from,
		To:       *to,
		Subject:  *subject,
		BodyText: string(body),
	})
	if err != nil {
		log.Fatalf("Processing failed: %v", err)
	}

	log.Printf("email %s: status=%s", msg.ID, msg.Status)
	if msg.RfpID != nil {
		log.Printf("linked to rfp %s", *msg.RfpID)
	}
	if msg.ErrorReason != "" {
		log.Printf("reason: %s", msg.ErrorReason)
	}
}
