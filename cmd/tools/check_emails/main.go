package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/rfp-desk/internal/db"
)

func main() {
	status := flag.String("status", "", "filter by status (PENDING, PARSED, UNMATCHED, IGNORED, FAILED)")
	limit := flag.Int("limit", 20, "max emails to show")
	flag.Parse()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	store := db.NewStore(pool)

	emails, err := store.ListEmails(ctx, db.EmailListParams{
		Status: strings.ToUpper(strings.TrimSpace(*status)),
		Limit:  *limit,
	})
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Received", "From", "Subject", "Status", "RFP", "Reason"})

	for _, e := range emails {
		rfp := "-"
		if e.RfpID != nil {
			rfp = e.RfpID.String()[:8]
		}
		subject := e.Subject
		if len(subject) > 50 {
			subject = subject[:47] + "..."
		}
		t.AppendRow(table.Row{
			e.ReceivedAt.Format("01-02 15:04"),
			e.From,
			subject,
			string(e.Status),
			rfp,
			e.ErrorReason,
		})
	}
	t.Render()
}
