package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/rfp-desk/internal/db"
	"github.com/david/rfp-desk/internal/models"
	"github.com/david/rfp-desk/internal/ranking"
)

func main() {
	rfpFlag := flag.String("rfp", "", "RFP ID to compare proposals for")
	priceW := flag.Float64("price", -1, "price weight override (requires -delivery and -warranty)")
	deliveryW := flag.Float64("delivery", -1, "delivery weight override")
	warrantyW := flag.Float64("warranty", -1, "warranty weight override")
	flag.Parse()

	if *rfpFlag == "" {
		log.Fatal("Please provide an RFP ID using -rfp flag")
	}
	rfpID, err := uuid.Parse(*rfpFlag)
	if err != nil {
		log.Fatalf("Invalid RFP ID: %v", err)
	}

	var override *models.CriteriaWeights
	if *priceW >= 0 || *deliveryW >= 0 || *warrantyW >= 0 {
		if *priceW < 0 || *deliveryW < 0 || *warrantyW < 0 {
			log.Fatal("Weight override requires -price, -delivery and -warranty together")
		}
		override = &models.CriteriaWeights{Price: *priceW, Delivery: *deliveryW, Warranty: *warrantyW}
		if err := override.Validate(); err != nil {
			log.Fatalf("Invalid weights: %v", err)
		}
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	store := db.NewStore(pool)

	rfp, err := store.GetRfp(ctx, rfpID)
	if err != nil {
		log.Fatal(err)
	}
	if rfp == nil {
		log.Fatalf("RFP %s not found", rfpID)
	}

	proposals, err := store.ListProposalsByRfp(ctx, rfpID)
	if err != nil {
		log.Fatal(err)
	}

	result := ranking.Compare(ranking.RfpInfo{
		ID:              rfp.ID,
		Title:           rfp.Title,
		Currency:        rfp.Currency,
		CriteriaWeights: rfp.CriteriaWeights,
	}, proposals, override)

	fmt.Printf("%s (%d proposals, weights price=%.2f delivery=%.2f warranty=%.2f)\n\n",
		rfp.Title, len(result.Proposals),
		result.Weights.Price, result.Weights.Delivery, result.Weights.Warranty)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Rank", "Vendor", "Price", "Delivery", "Warranty", "Score /10"})

	for _, score := range result.Proposals {
		vendorName := score.VendorID.String()[:8]
		if v, err := store.GetVendor(ctx, score.VendorID); err == nil && v != nil {
			vendorName = v.Name
		}

		price := "-"
		if score.TotalPrice != nil {
			price = fmt.Sprintf("%.2f %s", *score.TotalPrice, result.Currency)
		}
		delivery := "-"
		if score.DeliveryDays != nil {
			delivery = fmt.Sprintf("%d days", *score.DeliveryDays)
		}
		warranty := "-"
		if score.WarrantyMonths != nil {
			warranty = fmt.Sprintf("%d months", *score.WarrantyMonths)
		}

		rank := fmt.Sprintf("%d", score.Rank)
		if result.RecommendedProposalID != nil && score.ProposalID == *result.RecommendedProposalID {
			rank += " *"
		}

		t.AppendRow(table.Row{rank, vendorName, price, delivery, warranty, fmt.Sprintf("%.2f", score.ScoreOutOf10)})
	}
	t.Render()

	if result.RecommendedProposalID != nil {
		fmt.Println("\n* recommended")
	}
}
