package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/david/rfp-desk/internal/ai"
	"github.com/david/rfp-desk/internal/auth"
	"github.com/david/rfp-desk/internal/db"
	"github.com/david/rfp-desk/internal/ingest"
	"github.com/david/rfp-desk/internal/models"
	"github.com/david/rfp-desk/internal/ranking"
)

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo
	DB          *pgxpool.Pool
	AI          *ai.OllamaClient
	Pipeline    *ingest.Pipeline
	Mailboxes   *ingest.Registry
}

var (
	adminSecretOnce    sync.Once
	adminSecretRuntime string
	adminSecretErr     error
)

func NewServer(pool *pgxpool.Pool) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret", "X-Webhook-Secret"},
	}))

	store := db.NewStore(pool)
	authService := auth.NewService(pool)

	ollamaHost := os.Getenv("OLLAMA_HOST")
	if ollamaHost == "" {
		ollamaHost = "http://localhost:11434"
	}
	aiClient := ai.NewOllamaClient(ollamaHost, "", "")

	registry, err := ingest.LoadRegistry("internal/ingest/config/mailboxes.yaml")
	if err != nil {
		log.Printf("mailbox registry unavailable: %v", err)
		registry = &ingest.Registry{}
	}

	s := &Server{
		DB:          pool,
		Store:       store,
		AuthService: authService,
		Echo:        e,
		AI:          aiClient,
		Pipeline:    ingest.NewPipeline(store, nil, aiClient),
		Mailboxes:   registry,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")

	// RFPs; mutations require a logged-in buyer
	api.POST("/rfps", s.handleCreateRfp, auth.Middleware)
	api.GET("/rfps", s.handleListRfps)
	api.GET("/rfps/:id", s.handleGetRfp)
	api.PATCH("/rfps/:id", s.handleUpdateRfp, auth.Middleware)
	api.DELETE("/rfps/:id", s.handleDeleteRfp, auth.Middleware)
	api.GET("/rfps/:id/proposals", s.handleListProposals)
	api.POST("/rfps/:id/proposals", s.handleCreateProposal)
	api.GET("/rfps/:id/comparison", s.handleCompareProposals)

	// Proposals
	api.GET("/proposals/:id", s.handleGetProposal)
	api.PATCH("/proposals/:id", s.handleUpdateProposal)
	api.DELETE("/proposals/:id", s.handleDeleteProposal)

	// Vendors
	api.POST("/vendors", s.handleCreateVendor)
	api.GET("/vendors", s.handleListVendors)
	api.GET("/vendors/:id", s.handleGetVendor)
	api.PATCH("/vendors/:id", s.handleUpdateVendor)
	api.DELETE("/vendors/:id", s.handleDeleteVendor)
	api.POST("/vendors/:id/enrich", s.handleEnrichVendor)

	// Inbound email
	api.POST("/emails/inbound", s.handleInboundEmail)
	api.GET("/emails", s.handleListEmails)
	api.GET("/emails/:id", s.handleGetEmail)
	api.POST("/emails/:id/reprocess", s.handleReprocessEmail)
	api.POST("/emails/:id/link", s.handleLinkEmail)
	api.GET("/inbound/mailboxes", s.handleListMailboxes)

	api.GET("/stats", s.handleGetStats)

	// Admin
	admin := api.Group("")
	admin.Use(s.adminMiddleware)
	admin.POST("/seed", s.handleSeed)

	// Auth
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Auth

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCreds) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// RFPs

type createRfpRequest struct {
	Title                 string                  `json:"title"`
	NaturalLanguageInput  string                  `json:"natural_language_input"`
	Budget                *float64                `json:"budget"`
	Currency              string                  `json:"currency"`
	DeliveryDeadline      *time.Time              `json:"delivery_deadline"`
	MinimumWarrantyMonths *int                    `json:"minimum_warranty_months"`
	PaymentTerms          string                  `json:"payment_terms"`
	CriteriaWeights       *models.CriteriaWeights `json:"criteria_weights"`
}

func (s *Server) handleCreateRfp(c echo.Context) error {
	var req createRfpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.NaturalLanguageInput) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title or natural_language_input is required"})
	}
	if req.CriteriaWeights != nil {
		if err := req.CriteriaWeights.Validate(); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}

	var createdBy *uuid.UUID
	if userID, err := auth.GetUserIDFromContext(c); err == nil {
		createdBy = &userID
	}

	rfp := &models.Rfp{
		ID:                    uuid.New(),
		CreatedBy:             createdBy,
		Title:                 strings.TrimSpace(req.Title),
		NaturalLanguageInput:  strings.TrimSpace(req.NaturalLanguageInput),
		Budget:                req.Budget,
		Currency:              strings.ToUpper(strings.TrimSpace(req.Currency)),
		DeliveryDeadline:      req.DeliveryDeadline,
		MinimumWarrantyMonths: req.MinimumWarrantyMonths,
		PaymentTerms:          req.PaymentTerms,
		CriteriaWeights:       req.CriteriaWeights,
	}

	// NL extraction fills gaps the buyer left open; explicit fields always win.
	if rfp.NaturalLanguageInput != "" {
		aiCtx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
		extracted, err := s.AI.ExtractRfpSpec(aiCtx, rfp.NaturalLanguageInput)
		cancel()
		if err != nil {
			log.Printf("rfp extraction failed, storing raw input: %v", err)
		} else {
			applyRfpExtraction(rfp, extracted)
		}
	}
	if rfp.Title == "" {
		rfp.Title = ingest.TruncateText(rfp.NaturalLanguageInput, 120)
	}

	if err := s.Store.CreateRfp(c.Request().Context(), rfp); err != nil {
		c.Logger().Errorf("Failed to create rfp: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	s.embedRfpTitle(c.Request().Context(), rfp.ID, rfp.Title)

	return c.JSON(http.StatusCreated, rfp)
}

func applyRfpExtraction(rfp *models.Rfp, ex *ai.RfpExtraction) {
	if rfp.Title == "" && ex.Title != "" {
		rfp.Title = ex.Title
	}
	if rfp.Budget == nil && ex.Budget != nil {
		rfp.Budget = ex.Budget
	}
	if rfp.Currency == "" && ex.Currency != "" {
		rfp.Currency = strings.ToUpper(strings.TrimSpace(ex.Currency))
	}
	if rfp.DeliveryDeadline == nil && ex.DeliveryDeadlineISO != "" {
		if t, err := time.Parse("2006-01-02", ex.DeliveryDeadlineISO); err == nil {
			rfp.DeliveryDeadline = &t
		}
	}
	if rfp.MinimumWarrantyMonths == nil && ex.MinimumWarrantyMonths != nil {
		rfp.MinimumWarrantyMonths = ex.MinimumWarrantyMonths
	}
	if rfp.PaymentTerms == "" && ex.PaymentTerms != "" {
		rfp.PaymentTerms = ex.PaymentTerms
	}
	if len(ex.Items) > 0 {
		if rfp.StructuredSpec == nil {
			rfp.StructuredSpec = map[string]interface{}{}
		}
		rfp.StructuredSpec["items"] = ex.Items
	}
}

// embedRfpTitle computes the title embedding off the request path. Creation
// never waits on the model; search just falls back to keywords until the
// vector lands.
func (s *Server) embedRfpTitle(ctx context.Context, id uuid.UUID, title string) {
	if title == "" {
		return
	}
	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 60*time.Second)
	go func() {
		defer cancel()
		vec, err := s.AI.GenerateEmbedding(bgCtx, title)
		if err != nil {
			log.Printf("embedding for rfp %s skipped: %v", id, err)
			return
		}
		if err := s.Store.UpdateRfpTitleEmbedding(bgCtx, id, vec); err != nil {
			log.Printf("embedding for rfp %s not stored: %v", id, err)
		}
	}()
}

func (s *Server) handleListRfps(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))

	limit := 50
	offset := 0
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}

	var queryEmbedding []float32
	if q != "" {
		aiCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		vec, err := s.AI.GenerateEmbedding(aiCtx, q)
		cancel()
		if err != nil {
			c.Logger().Errorf("Failed to generate query embedding: %v", err)
		} else {
			queryEmbedding = vec
		}
	}

	result, err := s.Store.ListRfps(c.Request().Context(), db.RfpListParams{
		Query:          q,
		QueryEmbedding: queryEmbedding,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		c.Logger().Errorf("Failed to list rfps: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetRfp(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid RFP ID"})
	}
	rfp, err := s.Store.GetRfp(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if rfp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, rfp)
}

func (s *Server) handleUpdateRfp(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid RFP ID"})
	}
	ctx := c.Request().Context()

	rfp, err := s.Store.GetRfp(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if rfp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	var req createRfpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.CriteriaWeights != nil {
		if err := req.CriteriaWeights.Validate(); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		rfp.CriteriaWeights = req.CriteriaWeights
	}

	titleChanged := false
	if t := strings.TrimSpace(req.Title); t != "" && t != rfp.Title {
		rfp.Title = t
		titleChanged = true
	}
	if req.Budget != nil {
		rfp.Budget = req.Budget
	}
	if cur := strings.ToUpper(strings.TrimSpace(req.Currency)); cur != "" {
		rfp.Currency = cur
	}
	if req.DeliveryDeadline != nil {
		rfp.DeliveryDeadline = req.DeliveryDeadline
	}
	if req.MinimumWarrantyMonths != nil {
		rfp.MinimumWarrantyMonths = req.MinimumWarrantyMonths
	}
	if req.PaymentTerms != "" {
		rfp.PaymentTerms = req.PaymentTerms
	}

	if err := s.Store.UpdateRfp(ctx, rfp); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if titleChanged {
		s.embedRfpTitle(ctx, rfp.ID, rfp.Title)
	}
	return c.JSON(http.StatusOK, rfp)
}

func (s *Server) handleDeleteRfp(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid RFP ID"})
	}
	if err := s.Store.DeleteRfp(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// Proposals

type proposalRequest struct {
	VendorID       uuid.UUID `json:"vendor_id"`
	TotalPrice     *float64  `json:"total_price"`
	Currency       string    `json:"currency"`
	DeliveryDays   *int      `json:"delivery_days"`
	WarrantyMonths *int      `json:"warranty_months"`
	Terms          string    `json:"terms"`
	Notes          string    `json:"notes"`
}

func (s *Server) handleCreateProposal(c echo.Context) error {
	rfpID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid RFP ID"})
	}
	ctx := c.Request().Context()

	rfp, err := s.Store.GetRfp(ctx, rfpID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if rfp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "RFP not found"})
	}

	var req proposalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	vendor, err := s.Store.GetVendor(ctx, req.VendorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if vendor == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "vendor_id does not reference a known vendor"})
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = rfp.Currency
	}

	proposal := &models.Proposal{
		ID:             uuid.New(),
		RfpID:          rfpID,
		VendorID:       vendor.ID,
		TotalPrice:     req.TotalPrice,
		Currency:       currency,
		DeliveryDays:   req.DeliveryDays,
		WarrantyMonths: req.WarrantyMonths,
		Terms:          req.Terms,
		Notes:          req.Notes,
		Source:         models.SourceManual,
	}
	if err := s.Store.CreateProposal(ctx, proposal); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, proposal)
}

func (s *Server) handleListProposals(c echo.Context) error {
	rfpID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid RFP ID"})
	}
	proposals, err := s.Store.ListProposalsByRfp(c.Request().Context(), rfpID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, proposals)
}

func (s *Server) handleGetProposal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid proposal ID"})
	}
	proposal, err := s.Store.GetProposal(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if proposal == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, proposal)
}

func (s *Server) handleUpdateProposal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid proposal ID"})
	}
	ctx := c.Request().Context()

	proposal, err := s.Store.GetProposal(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if proposal == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	var req proposalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.TotalPrice != nil {
		proposal.TotalPrice = req.TotalPrice
	}
	if cur := strings.ToUpper(strings.TrimSpace(req.Currency)); cur != "" {
		proposal.Currency = cur
	}
	if req.DeliveryDays != nil {
		proposal.DeliveryDays = req.DeliveryDays
	}
	if req.WarrantyMonths != nil {
		proposal.WarrantyMonths = req.WarrantyMonths
	}
	if req.Terms != "" {
		proposal.Terms = req.Terms
	}
	if req.Notes != "" {
		proposal.Notes = req.Notes
	}

	if err := s.Store.UpdateProposal(ctx, proposal); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, proposal)
}

func (s *Server) handleDeleteProposal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid proposal ID"})
	}
	if err := s.Store.DeleteProposal(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// Comparison

func (s *Server) handleCompareProposals(c echo.Context) error {
	rfpID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid RFP ID"})
	}
	ctx := c.Request().Context()

	rfp, err := s.Store.GetRfp(ctx, rfpID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if rfp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "RFP not found"})
	}

	override, err := weightsFromQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	proposals, err := s.Store.ListProposalsByRfp(ctx, rfpID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	result := ranking.Compare(ranking.RfpInfo{
		ID:              rfp.ID,
		Title:           rfp.Title,
		Currency:        rfp.Currency,
		CriteriaWeights: rfp.CriteriaWeights,
	}, proposals, override)

	return c.JSON(http.StatusOK, result)
}

// weightsFromQuery builds an override from ?price=&delivery=&warranty= query
// params. All three must be given together or not at all.
func weightsFromQuery(c echo.Context) (*models.CriteriaWeights, error) {
	price := strings.TrimSpace(c.QueryParam("price"))
	delivery := strings.TrimSpace(c.QueryParam("delivery"))
	warranty := strings.TrimSpace(c.QueryParam("warranty"))
	if price == "" && delivery == "" && warranty == "" {
		return nil, nil
	}
	if price == "" || delivery == "" || warranty == "" {
		return nil, errors.New("weight override requires price, delivery and warranty together")
	}

	var w models.CriteriaWeights
	var err error
	if w.Price, err = strconv.ParseFloat(price, 64); err != nil {
		return nil, fmt.Errorf("invalid price weight %q", price)
	}
	if w.Delivery, err = strconv.ParseFloat(delivery, 64); err != nil {
		return nil, fmt.Errorf("invalid delivery weight %q", delivery)
	}
	if w.Warranty, err = strconv.ParseFloat(warranty, 64); err != nil {
		return nil, fmt.Errorf("invalid warranty weight %q", warranty)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Vendors

type vendorRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	ContactPerson string `json:"contact_person"`
	Website       string `json:"website"`
	Notes         string `json:"notes"`
}

func (s *Server) handleCreateVendor(c echo.Context) error {
	var req vendorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Name) == "" || !strings.Contains(req.Email, "@") {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name and a valid email are required"})
	}

	vendor := &models.Vendor{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(req.Name),
		Email:         req.Email,
		ContactPerson: req.ContactPerson,
		Website:       strings.TrimSpace(req.Website),
		Notes:         req.Notes,
	}
	if err := s.Store.CreateVendor(c.Request().Context(), vendor); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, vendor)
}

func (s *Server) handleListVendors(c echo.Context) error {
	vendors, err := s.Store.ListVendors(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, vendors)
}

func (s *Server) handleGetVendor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid vendor ID"})
	}
	vendor, err := s.Store.GetVendor(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if vendor == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, vendor)
}

func (s *Server) handleUpdateVendor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid vendor ID"})
	}
	ctx := c.Request().Context()

	vendor, err := s.Store.GetVendor(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if vendor == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	var req vendorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if n := strings.TrimSpace(req.Name); n != "" {
		vendor.Name = n
	}
	if strings.Contains(req.Email, "@") {
		vendor.Email = req.Email
	}
	if req.ContactPerson != "" {
		vendor.ContactPerson = req.ContactPerson
	}
	if w := strings.TrimSpace(req.Website); w != "" {
		vendor.Website = w
	}
	if req.Notes != "" {
		vendor.Notes = req.Notes
	}

	if err := s.Store.UpdateVendor(ctx, vendor); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, vendor)
}

func (s *Server) handleDeleteVendor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid vendor ID"})
	}
	if err := s.Store.DeleteVendor(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleEnrichVendor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid vendor ID"})
	}
	ctx := c.Request().Context()

	vendor, err := s.Store.GetVendor(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if vendor == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	var req struct {
		Website string `json:"website"`
	}
	_ = c.Bind(&req)
	site := strings.TrimSpace(req.Website)
	if site == "" {
		site = vendor.Website
	}
	if site == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "vendor has no website to probe"})
	}

	if status, msg := validatePublicURL(site); status != 0 {
		return c.JSON(status, map[string]string{"error": msg})
	}

	profile, err := ingest.ProbeVendorSite(site)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	profileMap := map[string]interface{}{
		"url":        profile.URL,
		"fetched_at": profile.FetchedAt,
	}
	if profile.Title != "" {
		profileMap["title"] = profile.Title
	}
	if profile.Description != "" {
		profileMap["description"] = profile.Description
	}
	if len(profile.ContactEmails) > 0 {
		profileMap["contact_emails"] = profile.ContactEmails
	}

	if err := s.Store.UpdateVendorSiteProfile(ctx, id, site, profileMap); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	vendor.Website = site
	vendor.SiteProfile = profileMap
	return c.JSON(http.StatusOK, vendor)
}

// validatePublicURL rejects URLs that would let a caller aim the scraper at
// internal infrastructure. Returns a zero status when the URL is acceptable.
func validatePublicURL(raw string) (int, string) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return http.StatusBadRequest, "Invalid URL scheme"
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return http.StatusBadRequest, "URL host is required"
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" || strings.HasSuffix(host, ".local") {
		return http.StatusForbidden, "Internal network access forbidden"
	}

	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return http.StatusBadRequest, "Unable to resolve URL host"
	}
	for _, ip := range ips {
		if isPrivateOrSpecialIP(ip) {
			return http.StatusForbidden, "Internal network access forbidden"
		}
	}
	return 0, ""
}

func isPrivateOrSpecialIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsMulticast() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		if ip4[0] == 100 && ip4[1]&0xC0 == 64 {
			return true
		}
		if ip4[0] == 169 && ip4[1] == 254 {
			return true
		}
	}

	return false
}

// Inbound email

type inboundEmailRequest struct {
	From              string     `json:"from"`
	To                string     `json:"to"`
	Subject           string     `json:"subject"`
	BodyText          string     `json:"body_text"`
	BodyHTML          string     `json:"body_html"`
	ProviderMessageID string     `json:"provider_message_id"`
	ReceivedAt        *time.Time `json:"received_at"`
}

func (s *Server) handleInboundEmail(c echo.Context) error {
	var req inboundEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.From) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "from is required"})
	}

	mailbox := s.Mailboxes.Lookup(req.To)
	if mailbox == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no active mailbox for recipient"})
	}
	if mailbox.WebhookSecret != "" && c.Request().Header.Get("X-Webhook-Secret") != mailbox.WebhookSecret {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid webhook secret"})
	}

	ctx := c.Request().Context()

	// Providers retry webhooks; the message ID makes redelivery a no-op.
	if req.ProviderMessageID != "" {
		existing, err := s.Store.GetEmailByProviderID(ctx, req.ProviderMessageID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		if existing != nil {
			return c.JSON(http.StatusOK, existing)
		}
	}

	in := ingest.InboundEmail{
		From:              req.From,
		To:                req.To,
		Subject:           req.Subject,
		BodyText:          req.BodyText,
		BodyHTML:          req.BodyHTML,
		ProviderMessageID: req.ProviderMessageID,
	}
	if req.ReceivedAt != nil {
		in.ReceivedAt = *req.ReceivedAt
	}

	msg, err := s.Pipeline.ProcessEmail(ctx, in)
	if err != nil {
		c.Logger().Errorf("Failed to process inbound email: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusCreated, msg)
}

func (s *Server) handleListEmails(c echo.Context) error {
	params := db.EmailListParams{
		Status: strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))),
	}
	if raw := c.QueryParam("rfp_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rfp_id"})
		}
		params.RfpID = &id
	}
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 500 {
		params.Limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		params.Offset = o
	}

	emails, err := s.Store.ListEmails(c.Request().Context(), params)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, emails)
}

func (s *Server) handleGetEmail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid email ID"})
	}
	msg, err := s.Store.GetEmail(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if msg == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, msg)
}

func (s *Server) handleReprocessEmail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid email ID"})
	}
	msg, err := s.Pipeline.Reprocess(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, msg)
}

func (s *Server) handleLinkEmail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid email ID"})
	}
	var req struct {
		RfpID uuid.UUID `json:"rfp_id"`
	}
	if err := c.Bind(&req); err != nil || req.RfpID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "rfp_id is required"})
	}

	msg, err := s.Pipeline.AttachToRfp(c.Request().Context(), id, req.RfpID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, msg)
}

func (s *Server) handleListMailboxes(c echo.Context) error {
	type mailboxView struct {
		ID          string `json:"id"`
		Address     string `json:"address"`
		DisplayName string `json:"display_name,omitempty"`
		Description string `json:"description,omitempty"`
	}

	var out []mailboxView
	for _, mb := range s.Mailboxes.Mailboxes {
		if !mb.Active {
			continue
		}
		out = append(out, mailboxView{
			ID:          mb.ID,
			Address:     mb.Address,
			DisplayName: mb.DisplayName,
			Description: mb.Description,
		})
	}
	if out == nil {
		out = []mailboxView{}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetStats(c echo.Context) error {
	stats, err := s.Store.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

// Seed

func (s *Server) handleSeed(c echo.Context) error {
	ctx := c.Request().Context()

	vendorSeeds := []struct {
		Name    string
		Email   string
		Contact string
		Website string
	}{
		{"Lenovo India", "sales@lenovo-india.example.com", "Priya Nair", "https://www.lenovo.com"},
		{"Dell Enterprise", "quotes@dell-enterprise.example.com", "Marcus Webb", "https://www.dell.com"},
		{"HP Business", "bids@hp-business.example.com", "Sofia Reyes", "https://www.hp.com"},
		{"Asus Commercial", "sales@asus-commercial.example.com", "Ken Tanaka", "https://www.asus.com"},
		{"Acer Solutions", "proposals@acer-solutions.example.com", "Lena Fischer", "https://www.acer.com"},
	}

	vendorCount := 0
	for _, v := range vendorSeeds {
		_, err := s.DB.Exec(ctx, `
			INSERT INTO vendors (name, email, contact_person, website)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO UPDATE SET
				updated_at = NOW(),
				name = EXCLUDED.name,
				contact_person = EXCLUDED.contact_person,
				website = EXCLUDED.website
		`, v.Name, v.Email, v.Contact, v.Website)
		if err != nil {
			c.Logger().Errorf("Failed to seed vendor %s: %v", v.Name, err)
			continue
		}
		vendorCount++
	}

	warranty12 := 12
	budget := func(v float64) *float64 { return &v }
	rfpSeeds := []struct {
		Title    string
		Input    string
		Budget   *float64
		Currency string
		Warranty *int
	}{
		{
			Title:    "Office Laptops Procurement",
			Input:    "We need 20 business laptops with at least 16GB RAM and 512GB SSD, budget 50000 USD, delivery within 30 days, minimum 12 months warranty.",
			Budget:   budget(50000),
			Currency: "USD",
			Warranty: &warranty12,
		},
		{
			Title:    "27-inch Monitors",
			Input:    "Looking for 30 27-inch QHD monitors for the design team, budget 15000 USD.",
			Budget:   budget(15000),
			Currency: "USD",
		},
		{
			Title:    "Office Chairs",
			Input:    "50 ergonomic office chairs with adjustable lumbar support, budget around 20000 USD.",
			Budget:   budget(20000),
			Currency: "USD",
		},
	}

	rfpCount := 0
	for _, seed := range rfpSeeds {
		var exists bool
		if err := s.DB.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM rfps WHERE lower(title) = lower($1))", seed.Title,
		).Scan(&exists); err != nil || exists {
			continue
		}

		rfp := &models.Rfp{
			ID:                    uuid.New(),
			Title:                 seed.Title,
			NaturalLanguageInput:  seed.Input,
			Budget:                seed.Budget,
			Currency:              seed.Currency,
			MinimumWarrantyMonths: seed.Warranty,
		}
		if err := s.Store.CreateRfp(ctx, rfp); err != nil {
			c.Logger().Errorf("Failed to seed rfp %s: %v", seed.Title, err)
			continue
		}
		s.embedRfpTitle(ctx, rfp.ID, rfp.Title)
		rfpCount++
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Seed complete",
		"vendors": vendorCount,
		"rfps":    rfpCount,
	})
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret, err := adminSecret()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server admin configuration error"})
		}

		authHeader := c.Request().Header.Get("Authorization")
		adminHeader := c.Request().Header.Get("X-Admin-Secret")

		if adminHeader == secret {
			return next(c)
		}
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			if authHeader[7:] == secret {
				return next(c)
			}
		}

		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

func adminSecret() (string, error) {
	adminSecretOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
		if secret != "" {
			adminSecretRuntime = secret
			return
		}

		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			adminSecretErr = fmt.Errorf("failed to generate ADMIN_SECRET fallback: %w", err)
			return
		}

		adminSecretRuntime = base64.RawURLEncoding.EncodeToString(buf)
		log.Print("ADMIN_SECRET is not set; using ephemeral in-memory fallback secret")
	})

	if adminSecretErr != nil {
		return "", adminSecretErr
	}
	if adminSecretRuntime == "" {
		return "", fmt.Errorf("admin secret unavailable")
	}

	return adminSecretRuntime, nil
}
