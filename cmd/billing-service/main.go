package main

import (
	"fmt"
	"os"

	"github.com/atelierweb/billing-core/internal/auth"
	"github.com/atelierweb/billing-core/internal/config"
	"github.com/atelierweb/billing-core/internal/db"
	"github.com/atelierweb/billing-core/internal/export"
	httphandler "github.com/atelierweb/billing-core/internal/http"
	"github.com/atelierweb/billing-core/internal/http/middleware"
	"github.com/atelierweb/billing-core/internal/logger"
	"github.com/atelierweb/billing-core/internal/numbering"
	"github.com/atelierweb/billing-core/internal/repository"
	"github.com/atelierweb/billing-core/internal/service"
	"github.com/atelierweb/billing-core/internal/totals"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	quoteRepo := repository.NewQuoteRepository(database)
	invoiceRepo := repository.NewInvoiceRepository(database)

	alloc := numbering.NewAllocator(repository.NewNumberScanner(), map[numbering.Kind]numbering.KindConfig{
		numbering.KindQuote: {
			Prefix:          cfg.Numbering.QuotePrefix,
			Width:           cfg.Numbering.QuoteWidth,
			WidenOnOverflow: cfg.Numbering.WidenOnOverflow,
		},
		numbering.KindInvoice: {
			Prefix:          cfg.Numbering.InvoicePrefix,
			Width:           cfg.Numbering.InvoiceWidth,
			WidenOnOverflow: cfg.Numbering.WidenOnOverflow,
		},
	}, cfg.Numbering.MaxRetries)

	policy := totals.Policy{DiscountAffectsTVA: cfg.Documents.DiscountAffectsTVA}

	quoteService := service.NewQuoteService(quoteRepo, alloc, cfg.Documents.QuoteValidityDays, policy)
	invoiceService := service.NewInvoiceService(invoiceRepo, alloc, cfg.Documents.InvoiceDueDays, policy)
	conversionService := service.NewConversionService(quoteRepo, invoiceRepo, alloc, cfg.Documents.InvoiceDueDays, policy)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(quoteService, invoiceService, conversionService, export.NewGenerator(), log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting billing service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
