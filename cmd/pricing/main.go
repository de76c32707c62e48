package main

import (
	"context"
	"time"

	"github.com/niksmo/dynamic-pricing/config"
	"github.com/niksmo/dynamic-pricing/internal/app"
	"github.com/niksmo/dynamic-pricing/pkg/sigctx"
)

const closeTimeout = 10 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext(context.Background())
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	pricingService := app.New(sigCtx, cfg)

	pricingService.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	pricingService.Close(ctx)
}
