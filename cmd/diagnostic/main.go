// File: cmd/diagnostic/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/iyunix/go-pdfchat/internal/auth"
	"github.com/iyunix/go-pdfchat/internal/config"
	"github.com/iyunix/go-pdfchat/internal/database"
	"github.com/iyunix/go-pdfchat/internal/domain"
	"github.com/iyunix/go-pdfchat/internal/services"
	"github.com/iyunix/go-pdfchat/internal/services/ai"
	"github.com/iyunix/go-pdfchat/internal/services/blob"
)

type check struct {
	name   string
	ok     bool
	detail string
}

func main() {
	tokenFor := flag.String("token", "", "print a bearer token for this user id and exit")
	tokenTTL := flag.Duration("ttl", 24*time.Hour, "lifetime of the token printed by -token")
	prompt := flag.String("prompt", "Reply with the single word: pong", "prompt sent to the completion engine")
	skipAI := flag.Bool("skip-ai", false, "skip the completion engine checks")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if *tokenFor != "" {
		if cfg.JWTSecretKey == "" {
			log.Fatal("JWT_SECRET_KEY not set in environment")
		}
		token, err := auth.GenerateJWT(*tokenFor, []byte(cfg.JWTSecretKey), *tokenTTL)
		if err != nil {
			log.Fatalf("token: %v", err)
		}
		fmt.Println(token)
		return
	}

	logger := &services.NoOpLogger{}
	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.AITimeout)
	defer cancel()

	checks := []check{checkDatabase(ctx, cfg), checkBlobStore(cfg, logger)}
	if !*skipAI {
		checks = append(checks, checkCompletions(ctx, cfg, logger, *prompt)...)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Check", "Status", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	failed := 0
	for _, c := range checks {
		status := "ok"
		if !c.ok {
			status = "FAILED"
			failed++
		}
		table.Append([]string{c.name, status, c.detail})
	}
	table.Render()

	if failed > 0 {
		os.Exit(1)
	}
}

func checkDatabase(ctx context.Context, cfg *config.Config) check {
	c := check{name: "database (" + cfg.DBDriver + ")"}
	db, err := database.Open(database.Config{Driver: cfg.DBDriver, DSN: cfg.DatabaseDSN})
	if err != nil {
		c.detail = err.Error()
		return c
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Ping(ctx, db); err != nil {
		c.detail = err.Error()
		return c
	}

	var chats, messages int64
	if err := db.WithContext(ctx).Model(&domain.Chat{}).Count(&chats).Error; err != nil {
		c.detail = "reachable, schema missing: " + err.Error()
		return c
	}
	if err := db.WithContext(ctx).Model(&domain.Message{}).Count(&messages).Error; err != nil {
		c.detail = "reachable, schema missing: " + err.Error()
		return c
	}
	c.ok = true
	c.detail = fmt.Sprintf("%d chats, %d messages", chats, messages)
	return c
}

// checkBlobStore opens the blob directory; it fails while a server holds it.
func checkBlobStore(cfg *config.Config, logger services.Logger) check {
	c := check{name: "blob store"}
	db, err := blob.OpenBadger(cfg.BlobPath)
	if err != nil {
		c.detail = err.Error()
		return c
	}
	defer db.Close()

	store := blob.NewBadgerStore(db, cfg.PublicBaseURL, logger)
	c.ok = true
	c.detail = fmt.Sprintf("%s, files served from %s", cfg.BlobPath, store.URL("{hash}"))
	return c
}

func checkCompletions(ctx context.Context, cfg *config.Config, logger services.Logger, prompt string) []check {
	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.OpenAIAPIKey
	aiConfig.BaseURL = cfg.OpenAIBaseURL
	aiConfig.Timeout = cfg.AITimeout
	aiConfig.MaxRetries = 1

	provider, err := ai.NewOpenAIProvider(aiConfig, logger)
	if err != nil {
		return []check{{name: "completion engine", detail: err.Error()}}
	}

	health := check{name: "completion engine", ok: true, detail: "models endpoint reachable"}
	if err := provider.HealthCheck(ctx); err != nil {
		health = check{name: "completion engine", detail: err.Error()}
	}

	completion := check{name: "completion (" + cfg.ChatModel + ")"}
	start := time.Now()
	reply, err := provider.GetCompletion(ctx, cfg.ChatModel, prompt)
	if err != nil {
		completion.detail = err.Error()
	} else {
		completion.ok = true
		completion.detail = fmt.Sprintf("%q in %s", reply, time.Since(start).Round(time.Millisecond))
	}
	return []check{health, completion}
}
