// Command token mints bearer tokens accepted by POST /books.
package main

import (
	"flag"
	"fmt"
	"time"

	"bookstream/internal/config"
	"bookstream/internal/logging"
	"bookstream/internal/platform/crypto"
)

func main() {
	var (
		subject = flag.String("subject", "uploader", "Token subject")
		ttl     = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Server.UploadSecret == "" {
		logging.Fatal().Msg("BOOKSTREAM_SERVER_UPLOAD_SECRET is not set; uploads are open")
	}

	token, err := crypto.GenerateToken(cfg.Server.UploadSecret, *subject, crypto.ScopeUpload, *ttl)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Println(token)
}
