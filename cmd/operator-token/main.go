package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ignatzorin/bounty-indexer/internal/config"
	"github.com/ignatzorin/bounty-indexer/internal/http/middleware"
	"github.com/ignatzorin/bounty-indexer/internal/service"
)

// Выпускает JWT оператора для admin-маршрутов индексатора.
//
//	go run ./cmd/operator-token -operator alice -scopes dead-letters,disputes
func main() {
	operator := flag.String("operator", "", "имя оператора (subject токена)")
	scopes := flag.String("scopes", middleware.ScopeDeadLetters+","+middleware.ScopeDisputes, "области доступа через запятую, * - все")
	ttl := flag.Duration("ttl", 0, "срок жизни токена; по умолчанию OPERATOR_TOKEN_TTL")
	flag.Parse()

	if *operator == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("operator-token: ошибка загрузки конфигурации: %v", err)
	}
	lifetime := cfg.OperatorTokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	var list []string
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}

	token, exp, err := service.NewOperatorTokens(cfg.OperatorJWTSecret, lifetime).Issue(*operator, list...)
	if err != nil {
		log.Fatalf("operator-token: %v", err)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s, scopes %v\n", exp.Format(time.RFC3339), list)
}
