// cmd/seedpolicy/main.go: validates a commission policy document and stores
// it for one actor.
//
// Uso: go run ./cmd/seedpolicy -actor-type VENTANA -actor-id <uuid> -file politica.json
//      go run ./cmd/seedpolicy -file politica.json -check
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"bancas/internal/config"
	"bancas/internal/engine"
	"bancas/internal/infra"
	"bancas/internal/model"
	"bancas/internal/repository"
	"bancas/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	actorType := flag.String("actor-type", string(model.ActorVentana), "VENTANA | VENDEDOR")
	actorIDStr := flag.String("actor-id", "", "UUID del actor")
	file := flag.String("file", "", "ruta del documento JSON de la política")
	check := flag.Bool("check", false, "solo validar, no guardar")
	flag.Parse()

	if *file == "" {
		log.Fatal().Msg("-file es obligatorio")
	}
	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("no se pudo leer el documento")
	}
	var policy model.CommissionPolicyV1
	if err := json.Unmarshal(raw, &policy); err != nil {
		log.Fatal().Err(err).Msg("JSON inválido")
	}

	if res := engine.ValidateCommissionPolicy(&policy); !res.Valid {
		for _, is := range res.Errors {
			log.Error().Str("field", is.Field).Str("value", is.Value).Msg(is.Message)
		}
		os.Exit(1)
	}
	if *check {
		fmt.Printf("política válida: %d regla(s), default %s%%\n", len(policy.Rules), policy.DefaultPercent)
		return
	}

	actorID, err := uuid.Parse(*actorIDStr)
	if err != nil {
		log.Fatal().Err(err).Msg("-actor-id inválido")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	svc := service.NewComisionService(repository.NewPoliticaRepository(db), repository.NewTicketRepository(db))
	if _, err := svc.Guardar(context.Background(), model.ActorType(*actorType), actorID, uuid.Nil, policy); err != nil {
		log.Fatal().Err(err).Msg("no se pudo guardar la política")
	}
	fmt.Printf("política guardada para %s %s\n", *actorType, actorID)
}
