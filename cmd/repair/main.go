// Lambda entrypoint for the section stream repairer.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/vitrine/home"
	"github.com/jacentio/vitrine/store"
	"github.com/jacentio/vitrine/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("load AWS config", "error", err)
		os.Exit(1)
	}

	storeCfg := store.DefaultConfig()
	if table := os.Getenv("VITRINE_TABLE"); table != "" {
		storeCfg.Table = table
	}

	docs := store.NewDynamo(dynamodb.NewFromConfig(cfg), storeCfg)
	repairer := stream.NewRepairer(docs.Collection(home.SectionsCollection), logger)

	lambda.Start(repairer.HandleStream)
}
