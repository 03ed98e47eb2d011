// Lambda entrypoint for the homepage section API.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/vitrine/api"
	"github.com/jacentio/vitrine/catalog"
	"github.com/jacentio/vitrine/home"
	"github.com/jacentio/vitrine/store"
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
	lookup := catalog.NewLookup(
		docs.Collection(catalog.CategoriesCollection),
		docs.Collection(catalog.ProductsCollection),
	)
	manager := home.NewManager(docs.Collection(home.SectionsCollection), lookup, logger)

	lambda.Start(api.NewHandler(manager, logger).Handle)
}
