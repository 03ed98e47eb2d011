//go:build e2e

// Package e2e contains end-to-end integration tests using a real DynamoDB
// table. Run with: go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/vitrine/catalog"
	"github.com/jacentio/vitrine/home"
	"github.com/jacentio/vitrine/store"
)

const tablePrefix = "vitrine-e2e-test"

var (
	testTable string
	ddbClient *dynamodb.Client
	docs      *store.Dynamo
	manager   *home.Manager

	catID   string
	prodIDs []string
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		fmt.Printf("load AWS config: %v\n", err)
		os.Exit(1)
	}
	ddbClient = dynamodb.NewFromConfig(cfg)

	testTable = fmt.Sprintf("%s-%s", tablePrefix, uuid.NewString()[:8])
	if err := createTable(ctx); err != nil {
		fmt.Printf("create table: %v\n", err)
		os.Exit(1)
	}

	docs = store.NewDynamo(ddbClient, store.Config{Table: testTable})
	lookup := catalog.NewLookup(
		docs.Collection(catalog.CategoriesCollection),
		docs.Collection(catalog.ProductsCollection),
	)
	manager = home.NewManager(docs.Collection(home.SectionsCollection), lookup, nil)

	if err := seedCatalog(ctx); err != nil {
		fmt.Printf("seed catalog: %v\n", err)
		deleteTable(ctx)
		os.Exit(1)
	}

	code := m.Run()
	deleteTable(ctx)
	os.Exit(code)
}

func createTable(ctx context.Context) error {
	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(testTable),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(ddbClient)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(testTable),
	}, 2*time.Minute)
}

func deleteTable(ctx context.Context) {
	_, _ = ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(testTable),
	})
}

func seedCatalog(ctx context.Context) error {
	categories := docs.Collection(catalog.CategoriesCollection)
	products := docs.Collection(catalog.ProductsCollection)

	catID = uuid.NewString()
	if _, err := categories.InsertOne(ctx, store.Doc{
		store.FieldID: catID,
		"name":        "Shirts",
	}); err != nil {
		return err
	}

	for i := 0; i < 4; i++ {
		id := uuid.NewString()
		if _, err := products.InsertOne(ctx, store.Doc{
			store.FieldID:   id,
			"name":          fmt.Sprintf("Product %d", i),
			"display_image": fmt.Sprintf("/uploads/products/%d.jpg", i),
			"selling_price": 10.0 * float64(i+1),
			"mrp":           12.0 * float64(i+1),
			"availability":  "In Stock",
		}); err != nil {
			return err
		}
		prodIDs = append(prodIDs, id)
	}
	return nil
}

func clearSections(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	sections := docs.Collection(home.SectionsCollection)
	all, err := sections.Find(ctx, store.Query{})
	if err != nil {
		t.Fatalf("list sections: %v", err)
	}
	for _, doc := range all {
		if _, err := sections.DeleteOne(ctx, store.Filter{store.FieldID: doc.ID()}); err != nil {
			t.Fatalf("clear section %s: %v", doc.ID(), err)
		}
	}
}

func listPositions(t *testing.T) []int64 {
	t.Helper()
	views, err := manager.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	ps := make([]int64, 0, len(views))
	for _, v := range views {
		ps = append(ps, v.Position)
	}
	return ps
}

func TestSectionLifecycle(t *testing.T) {
	clearSections(t)
	ctx := context.Background()

	// Add up to capacity.
	for i := 0; i < home.MaxSections; i++ {
		p, err := manager.Add(ctx, catID, []string{prodIDs[i]})
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if p != int64(i+1) {
			t.Errorf("add %d: expected position %d, got %d", i, i+1, p)
		}
	}

	// Capacity is enforced.
	if _, err := manager.Add(ctx, catID, []string{prodIDs[0]}); err == nil {
		t.Error("expected capacity error on fifth add")
	}

	// Swap the ends.
	if err := manager.Edit(ctx, 1, catID, []string{prodIDs[0]}, ptr(4)); err != nil {
		t.Fatalf("swap failed: %v", err)
	}
	ps := listPositions(t)
	if len(ps) != home.MaxSections {
		t.Fatalf("expected %d sections, got %v", home.MaxSections, ps)
	}
	for i, want := range []int64{1, 2, 3, 4} {
		if ps[i] != want {
			t.Errorf("expected positions [1 2 3 4], got %v", ps)
			break
		}
	}

	// Delete leaves a gap; the next add counts past the old maximum.
	if err := manager.Delete(ctx, 2); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	p, err := manager.Add(ctx, catID, []string{prodIDs[1]})
	if err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	if p != 5 {
		t.Errorf("expected position 5 after deleting from {1,2,3,4}, got %d", p)
	}
}

func TestListJoinsCatalog(t *testing.T) {
	clearSections(t)
	ctx := context.Background()

	if _, err := manager.Add(ctx, catID, []string{prodIDs[0], prodIDs[1]}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	views, err := manager.PublicList(ctx)
	if err != nil {
		t.Fatalf("PublicList failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 section, got %d", len(views))
	}
	v := views[0]
	if v.CategoryName != "Shirts" {
		t.Errorf("unexpected category name %q", v.CategoryName)
	}
	if len(v.Products) != 2 || v.Products[0].ID != prodIDs[0] {
		t.Errorf("unexpected products %+v", v.Products)
	}
	if v.Products[0].Price != 10.0 {
		t.Errorf("expected price 10, got %v", v.Products[0].Price)
	}
}

func ptr(p int64) *int64 { return &p }
