package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoAPI is the subset of the DynamoDB client used by this package.
// *dynamodb.Client satisfies it; tests substitute a fake.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Dynamo provides document collections backed by a single DynamoDB table.
type Dynamo struct {
	client DynamoAPI
	config Config
}

// NewDynamo creates a DynamoDB-backed document store.
func NewDynamo(client DynamoAPI, config Config) *Dynamo {
	config.validate()
	return &Dynamo{
		client: client,
		config: config,
	}
}

// Collection returns the named collection.
func (d *Dynamo) Collection(name string) Collection {
	return &dynamoCollection{store: d, name: name}
}

type dynamoCollection struct {
	store *Dynamo
	name  string
}

func (c *dynamoCollection) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: c.name},
		"sk": &types.AttributeValueMemberS{Value: id},
	}
}

// Find queries the collection partition and applies the filter server-side.
// Sorting happens client-side: the collections here are small (sections are
// capped at 4) and DynamoDB cannot order by a non-key attribute anyway.
func (c *dynamoCollection) Find(ctx context.Context, q Query) ([]Doc, error) {
	cf, err := compileFilter(q.Filter)
	if err != nil {
		return nil, err
	}

	keyCond := "pk = :pk"
	values := mergeExprValues(cf.values, map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: c.name},
	})
	if id := idField(q.Filter); id != "" {
		keyCond = "pk = :pk AND sk = :sk"
		values[":sk"] = &types.AttributeValueMemberS{Value: id}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(c.store.config.Table),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeValues: values,
	}
	if cf.expr != "" {
		input.FilterExpression = aws.String(cf.expr)
		input.ExpressionAttributeNames = cf.names
	}

	var docs []Doc
	paginator := dynamodb.NewQueryPaginator(c.store.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			doc, err := unmarshalItem(raw)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}

	sortDocs(docs, q.Sort)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// FindOne returns the first match in document-id order, or ErrNotFound.
func (c *dynamoCollection) FindOne(ctx context.Context, filter Filter) (Doc, error) {
	// Fast path: filtering by id is a point read.
	if id := idField(filter); id != "" {
		result, err := c.store.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(c.store.config.Table),
			Key:       c.key(id),
		})
		if err != nil {
			return nil, err
		}
		if result.Item == nil {
			return nil, ErrNotFound
		}
		doc, err := unmarshalItem(result.Item)
		if err != nil {
			return nil, err
		}
		if !matches(doc, filter) {
			return nil, ErrNotFound
		}
		return doc, nil
	}

	docs, err := c.Find(ctx, Query{Filter: filter, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// InsertOne writes a new document, assigning an id when the document has
// none. The put is conditioned on the id being absent.
func (c *dynamoCollection) InsertOne(ctx context.Context, doc Doc) (string, error) {
	id := doc.ID()
	if id == "" {
		id = uuid.NewString()
	}

	item, err := marshalDoc(doc)
	if err != nil {
		return "", err
	}
	item["pk"] = &types.AttributeValueMemberS{Value: c.name}
	item["sk"] = &types.AttributeValueMemberS{Value: id}

	_, err = c.store.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.store.config.Table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(sk)"),
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return "", ErrAlreadyExists
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateOne applies the patch to the first matching document. The non-id
// filter fields become the write's condition expression, so the update is
// an atomic compare-and-set against the document's current state.
func (c *dynamoCollection) UpdateOne(ctx context.Context, filter Filter, patch Patch) (int, error) {
	id := idField(filter)
	if id == "" {
		doc, err := c.FindOne(ctx, filter)
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		keyed := Filter{}
		for k, v := range filter {
			keyed[k] = v
		}
		keyed[FieldID] = doc.ID()
		return c.UpdateOne(ctx, keyed, patch)
	}

	cf, err := compileFilter(filter)
	if err != nil {
		return 0, err
	}
	cp, err := compilePatch(patch)
	if err != nil {
		return 0, err
	}

	cond := "attribute_exists(sk)"
	if cf.expr != "" {
		cond = fmt.Sprintf("attribute_exists(sk) AND %s", cf.expr)
	}

	_, err = c.store.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(c.store.config.Table),
		Key:                       c.key(id),
		UpdateExpression:          aws.String(cp.expr),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  mergeExprNames(cf.names, cp.names),
		ExpressionAttributeValues: mergeExprValues(cf.values, cp.values),
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

// DeleteOne removes the first matching document, with the filter applied
// as the delete's condition expression.
func (c *dynamoCollection) DeleteOne(ctx context.Context, filter Filter) (int, error) {
	id := idField(filter)
	if id == "" {
		doc, err := c.FindOne(ctx, filter)
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		keyed := Filter{}
		for k, v := range filter {
			keyed[k] = v
		}
		keyed[FieldID] = doc.ID()
		return c.DeleteOne(ctx, keyed)
	}

	cf, err := compileFilter(filter)
	if err != nil {
		return 0, err
	}

	cond := "attribute_exists(sk)"
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(c.store.config.Table),
		Key:       c.key(id),
	}
	if cf.expr != "" {
		cond = fmt.Sprintf("attribute_exists(sk) AND %s", cf.expr)
		input.ExpressionAttributeNames = cf.names
		input.ExpressionAttributeValues = cf.values
	}
	input.ConditionExpression = aws.String(cond)

	_, err = c.store.client.DeleteItem(ctx, input)
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

// idField returns the filter's id value, or "" when the filter has none.
func idField(f Filter) string {
	s, _ := f[FieldID].(string)
	return s
}

// marshalDoc converts a document's payload fields to DynamoDB attributes.
func marshalDoc(doc Doc) (map[string]types.AttributeValue, error) {
	payload := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == FieldID {
			continue
		}
		payload[k] = v
	}
	item, err := attributevalue.MarshalMap(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return item, nil
}

// unmarshalItem converts a DynamoDB item back to a document, folding the
// sort key into the "_id" field.
func unmarshalItem(raw map[string]types.AttributeValue) (Doc, error) {
	var doc Doc
	if err := attributevalue.UnmarshalMap(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if sk, ok := doc["sk"].(string); ok {
		doc[FieldID] = sk
	}
	delete(doc, "pk")
	delete(doc, "sk")
	return doc, nil
}
