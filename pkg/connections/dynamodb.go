package connections

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore keeps connections in a DynamoDB table keyed by connectionId.
type DynamoStore struct {
	client DynamoAPI
	table  string
}

func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

func (s *DynamoStore) keyOf(connectionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		fieldConnectionID: &types.AttributeValueMemberS{Value: connectionID},
	}
}

func (s *DynamoStore) Put(ctx context.Context, conn fanout.Connection) error {
	if conn.ConnectionID == "" {
		return ErrEmptyConnectionID
	}
	item, err := attributevalue.MarshalMap(conn)
	if err != nil {
		return errors.Join(ErrCorruptRecord, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	return err
}

func (s *DynamoStore) Remove(ctx context.Context, connectionID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.keyOf(connectionID),
	})
	return err
}

func (s *DynamoStore) Touch(ctx context.Context, connectionID string, at time.Time) error {
	return s.update(ctx, connectionID, "SET lastSeen = :ts", map[string]types.AttributeValue{
		":ts": &types.AttributeValueMemberN{Value: strconv.FormatInt(at.Unix(), 10)},
	})
}

func (s *DynamoStore) SetTopics(ctx context.Context, connectionID string, topics []string) error {
	// String sets cannot be empty.
	if len(topics) == 0 {
		return s.update(ctx, connectionID, "REMOVE subscribedTopics", nil)
	}
	return s.update(ctx, connectionID, "SET subscribedTopics = :topics", map[string]types.AttributeValue{
		":topics": &types.AttributeValueMemberSS{Value: topics},
	})
}

func (s *DynamoStore) update(ctx context.Context, connectionID, expr string, values map[string]types.AttributeValue) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.keyOf(connectionID),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(connectionId)"),
		ExpressionAttributeValues: values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrConnectionNotFound
	}
	return err
}

func (s *DynamoStore) Get(ctx context.Context, connectionID string) (fanout.Connection, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.keyOf(connectionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return fanout.Connection{}, err
	}
	if len(out.Item) == 0 {
		return fanout.Connection{}, ErrConnectionNotFound
	}

	var conn fanout.Connection
	if err := attributevalue.UnmarshalMap(out.Item, &conn); err != nil {
		return fanout.Connection{}, errors.Join(ErrCorruptRecord, err)
	}
	return conn.WithDefaults(), nil
}

// All scans the whole table, following pagination.
func (s *DynamoStore) All(ctx context.Context) ([]fanout.Connection, error) {
	var out []fanout.Connection
	pages := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []fanout.Connection
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, errors.Join(ErrCorruptRecord, err)
		}
		out = append(out, batch...)
	}
	if out == nil {
		out = []fanout.Connection{}
	}
	return normalize(out), nil
}
