package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cliptube/identity-api/internal/domain"
)

// TweetRepo provides typed DynamoDB operations for the tweets table.
type TweetRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTweetRepo(client *dynamodb.Client, tableName string) *TweetRepo {
	return &TweetRepo{client: client, tableName: tableName}
}

func (r *TweetRepo) Put(ctx context.Context, t *domain.Tweet) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal tweet: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TweetRepo) Get(ctx context.Context, tweetID string) (*domain.Tweet, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("tweet_id", tweetID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("tweet not found: %w", domain.ErrNotFound)
	}
	var t domain.Tweet
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByOwner returns all tweets of a user via the owner_id GSI,
// newest first (tweet IDs are ULIDs, so key order is creation order).
func (r *TweetRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Tweet, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("owner_id-index"),
		KeyConditionExpression:    aws.String("owner_id = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":oid": &types.AttributeValueMemberS{Value: ownerID}},
		ScanIndexForward:          aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var tweets []domain.Tweet
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &tweets); err != nil {
		return nil, err
	}
	return tweets, nil
}

func (r *TweetRepo) UpdateContent(ctx context.Context, tweetID, content string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldContent:   content,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("tweet_id", tweetID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *TweetRepo) Delete(ctx context.Context, tweetID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("tweet_id", tweetID),
	})
	return err
}
