package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cliptube/identity-api/internal/domain"
)

// userProjection lists the attributes loaded for request-scoped user
// lookups. password_hash and refresh_token are deliberately absent.
const userProjection = "user_id, username, email, full_name, avatar_key, avatar_url, cover_key, cover_url, created_at, updated_at"

// UserRepo provides typed DynamoDB operations for the users table.
//
// Uniqueness on (email, username) is enforced at the storage layer: Create
// writes guard items alongside the user record inside a single transaction,
// so the table itself is the conflict-detection authority. Lookups through
// the email/username GSIs are a pre-check convenience, not a guarantee.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

func emailGuardKey(email string) string {
	return "uniq#email#" + strings.ToLower(email)
}

func usernameGuardKey(username string) string {
	return "uniq#username#" + strings.ToLower(username)
}

// Create persists a new user together with its email and username guard
// items. All three writes are conditioned on non-existence inside one
// TransactWriteItems call; a lost race surfaces as domain.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	notExists := aws.String("attribute_not_exists(user_id)")
	guard := func(key string) types.TransactWriteItem {
		return types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(r.tableName),
				Item: map[string]types.AttributeValue{
					"user_id": &types.AttributeValueMemberS{Value: key},
					"ref":     &types.AttributeValueMemberS{Value: u.UserID},
				},
				ConditionExpression: notExists,
			},
		}
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                item,
					ConditionExpression: notExists,
				},
			},
			guard(emailGuardKey(u.Email)),
			guard(usernameGuardKey(u.Username)),
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return fmt.Errorf("email or username already registered: %w", domain.ErrConflict)
				}
			}
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldUserID, userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetProjection loads a user without its password hash and refresh token.
// This is the only lookup the auth middleware performs.
func (r *UserRepo) GetProjection(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(r.tableName),
		Key:                  strKey(fieldUserID, userID),
		ProjectionExpression: aws.String(userProjection),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryGSI(ctx, "username-index", fieldUsername, strings.ToLower(username))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryGSI(ctx, "email-index", fieldEmail, strings.ToLower(email))
}

// FindByIdentity resolves a user by email or username, whichever matches.
func (r *UserRepo) FindByIdentity(ctx context.Context, identifier string) (*domain.User, error) {
	if u, err := r.GetByEmail(ctx, identifier); err == nil {
		return u, nil
	}
	return r.GetByUsername(ctx, identifier)
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// SetRefreshToken overwrites the user's current-refresh-token slot.
func (r *UserRepo) SetRefreshToken(ctx context.Context, userID, token string) error {
	return r.Update(ctx, userID, map[string]interface{}{fieldRefreshToken: token})
}

// ClearRefreshToken removes the slot entirely (logout). Any token issued
// before this call fails the store-equality check from then on.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, userID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey(fieldUserID, userID),
		UpdateExpression: aws.String("REMOVE #rt SET #ua = :now"),
		ExpressionAttributeNames: map[string]string{
			"#rt": fieldRefreshToken,
			"#ua": fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	return err
}

// RotateRefreshToken swaps the slot from presented to next, conditioned on
// the stored value still equalling presented. Two concurrent rotations can
// both pass the caller's in-memory equality check; the condition makes sure
// only one write wins, the loser gets domain.ErrStaleToken.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, userID, presented, next string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldUserID, userID),
		UpdateExpression:    aws.String("SET #rt = :next, #ua = :now"),
		ConditionExpression: aws.String("#rt = :old"),
		ExpressionAttributeNames: map[string]string{
			"#rt": fieldRefreshToken,
			"#ua": fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":next": &types.AttributeValueMemberS{Value: next},
			":old":  &types.AttributeValueMemberS{Value: presented},
			":now":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("refresh token no longer current: %w", domain.ErrStaleToken)
		}
		return err
	}
	return nil
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}
