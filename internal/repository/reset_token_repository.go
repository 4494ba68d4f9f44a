package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/kodprodobro/auth-service/internal/models"
)

type ResetTokenRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewResetTokenRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *ResetTokenRepository {
	return &ResetTokenRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Create stores a reset token with a TTL attribute so DynamoDB can expire
// leftovers on its own in addition to the sweep job.
func (r *ResetTokenRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: "RESET_TOKEN#" + token.Token},
		"SK":         &types.AttributeValueMemberS{Value: "METADATA"},
		"token":      &types.AttributeValueMemberS{Value: token.Token},
		"username":   &types.AttributeValueMemberS{Value: token.Username},
		"email":      &types.AttributeValueMemberS{Value: token.Email},
		"created_at": &types.AttributeValueMemberS{Value: token.CreatedAt.Format(time.RFC3339)},
		"expires_at": &types.AttributeValueMemberS{Value: token.ExpiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", token.ExpiresAt.Unix())},
	}

	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to store reset token in DynamoDB")
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	return nil
}

// Claim deletes the entry and returns its former content in a single
// conditional call, so of two concurrent claims on the same token exactly
// one sees the entry; the other gets (nil, nil).
func (r *ResetTokenRepository) Claim(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	result, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "RESET_TOKEN#" + token},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return nil, nil // No such token
		}
		return nil, fmt.Errorf("failed to claim reset token: %w", err)
	}

	var entry models.PasswordResetToken
	if err := attributevalue.UnmarshalMap(result.Attributes, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reset token: %w", err)
	}

	return &entry, nil
}

// DeleteExpired scans for reset token items whose TTL has passed and
// removes them. This bounds storage; expired entries are also rejected on
// lookup regardless.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		FilterExpression:     aws.String("begins_with(PK, :pk_prefix) AND #ttl < :now"),
		ProjectionExpression: aws.String("PK, SK"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk_prefix": &types.AttributeValueMemberS{Value: "RESET_TOKEN#"},
			":now":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan expired reset tokens: %w", err)
	}

	deleted := 0
	for _, item := range result.Items {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": item["PK"],
				"SK": item["SK"],
			},
		})
		if err != nil {
			r.logger.WithError(err).Warn("Failed to delete expired reset token")
			continue
		}
		deleted++
	}

	return deleted, nil
}
