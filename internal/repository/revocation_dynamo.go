package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
)

// DynamoRevocationStore is the denylist backend on the main table, for
// deployments that run without Redis. Items carry a TTL attribute so the
// table expires them on its own.
type DynamoRevocationStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewDynamoRevocationStore(client *dynamodb.Client, tableName string, logger *logrus.Logger) *DynamoRevocationStore {
	return &DynamoRevocationStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Revoke writes the denylist item unconditionally; a second revocation of
// the same token overwrites an identical item, which keeps the operation
// idempotent.
func (s *DynamoRevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: "REVOKED_TOKEN#" + token},
		"SK":         &types.AttributeValueMemberS{Value: "METADATA"},
		"revoked_at": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		"expires_at": &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to mark token as revoked")
		return fmt.Errorf("failed to mark token as revoked: %w", err)
	}

	return nil
}

func (s *DynamoRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "REVOKED_TOKEN#" + token},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}

	return result.Item != nil, nil
}
