package storage

import (
	"bytes"
	"context"
	"errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"path"
	"strings"
)

const basePath = "perdecomp/cards/"

// CardArchive keeps a copy of every rendered snapshot card.
type CardArchive interface {
	Archive(ctx context.Context, clientID, consultationID string, card []byte) (string, error)
}

type storageClient struct {
	bucket string
	client *s3.Client
}

func NewCardArchive(ctx context.Context, region, bucket string) (CardArchive, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("bucket is empty")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg)
	return &storageClient{
		bucket: bucket,
		client: client,
	}, nil
}

func (s *storageClient) Archive(ctx context.Context, clientID, consultationID string, card []byte) (string, error) {
	key, err := ObjectKey(clientID, consultationID)
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(card),
		ContentType: aws.String("application/json"),
	}

	_, err = s.client.PutObject(ctx, input)
	if err != nil {
		return "", err
	}
	return key, nil
}

// ObjectKey is where the card of one consultation is stored.
func ObjectKey(clientID, consultationID string) (string, error) {
	if clientID == "" || consultationID == "" {
		return "", errors.New("client id and consultation id are required")
	}
	if strings.ContainsAny(clientID+consultationID, "/\\") {
		return "", errors.New("ids must not contain path separators")
	}
	return path.Join(basePath, clientID, consultationID+".json"), nil
}
