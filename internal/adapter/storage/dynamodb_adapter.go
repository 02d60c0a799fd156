package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/port"
)

type DynamoConfig struct {
	Region          string
	Endpoint        string // optional, e.g. http://dynamodb:8000
	AccessKeyID     string
	SecretAccessKey string
}

// NewDynamoDBClient builds a client. Local DynamoDB does not validate
// credentials, but the SDK requires some.
func NewDynamoDBClient(ctx context.Context, c DynamoConfig) (*dynamodb.Client, error) {
	creds := credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}

type rfqArchiveItem struct {
	ID           string           `dynamodbav:"id"`
	Status       string           `dynamodbav:"status"`
	CreatedAt    string           `dynamodbav:"created_at"`
	DispatchedAt string           `dynamodbav:"dispatched_at"`
	Items        []rfqArchiveLine `dynamodbav:"items"`
}

type rfqArchiveLine struct {
	ItemID   string        `dynamodbav:"item_id"`
	Name     string        `dynamodbav:"name"`
	SKU      string        `dynamodbav:"sku"`
	Quantity int           `dynamodbav:"quantity"`
	Vendors  []offerRecord `dynamodbav:"vendors"`
}

// DynamoRFQAdapter archives dispatched RFQs in a DynamoDB table keyed by id.
type DynamoRFQAdapter struct {
	ddb       *dynamodb.Client
	tableName string
}

var _ port.RFQSink = (*DynamoRFQAdapter)(nil)

func NewDynamoRFQAdapter(ddb *dynamodb.Client, tableName string) *DynamoRFQAdapter {
	return &DynamoRFQAdapter{ddb: ddb, tableName: tableName}
}

func (r *DynamoRFQAdapter) Dispatch(ctx context.Context, doc domain.RFQDocument) (domain.DispatchReceipt, error) {
	now := time.Now().UTC()
	av, err := attributevalue.MarshalMap(toArchiveItem(doc, now))
	if err != nil {
		return domain.DispatchReceipt{}, fmt.Errorf("marshal rfq: %w", err)
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return domain.DispatchReceipt{}, fmt.Errorf("%w: %s", ErrDuplicateRFQ, doc.ID)
		}
		return domain.DispatchReceipt{}, fmt.Errorf("put rfq: %w", err)
	}

	return domain.DispatchReceipt{
		RFQID:        doc.ID,
		Reference:    "dynamodb:" + r.tableName + "/" + doc.ID,
		DispatchedAt: now,
	}, nil
}

// Get reads an archived document back; ok is false when absent.
func (r *DynamoRFQAdapter) Get(ctx context.Context, id string) (domain.RFQDocument, bool, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.RFQDocument{}, false, err
	}
	if len(out.Item) == 0 {
		return domain.RFQDocument{}, false, nil
	}

	var it rfqArchiveItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return domain.RFQDocument{}, false, err
	}
	doc, err := fromArchiveItem(it)
	if err != nil {
		return domain.RFQDocument{}, false, fmt.Errorf("decode archived rfq %s: %w", id, err)
	}
	return doc, true, nil
}

func toArchiveItem(doc domain.RFQDocument, dispatchedAt time.Time) rfqArchiveItem {
	it := rfqArchiveItem{
		ID:           doc.ID,
		Status:       string(domain.RFQStatusDispatched),
		CreatedAt:    doc.CreatedAt.UTC().Format(time.RFC3339Nano),
		DispatchedAt: dispatchedAt.Format(time.RFC3339Nano),
	}
	for _, line := range doc.Items {
		al := rfqArchiveLine{
			ItemID:   line.ItemID,
			Name:     line.Item.Name,
			SKU:      line.Item.SKU,
			Quantity: line.Quantity,
		}
		for _, v := range line.Vendors {
			al.Vendors = append(al.Vendors, toOfferRecord(v.Vendor))
		}
		it.Items = append(it.Items, al)
	}
	return it
}

func fromArchiveItem(it rfqArchiveItem) (domain.RFQDocument, error) {
	createdAt, _ := time.Parse(time.RFC3339Nano, it.CreatedAt)
	dispatchedAt, _ := time.Parse(time.RFC3339Nano, it.DispatchedAt)

	doc := domain.RFQDocument{
		ID:        it.ID,
		CreatedAt: createdAt,
		Status:    domain.RFQStatus(it.Status),
		Receipt:   &domain.DispatchReceipt{RFQID: it.ID, DispatchedAt: dispatchedAt},
	}
	for _, al := range it.Items {
		line := domain.RFQItem{
			ItemID:   al.ItemID,
			Item:     domain.CatalogItem{ID: al.ItemID, Name: al.Name, SKU: al.SKU},
			Quantity: al.Quantity,
		}
		for _, rec := range al.Vendors {
			o, err := rec.toDomain()
			if err != nil {
				return domain.RFQDocument{}, fmt.Errorf("item %s: %w", al.ItemID, err)
			}
			o.IsSelected = true
			line.Vendors = append(line.Vendors, domain.RFQVendor{VendorID: o.ID, Vendor: o})
		}
		doc.Items = append(doc.Items, line)
	}
	return doc, nil
}
