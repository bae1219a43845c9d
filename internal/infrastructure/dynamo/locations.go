package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/domain"
)

type LocationStore struct{ db *DB }

func NewLocationStore(db *DB) *LocationStore { return &LocationStore{db: db} }

func (s *LocationStore) Create(ctx context.Context, l *domain.Location) error {
	if err := putNew(ctx, s.db, s.db.tables.Locations, fieldLocationID, l); err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

func (s *LocationStore) Get(ctx context.Context, locationID string) (*domain.Location, error) {
	return getOne[domain.Location](ctx, s.db, s.db.tables.Locations, strKey(fieldLocationID, locationID), "location", locationID)
}

// List returns every location ordered by name.
func (s *LocationStore) List(ctx context.Context) ([]domain.Location, error) {
	out, err := scanAll[domain.Location](ctx, s.db, &dynamodb.ScanInput{TableName: aws.String(s.db.tables.Locations)})
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	sortLocations(out)
	return out, nil
}

func (s *LocationStore) Update(ctx context.Context, l *domain.Location) error {
	item, err := attributevalue.MarshalMap(l)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                           aws.String(s.db.tables.Locations),
			Item:                                item,
			ConditionExpression:                 aws.String("attribute_exists(#k)"),
			ExpressionAttributeNames:            map[string]string{"#k": fieldLocationID},
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		return missingOrConflict(err, "location", l.LocationID)
	})
}

// Delete fails with domain.ErrConflict while items still reference the location.
func (s *LocationStore) Delete(ctx context.Context, locationID string) error {
	n, err := countQuery(ctx, s.db, byIndex(s.db.tables.Items, indexItemLocation, "drop_off_location_id", locationID))
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("location %s is used by %d items: %w", locationID, n, domain.ErrConflict)
	}
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                           aws.String(s.db.tables.Locations),
			Key:                                 strKey(fieldLocationID, locationID),
			ConditionExpression:                 aws.String("attribute_exists(#k)"),
			ExpressionAttributeNames:            map[string]string{"#k": fieldLocationID},
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		return missingOrConflict(err, "location", locationID)
	})
}

func sortLocations(list []domain.Location) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].LocationID < list[j].LocationID
	})
}
