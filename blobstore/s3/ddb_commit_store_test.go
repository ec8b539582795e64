package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/colseg/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB table.
type mockDDBClient struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := baseURI + ":" + version

	if aws.ToString(params.ConditionExpression) == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value
	version := func(item map[string]types.AttributeValue) uint64 {
		v, _ := strconv.ParseUint(item["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return v
	}

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == baseURI {
			items = append(items, item)
		}
	}
	slices.SortFunc(items, func(a, b map[string]types.AttributeValue) int {
		return int(version(b)) - int(version(a))
	})
	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func newTestDDBCommitStore(ddb *mockDDBClient, baseURI string) (*DDBCommitStore, *MockS3Client) {
	client := new(MockS3Client)
	return NewDDBCommitStore(NewStore(client, "test-bucket", "test/"), ddb, "colseg-commits", baseURI), client
}

func readPointer(t *testing.T, store blobstore.BlobStore, name string) string {
	t.Helper()
	data, err := blobstore.ReadAll(context.Background(), store, name)
	require.NoError(t, err)
	return string(data)
}

func TestDDBCommitStore_FirstCommit(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestDDBCommitStore(newMockDDBClient(), "s3://test-bucket/test/")

	require.NoError(t, store.Put(ctx, "orders/CURRENT", []byte("v1")))
	assert.Equal(t, "v1", readPointer(t, store, "orders/CURRENT"))

	v, err := store.Version(ctx, "orders/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}

func TestDDBCommitStore_MultipleCommits(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestDDBCommitStore(newMockDDBClient(), "s3://test-bucket/test/")

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Put(ctx, "orders/CURRENT", []byte(fmt.Sprintf("v%d", i))))
	}
	assert.Equal(t, "v3", readPointer(t, store, "orders/CURRENT"))
}

func TestDDBCommitStore_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestDDBCommitStore(newMockDDBClient(), "s3://test-bucket/test/")
	require.NoError(t, store.Put(ctx, "orders/CURRENT", []byte("v1")))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Put(ctx, "orders/CURRENT", []byte(fmt.Sprintf("v%d", i+2)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrConcurrentModification):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Positive(t, successes)
}

func TestDDBCommitStore_NotFoundBeforeCommit(t *testing.T) {
	store, _ := newTestDDBCommitStore(newMockDDBClient(), "s3://test-bucket/test/")
	_, err := store.Open(context.Background(), "orders/CURRENT")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestDDBCommitStore_IsolatedNamespaces(t *testing.T) {
	ctx := context.Background()
	ddb := newMockDDBClient()
	store1, _ := newTestDDBCommitStore(ddb, "s3://bucket-a/path/")
	store2, _ := newTestDDBCommitStore(ddb, "s3://bucket-b/path/")

	require.NoError(t, store1.Put(ctx, "orders/CURRENT", []byte("A")))
	require.NoError(t, store2.Put(ctx, "orders/CURRENT", []byte("B")))
	require.NoError(t, store1.Put(ctx, "users/CURRENT", []byte("U")))

	assert.Equal(t, "A", readPointer(t, store1, "orders/CURRENT"))
	assert.Equal(t, "B", readPointer(t, store2, "orders/CURRENT"))
	assert.Equal(t, "U", readPointer(t, store1, "users/CURRENT"))
}

func TestDDBCommitStore_DataGoesToS3(t *testing.T) {
	ctx := context.Background()
	store, client := newTestDDBCommitStore(newMockDDBClient(), "s3://test-bucket/test/")

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Key == "test/orders/v1/descriptor.json"
	})).Run(func(args mock.Arguments) {
		_, _ = io.ReadAll(args.Get(1).(*s3.PutObjectInput).Body)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	require.NoError(t, store.Put(ctx, "orders/v1/descriptor.json", []byte("{}")))
	client.AssertExpectations(t)
}
