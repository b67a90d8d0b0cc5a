package projection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aevon-lab/projection-daemon/internal/core/storage"
	projectionmocks "github.com/aevon-lab/projection-daemon/internal/mocks/projection"
	storagemocks "github.com/aevon-lab/projection-daemon/internal/mocks/storage"
)

func TestService_ListDocuments_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  DocumentQueryRequest
	}{
		{name: "missing projection", req: DocumentQueryRequest{}},
		{name: "negative wait", req: DocumentQueryRequest{Projection: "trips", Wait: -time.Second}},
		{name: "wait too long", req: DocumentQueryRequest{Projection: "trips", Wait: time.Minute}},
		{name: "negative limit", req: DocumentQueryRequest{Projection: "trips", Limit: -1}},
		{name: "limit too large", req: DocumentQueryRequest{Projection: "trips", Limit: maxListLimit + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := projectionmocks.NewDocumentStores(t)
			stores.EXPECT().DocumentStore(mock.Anything).Return(storagemocks.NewDocumentStore(t), true).Maybe()

			svc := NewService(stores, nil, nil, "main")
			_, err := svc.ListDocuments(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestService_GetDocument_RequiresID(t *testing.T) {
	stores := projectionmocks.NewDocumentStores(t)
	stores.EXPECT().DocumentStore("main").Return(storagemocks.NewDocumentStore(t), true).Once()

	svc := NewService(stores, nil, nil, "main")
	_, err := svc.GetDocument(context.Background(), DocumentQueryRequest{Projection: "trips"})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestService_ListDocuments_DefaultsLimitAndDatabase(t *testing.T) {
	stores := projectionmocks.NewDocumentStores(t)
	docs := storagemocks.NewDocumentStore(t)
	stores.EXPECT().DocumentStore("main").Return(docs, true).Once()
	docs.EXPECT().ListDocuments(mock.Anything, "trips", defaultListLimit).Return([]storage.Document{}, nil).Once()

	svc := NewService(stores, nil, nil, "main")
	resp, err := svc.ListDocuments(context.Background(), DocumentQueryRequest{Projection: "trips"})
	require.NoError(t, err)
	require.Equal(t, "main", resp.Database)
	require.NotNil(t, resp.Documents)
	require.Empty(t, resp.Documents)
	require.False(t, resp.Stale)
}

func TestService_GetDocument_WaitsForDaemon(t *testing.T) {
	stores := projectionmocks.NewDocumentStores(t)
	docs := storagemocks.NewDocumentStore(t)
	waiter := projectionmocks.NewStaleWaiter(t)

	var order []string
	stores.EXPECT().DocumentStore("main").Return(docs, true).Once()
	waiter.EXPECT().WaitForNonStaleData(mock.Anything, "main", 2*time.Second).
		Run(func(context.Context, string, time.Duration) { order = append(order, "wait") }).
		Return(nil).Once()
	docs.EXPECT().LoadDocument(mock.Anything, "trips", "trip-1").
		Run(func(context.Context, string, string) { order = append(order, "load") }).
		Return(storage.Document{ProjectionName: "trips", ID: "trip-1", LastSequence: 9}, nil).Once()

	svc := NewService(stores, waiter, testRegistry(t), "main")
	resp, err := svc.GetDocument(context.Background(), DocumentQueryRequest{Projection: "trips", ID: "trip-1", Wait: 2 * time.Second})
	require.NoError(t, err)
	require.False(t, resp.Stale)
	require.Equal(t, int64(9), resp.LastSequence)
	require.Equal(t, []string{"wait", "load"}, order, "the read happens after the daemon caught up")
}

func TestService_UnknownProjectionSkipsStoreLookup(t *testing.T) {
	stores := projectionmocks.NewDocumentStores(t)
	svc := NewService(stores, nil, testRegistry(t), "main")

	_, err := svc.GetDocument(context.Background(), DocumentQueryRequest{Projection: "invoices", ID: "inv-1"})
	require.ErrorIs(t, err, ErrUnknownProjection)
}
