package auditlog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petalboard/petalboard-backend/internal/testutil"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db := testutil.OpenDB(t, &AuditLog{})
	return NewService(NewRepository(db))
}

func TestLogActionStoresDetails(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	eventID := uint(7)

	err := svc.LogAction(ctx, nil, &eventID, "RSVP_CREATED", map[string]interface{}{"rsvp_id": "abc"}, "10.0.0.1", StatusSuccess)
	require.NoError(t, err)

	page, err := svc.GetAuditLogs(ctx, AuditLogFilter{EventID: &eventID})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	entry := page.Data[0]
	assert.Equal(t, "RSVP_CREATED", entry.Action)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
	assert.Nil(t, entry.UserID)

	var details map[string]string
	require.NoError(t, json.Unmarshal(entry.Details, &details))
	assert.Equal(t, "abc", details["rsvp_id"])
}

func TestGetAuditLogsFiltersAndPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	first, second := uint(1), uint(2)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.LogAction(ctx, nil, &first, "RSVP_UPDATED", nil, "", StatusSuccess))
	}
	require.NoError(t, svc.LogAction(ctx, nil, &first, "RSVP_CREATE_FAILED", nil, "", StatusFailure))
	require.NoError(t, svc.LogAction(ctx, nil, &second, "RSVP_UPDATED", nil, "", StatusSuccess))

	page, err := svc.GetAuditLogs(ctx, AuditLogFilter{EventID: &first, Page: 2, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Data, 2)

	failures, err := svc.GetAuditLogs(ctx, AuditLogFilter{EventID: &first, Status: StatusFailure})
	require.NoError(t, err)
	require.Len(t, failures.Data, 1)
	assert.Equal(t, "RSVP_CREATE_FAILED", failures.Data[0].Action)

	byAction, err := svc.GetAuditLogs(ctx, AuditLogFilter{Action: "updated"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), byAction.Total)
}
